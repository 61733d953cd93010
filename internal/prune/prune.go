// Package prune removes every immediate child directory of each collection under a release root
// whose name is not in a retained set.
//
// Collections are processed in lexicographic order and so are their children. A failed deletion
// aborts the collection it belongs to; the run continues with the next collection and all failures
// are returned joined together with the report of what was removed so far.
package prune

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/temirov/stacrelease/internal/utils"
)

// DefaultRetainedName is the per-collection items directory kept by the catalog layout.
const DefaultRetainedName = "items"

const (
	reasonMissing      = "does not exist"
	reasonNotDirectory = "not a directory"

	logDeleting       = "deleting"
	logDeleted        = "deleted"
	logWouldDelete    = "would delete"
	logDeleteFailed   = "delete failed"
	logRetained       = "retained"
	logCollection     = "collection"
	logCollectionSkip = "collection aborted"

	errorStatRootFormat       = "stat release root %s: %w"
	errorAbsoluteRootFormat   = "resolve release root %s: %w"
	errorReadRootFormat       = "read release root %s: %w"
	errorReadCollectionFormat = "read collection %s: %w"
	errorRetainedNameFormat   = "retained name %q: %w"
)

// RemoveFunc deletes a directory and everything below it.
type RemoveFunc func(path string) error

// Options tunes a pruning run. The zero value executes deletions with os.RemoveAll.
type Options struct {
	// DryRun reports candidates without deleting them.
	DryRun bool
	// Remove deletes one candidate directory; nil means os.RemoveAll.
	Remove RemoveFunc
	// Logger receives one line per deletion attempt; nil means a no-op logger.
	Logger *zap.Logger
}

// Deletion is one removed (or, in dry-run mode, removable) directory.
type Deletion struct {
	Collection string
	Path       string
}

// Failure is one collection-level failure recorded in the report.
type Failure struct {
	Collection string
	Path       string
	Reason     string
}

// Report lists every directory removed, in removal order. An interrupted run records the
// directory it stopped at as a failure carrying the context error.
type Report struct {
	Root        string
	Retained    []string
	DryRun      bool
	Collections int
	Deletions   []Deletion
	Failures    []Failure
}

// Succeeded reports whether the run finished without failures.
func (report Report) Succeeded() bool {
	return len(report.Failures) == 0
}

type retainedSet map[string]struct{}

func newRetainedSet(names []string) (retainedSet, error) {
	uniqueNames := utils.DeduplicateNames(names)
	if len(uniqueNames) == 0 {
		return nil, ErrNoRetainedNames
	}
	set := make(retainedSet, len(uniqueNames))
	for _, name := range uniqueNames {
		if validationError := utils.ValidateName(name); validationError != nil {
			return nil, fmt.Errorf(errorRetainedNameFormat, name, validationError)
		}
		set[name] = struct{}{}
	}
	return set, nil
}

func (set retainedSet) contains(name string) bool {
	_, retained := set[name]
	return retained
}

func (set retainedSet) sortedNames() []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prune deletes every non-retained immediate child directory of each collection under root.
// Validation failures (missing root, empty or malformed retained set) return before anything is
// touched. Cancellation is observed between whole deletions only.
func Prune(ctx context.Context, root string, retained []string, options Options) (Report, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	remove := options.Remove
	if remove == nil {
		remove = os.RemoveAll
	}

	retainedNames, retainedError := newRetainedSet(retained)
	if retainedError != nil {
		return Report{}, retainedError
	}
	absoluteRoot, rootError := resolveRoot(root)
	if rootError != nil {
		return Report{}, rootError
	}

	report := Report{
		Root:     absoluteRoot,
		Retained: retainedNames.sortedNames(),
		DryRun:   options.DryRun,
	}

	rootEntries, readError := os.ReadDir(absoluteRoot)
	if readError != nil {
		return report, fmt.Errorf(errorReadRootFormat, absoluteRoot, readError)
	}

	run := pruneRun{
		ctx:      ctx,
		root:     absoluteRoot,
		retained: retainedNames,
		dryRun:   options.DryRun,
		remove:   remove,
		logger:   logger,
		report:   &report,
	}

	var failures []error
	for _, rootEntry := range rootEntries {
		if !rootEntry.IsDir() {
			continue
		}
		if contextError := ctx.Err(); contextError != nil {
			run.recordFailure(rootEntry.Name(), filepath.Join(absoluteRoot, rootEntry.Name()), contextError)
			failures = append(failures, contextError)
			return report, errors.Join(failures...)
		}
		report.Collections++
		collectionError := run.pruneCollection(rootEntry.Name())
		if collectionError == nil {
			continue
		}
		failures = append(failures, collectionError)
		if errors.Is(collectionError, context.Canceled) || errors.Is(collectionError, context.DeadlineExceeded) {
			return report, errors.Join(failures...)
		}
	}
	return report, errors.Join(failures...)
}

func resolveRoot(root string) (string, error) {
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return "", fmt.Errorf(errorAbsoluteRootFormat, root, absoluteError)
	}
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return "", &RootNotFoundError{Path: absoluteRoot, Reason: reasonMissing}
		}
		return "", fmt.Errorf(errorStatRootFormat, absoluteRoot, statError)
	}
	if !rootInfo.IsDir() {
		return "", &RootNotFoundError{Path: absoluteRoot, Reason: reasonNotDirectory}
	}
	return absoluteRoot, nil
}

type pruneRun struct {
	ctx      context.Context
	root     string
	retained retainedSet
	dryRun   bool
	remove   RemoveFunc
	logger   *zap.Logger
	report   *Report
}

func (run *pruneRun) pruneCollection(collectionName string) error {
	collectionPath := filepath.Join(run.root, collectionName)
	run.logger.Debug(logCollection, zap.String("path", collectionPath))

	childEntries, readError := os.ReadDir(collectionPath)
	if readError != nil {
		run.recordFailure(collectionName, collectionPath, readError)
		return fmt.Errorf(errorReadCollectionFormat, collectionPath, readError)
	}

	for _, childEntry := range childEntries {
		if !childEntry.IsDir() {
			continue
		}
		childName := childEntry.Name()
		if run.retained.contains(childName) {
			run.logger.Debug(logRetained, zap.String("collection", collectionName), zap.String("name", childName))
			continue
		}
		if contextError := run.ctx.Err(); contextError != nil {
			run.recordFailure(collectionName, filepath.Join(collectionPath, childName), contextError)
			return contextError
		}
		if deleteError := run.deleteCandidate(collectionName, childName); deleteError != nil {
			run.logger.Warn(logCollectionSkip, zap.String("collection", collectionName))
			return deleteError
		}
	}
	return nil
}

func (run *pruneRun) deleteCandidate(collectionName, childName string) error {
	candidatePath, joinError := utils.SafeJoin(run.root, collectionName, childName)
	if joinError != nil {
		rejectedPath := filepath.Join(run.root, collectionName, childName)
		run.recordFailure(collectionName, rejectedPath, joinError)
		return &DeleteFailedError{Collection: collectionName, Path: rejectedPath, Cause: joinError}
	}

	relativePath := utils.RelativePathOrSelf(candidatePath, run.root)
	if run.dryRun {
		run.logger.Info(logWouldDelete, zap.String("collection", collectionName), zap.String("path", relativePath))
		run.report.Deletions = append(run.report.Deletions, Deletion{Collection: collectionName, Path: candidatePath})
		return nil
	}

	run.logger.Info(logDeleting, zap.String("collection", collectionName), zap.String("path", relativePath))
	if removeError := run.remove(candidatePath); removeError != nil {
		run.logger.Error(logDeleteFailed, zap.String("path", relativePath), zap.Error(removeError))
		run.recordFailure(collectionName, candidatePath, removeError)
		return &DeleteFailedError{Collection: collectionName, Path: candidatePath, Cause: removeError}
	}
	run.report.Deletions = append(run.report.Deletions, Deletion{Collection: collectionName, Path: candidatePath})
	run.logger.Debug(logDeleted, zap.String("path", relativePath))
	return nil
}

func (run *pruneRun) recordFailure(collectionName, path string, cause error) {
	run.report.Failures = append(run.report.Failures, Failure{
		Collection: collectionName,
		Path:       path,
		Reason:     cause.Error(),
	})
}
