package prune_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/stacrelease/internal/prune"
)

const (
	itemsName = prune.DefaultRetainedName
	fileMode  = 0o600
	dirMode   = 0o755
)

// buildTree creates directories for entries ending in "/" and files for everything else.
func buildTree(t *testing.T, root string, entries ...string) {
	t.Helper()
	for _, entry := range entries {
		fullPath := filepath.Join(root, filepath.FromSlash(entry))
		if entry[len(entry)-1] == '/' {
			if err := os.MkdirAll(fullPath, dirMode); err != nil {
				t.Fatalf("mkdir %s: %v", fullPath, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), dirMode); err != nil {
			t.Fatalf("mkdir parent of %s: %v", fullPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(entry), fileMode); err != nil {
			t.Fatalf("write %s: %v", fullPath, err)
		}
	}
}

// snapshot lists every path under root relative to it, directories suffixed with "/".
func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		relative, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		relative = filepath.ToSlash(relative)
		if entry.IsDir() {
			relative += "/"
		}
		paths = append(paths, relative)
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk %s: %v", root, walkErr)
	}
	return paths
}

func deletionPairs(root string, report prune.Report) [][2]string {
	pairs := make([][2]string, 0, len(report.Deletions))
	for _, deletion := range report.Deletions {
		relative, _ := filepath.Rel(root, deletion.Path)
		pairs = append(pairs, [2]string{deletion.Collection, filepath.ToSlash(relative)})
	}
	return pairs
}

func TestPruneScenarios(t *testing.T) {
	testCases := []struct {
		name              string
		entries           []string
		retained          []string
		expectedDeletions [][2]string
		expectedTree      []string
		expectedScanned   int
	}{
		{
			name: "removes_only_non_retained_children",
			entries: []string{
				"a/items/one.json",
				"a/raw/tile.tif",
				"b/items/two.json",
			},
			retained:          []string{itemsName},
			expectedDeletions: [][2]string{{"a", "a/raw"}},
			expectedTree: []string{
				"a/", "a/items/", "a/items/one.json",
				"b/", "b/items/", "b/items/two.json",
			},
			expectedScanned: 2,
		},
		{
			name:              "collection_without_subdirectories",
			entries:           []string{"a/collection.json", "b/"},
			retained:          []string{itemsName},
			expectedDeletions: [][2]string{},
			expectedTree:      []string{"a/", "a/collection.json", "b/"},
			expectedScanned:   2,
		},
		{
			name:              "absent_retained_name_creates_no_expectation",
			entries:           []string{"a/items/", "b/items/"},
			retained:          []string{itemsName, "thumbnails"},
			expectedDeletions: [][2]string{},
			expectedTree:      []string{"a/", "a/items/", "b/", "b/items/"},
			expectedScanned:   2,
		},
		{
			name: "files_are_never_touched",
			entries: []string{
				"README.md",
				"catalog.json",
				"a/collection.json",
				"a/items",
				"a/stray/x.json",
			},
			retained:          []string{itemsName},
			expectedDeletions: [][2]string{{"a", "a/stray"}},
			expectedTree:      []string{"README.md", "a/", "a/collection.json", "a/items", "catalog.json"},
			expectedScanned:   1,
		},
		{
			name: "retained_content_is_untouched",
			entries: []string{
				"a/items/raw/deep.json",
				"a/items/items/x.json",
				"a/items/other.json",
			},
			retained:          []string{itemsName},
			expectedDeletions: [][2]string{},
			expectedTree: []string{
				"a/", "a/items/", "a/items/items/", "a/items/items/x.json",
				"a/items/other.json", "a/items/raw/", "a/items/raw/deep.json",
			},
			expectedScanned: 1,
		},
		{
			name: "lexicographic_order_across_collections",
			entries: []string{
				"zeta/b/", "zeta/a/",
				"alpha/y/", "alpha/x/", "alpha/items/",
			},
			retained: []string{itemsName},
			expectedDeletions: [][2]string{
				{"alpha", "alpha/x"}, {"alpha", "alpha/y"},
				{"zeta", "zeta/a"}, {"zeta", "zeta/b"},
			},
			expectedTree:    []string{"alpha/", "alpha/items/", "zeta/"},
			expectedScanned: 2,
		},
		{
			name:              "matching_is_case_sensitive",
			entries:           []string{"a/Items/", "a/items/"},
			retained:          []string{itemsName},
			expectedDeletions: [][2]string{{"a", "a/Items"}},
			expectedTree:      []string{"a/", "a/items/"},
			expectedScanned:   1,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			root := t.TempDir()
			buildTree(t, root, testCase.entries...)

			report, err := prune.Prune(context.Background(), root, testCase.retained, prune.Options{})
			if err != nil {
				t.Fatalf("Prune error: %v", err)
			}
			if !report.Succeeded() {
				t.Fatalf("expected success, got failures %v", report.Failures)
			}
			if report.Collections != testCase.expectedScanned {
				t.Fatalf("expected %d collections, got %d", testCase.expectedScanned, report.Collections)
			}
			if got := deletionPairs(root, report); !reflect.DeepEqual(got, testCase.expectedDeletions) {
				t.Fatalf("deletions = %v, want %v", got, testCase.expectedDeletions)
			}
			if got := snapshot(t, root); !reflect.DeepEqual(got, testCase.expectedTree) {
				t.Fatalf("tree = %v, want %v", got, testCase.expectedTree)
			}
		})
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, "a/items/x.json", "a/raw/", "a/tmp/y", "b/junk/")

	first, err := prune.Prune(context.Background(), root, []string{itemsName}, prune.Options{})
	if err != nil {
		t.Fatalf("first Prune error: %v", err)
	}
	if len(first.Deletions) != 3 {
		t.Fatalf("expected 3 deletions on first run, got %d", len(first.Deletions))
	}
	before := snapshot(t, root)

	second, err := prune.Prune(context.Background(), root, []string{itemsName}, prune.Options{})
	if err != nil {
		t.Fatalf("second Prune error: %v", err)
	}
	if len(second.Deletions) != 0 {
		t.Fatalf("expected empty report on second run, got %v", second.Deletions)
	}
	if after := snapshot(t, root); !reflect.DeepEqual(before, after) {
		t.Fatalf("second run changed tree: %v -> %v", before, after)
	}
}

func TestPruneRootNotFound(t *testing.T) {
	parent := t.TempDir()
	buildTree(t, parent, "sibling/raw/", "file.txt")
	before := snapshot(t, parent)

	testCases := []struct {
		name string
		root string
	}{
		{name: "missing", root: filepath.Join(parent, "release", "v1")},
		{name: "not_a_directory", root: filepath.Join(parent, "file.txt")},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			removeCalls := 0
			options := prune.Options{Remove: func(string) error {
				removeCalls++
				return nil
			}}
			report, err := prune.Prune(context.Background(), testCase.root, []string{itemsName}, options)
			if !errors.Is(err, prune.ErrRootNotFound) {
				t.Fatalf("expected ErrRootNotFound, got %v", err)
			}
			var rootError *prune.RootNotFoundError
			if !errors.As(err, &rootError) {
				t.Fatalf("expected *RootNotFoundError, got %T", err)
			}
			if len(report.Deletions) != 0 || removeCalls != 0 {
				t.Fatalf("expected no deletions, got %d (remove calls %d)", len(report.Deletions), removeCalls)
			}
			if after := snapshot(t, parent); !reflect.DeepEqual(before, after) {
				t.Fatalf("file system changed: %v -> %v", before, after)
			}
		})
	}
}

func TestPruneRejectsInvalidRetainedNames(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, "a/raw/")

	testCases := []struct {
		name     string
		retained []string
		sentinel error
	}{
		{name: "nil", retained: nil, sentinel: prune.ErrNoRetainedNames},
		{name: "blank", retained: []string{" ", ""}, sentinel: prune.ErrNoRetainedNames},
		{name: "separator", retained: []string{"items/raw"}},
		{name: "parent", retained: []string{".."}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := prune.Prune(context.Background(), root, testCase.retained, prune.Options{})
			if err == nil {
				t.Fatalf("expected error for %v", testCase.retained)
			}
			if testCase.sentinel != nil && !errors.Is(err, testCase.sentinel) {
				t.Fatalf("expected %v, got %v", testCase.sentinel, err)
			}
			if _, statErr := os.Stat(filepath.Join(root, "a", "raw")); statErr != nil {
				t.Fatalf("expected a/raw to survive: %v", statErr)
			}
		})
	}
}

func TestPruneDeleteFailureAbortsCollectionAndContinues(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root,
		"a/aaa/x", "a/items/", "a/raw/y", "a/zzz/z",
		"b/items/", "b/junk/w",
	)
	failingPath := filepath.Join(root, "a", "raw")
	removeFailure := errors.New("permission denied")
	options := prune.Options{Remove: func(path string) error {
		if path == failingPath {
			return removeFailure
		}
		return os.RemoveAll(path)
	}}

	report, err := prune.Prune(context.Background(), root, []string{itemsName}, options)
	if err == nil {
		t.Fatalf("expected delete failure")
	}
	if !errors.Is(err, prune.ErrDeleteFailed) {
		t.Fatalf("expected ErrDeleteFailed, got %v", err)
	}
	if !errors.Is(err, removeFailure) {
		t.Fatalf("expected underlying cause in chain, got %v", err)
	}
	var deleteError *prune.DeleteFailedError
	if !errors.As(err, &deleteError) {
		t.Fatalf("expected *DeleteFailedError, got %T", err)
	}
	if deleteError.Path != failingPath || deleteError.Collection != "a" {
		t.Fatalf("unexpected failure details: %+v", deleteError)
	}

	expectedDeletions := [][2]string{{"a", "a/aaa"}, {"b", "b/junk"}}
	if got := deletionPairs(root, report); !reflect.DeepEqual(got, expectedDeletions) {
		t.Fatalf("deletions = %v, want %v", got, expectedDeletions)
	}
	if report.Succeeded() || len(report.Failures) != 1 {
		t.Fatalf("expected exactly one recorded failure, got %v", report.Failures)
	}
	expectedTree := []string{
		"a/", "a/items/", "a/raw/", "a/raw/y", "a/zzz/", "a/zzz/z",
		"b/", "b/items/",
	}
	if got := snapshot(t, root); !reflect.DeepEqual(got, expectedTree) {
		t.Fatalf("tree = %v, want %v", got, expectedTree)
	}
}

func TestPruneDryRunDeletesNothing(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, "a/items/", "a/raw/x", "b/old/")
	before := snapshot(t, root)

	report, err := prune.Prune(context.Background(), root, []string{itemsName}, prune.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if !report.DryRun {
		t.Fatalf("expected dry-run report")
	}
	expectedDeletions := [][2]string{{"a", "a/raw"}, {"b", "b/old"}}
	if got := deletionPairs(root, report); !reflect.DeepEqual(got, expectedDeletions) {
		t.Fatalf("planned deletions = %v, want %v", got, expectedDeletions)
	}
	if after := snapshot(t, root); !reflect.DeepEqual(before, after) {
		t.Fatalf("dry run changed tree: %v -> %v", before, after)
	}
}

func TestPruneCancellationStopsBetweenDeletions(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, "a/first/x", "a/second/y", "b/third/")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	options := prune.Options{Remove: func(path string) error {
		removeErr := os.RemoveAll(path)
		cancel()
		return removeErr
	}}

	report, err := prune.Prune(ctx, root, []string{itemsName}, options)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	expectedDeletions := [][2]string{{"a", "a/first"}}
	if got := deletionPairs(root, report); !reflect.DeepEqual(got, expectedDeletions) {
		t.Fatalf("deletions = %v, want %v", got, expectedDeletions)
	}
	expectedTree := []string{"a/", "a/second/", "a/second/y", "b/", "b/third/"}
	if got := snapshot(t, root); !reflect.DeepEqual(got, expectedTree) {
		t.Fatalf("tree = %v, want %v", got, expectedTree)
	}
	if report.Succeeded() {
		t.Fatalf("an interrupted run must not report success")
	}
	expectedFailure := prune.Failure{Collection: "a", Path: filepath.Join(root, "a", "second"), Reason: context.Canceled.Error()}
	if len(report.Failures) != 1 || report.Failures[0] != expectedFailure {
		t.Fatalf("failures = %+v, want [%+v]", report.Failures, expectedFailure)
	}
}

func TestPruneCanceledBeforeStart(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, "a/raw/")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := prune.Prune(ctx, root, []string{itemsName}, prune.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(report.Deletions) != 0 {
		t.Fatalf("expected no deletions, got %v", report.Deletions)
	}
	if report.Succeeded() || len(report.Failures) != 1 || report.Failures[0].Collection != "a" {
		t.Fatalf("expected the interruption to be recorded against collection a, got %+v", report.Failures)
	}
}

func TestPruneLeavesSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	buildTree(t, outside, "target/keep.json")
	buildTree(t, root, "a/items/")
	linkPath := filepath.Join(root, "a", "linked")
	if err := os.Symlink(filepath.Join(outside, "target"), linkPath); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	report, err := prune.Prune(context.Background(), root, []string{itemsName}, prune.Options{})
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if len(report.Deletions) != 0 {
		t.Fatalf("expected symlink to be left alone, got %v", report.Deletions)
	}
	if _, statErr := os.Stat(filepath.Join(outside, "target", "keep.json")); statErr != nil {
		t.Fatalf("symlink target content was touched: %v", statErr)
	}
}

func TestPruneLogsEveryDeletionAttempt(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, "gcts/items/", "gcts/raw/", "gctr/tmp/", "gctr/items/")
	core, logs := observer.New(zapcore.InfoLevel)

	report, err := prune.Prune(context.Background(), root, []string{itemsName}, prune.Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if len(report.Deletions) != 2 {
		t.Fatalf("expected 2 deletions, got %+v", report.Deletions)
	}

	attempts := logs.FilterMessage("deleting").All()
	if len(attempts) != 2 {
		t.Fatalf("expected 2 deletion log lines, got %d", len(attempts))
	}
	expected := []string{"gctr/tmp", "gcts/raw"}
	for index, entry := range attempts {
		if path := entry.ContextMap()["path"]; path != expected[index] {
			t.Fatalf("log line %d: expected path %s, got %v", index, expected[index], path)
		}
	}
}
