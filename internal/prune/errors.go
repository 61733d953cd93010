package prune

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotFound reports a release root that is missing or is not a directory.
	ErrRootNotFound = errors.New("release root not found")
	// ErrNoRetainedNames reports an empty retained name set.
	ErrNoRetainedNames = errors.New("retained name set is empty")
	// ErrDeleteFailed is matched by every DeleteFailedError.
	ErrDeleteFailed = errors.New("delete failed")
)

// RootNotFoundError carries the offending root path.
type RootNotFoundError struct {
	Path   string
	Reason string
}

func (rootError *RootNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrRootNotFound, rootError.Path, rootError.Reason)
}

// Is lets errors.Is match ErrRootNotFound.
func (rootError *RootNotFoundError) Is(target error) bool {
	return target == ErrRootNotFound
}

// DeleteFailedError describes a recursive delete that did not complete.
type DeleteFailedError struct {
	Collection string
	Path       string
	Cause      error
}

func (deleteError *DeleteFailedError) Error() string {
	return fmt.Sprintf("%s: collection %s: %s: %v", ErrDeleteFailed, deleteError.Collection, deleteError.Path, deleteError.Cause)
}

// Is lets errors.Is match ErrDeleteFailed.
func (deleteError *DeleteFailedError) Is(target error) bool {
	return target == ErrDeleteFailed
}

func (deleteError *DeleteFailedError) Unwrap() error {
	return deleteError.Cause
}
