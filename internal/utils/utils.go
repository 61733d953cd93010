// Package utils contains general helper functions used across stacrelease.
package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DeduplicateNames removes duplicate and blank names from a slice while preserving order.
// The first occurrence of each unique name is kept.
func DeduplicateNames(names []string) []string {
	encounteredNames := make(map[string]struct{})
	result := make([]string, 0, len(names))
	for _, name := range names {
		trimmedName := strings.TrimSpace(name)
		if trimmedName == "" {
			continue
		}
		if _, exists := encounteredNames[trimmedName]; !exists {
			encounteredNames[trimmedName] = struct{}{}
			result = append(result, trimmedName)
		}
	}
	return result
}

// RelativePathOrSelf calculates the relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	absolutePath, err := filepath.Abs(cleanPath)
	if err == nil {
		cleanPath = absolutePath
	}
	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// ValidateName checks that name is a single path segment: not empty, not "." or "..",
// and free of path separators.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	return nil
}

// SafeJoin joins root and parts and makes sure the result stays inside root.
func SafeJoin(root string, parts ...string) (string, error) {
	joinedPath := filepath.Join(append([]string{root}, parts...)...)
	cleanRoot := filepath.Clean(root)
	cleanPath := filepath.Clean(joinedPath)

	relativePath, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil {
		return "", err
	}
	slashedPath := filepath.ToSlash(relativePath)
	if slashedPath == "." || slashedPath == ".." || strings.HasPrefix(slashedPath, "../") {
		return "", fmt.Errorf("path %s escapes root %s", joinedPath, root)
	}
	return cleanPath, nil
}
