package utils_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/temirov/stacrelease/internal/utils"
)

// itemsDirectoryName is the retained child name used by the default layout.
const itemsDirectoryName = "items"

func TestDeduplicateNames(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "empty", input: nil, expected: []string{}},
		{name: "keeps_order", input: []string{"items", "raw", "items"}, expected: []string{"items", "raw"}},
		{name: "drops_blank", input: []string{" ", itemsDirectoryName, ""}, expected: []string{itemsDirectoryName}},
		{name: "trims", input: []string{" items ", "items"}, expected: []string{itemsDirectoryName}},
		{name: "case_sensitive", input: []string{"items", "Items"}, expected: []string{"items", "Items"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := utils.DeduplicateNames(testCase.input)
			if !reflect.DeepEqual(result, testCase.expected) {
				t.Fatalf("DeduplicateNames(%v) = %v, want %v", testCase.input, result, testCase.expected)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expectError bool
	}{
		{name: "plain", input: itemsDirectoryName, expectError: false},
		{name: "dotted", input: "items.v2", expectError: false},
		{name: "empty", input: "", expectError: true},
		{name: "dot", input: ".", expectError: true},
		{name: "dotdot", input: "..", expectError: true},
		{name: "slash", input: "a/b", expectError: true},
		{name: "backslash", input: `a\b`, expectError: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := utils.ValidateName(testCase.input)
			if (err != nil) != testCase.expectError {
				t.Fatalf("ValidateName(%q) error = %v, expectError %t", testCase.input, err, testCase.expectError)
			}
		})
	}
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()
	testCases := []struct {
		name        string
		parts       []string
		expected    string
		expectError bool
	}{
		{name: "nested", parts: []string{"gcts", "raw"}, expected: filepath.Join(root, "gcts", "raw")},
		{name: "root_itself", parts: []string{"."}, expectError: true},
		{name: "escape", parts: []string{"..", "outside"}, expectError: true},
		{name: "escape_nested", parts: []string{"gcts", "..", "..", "x"}, expectError: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			joined, err := utils.SafeJoin(root, testCase.parts...)
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected error for %v, got %s", testCase.parts, joined)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafeJoin error: %v", err)
			}
			if joined != testCase.expected {
				t.Fatalf("SafeJoin = %s, want %s", joined, testCase.expected)
			}
		})
	}
}

func TestRelativePathOrSelf(t *testing.T) {
	root := t.TempDir()
	if relative := utils.RelativePathOrSelf(root, root); relative != "." {
		t.Fatalf("expected '.', got %q", relative)
	}
	nested := filepath.Join(root, "gcts", "raw")
	if relative := utils.RelativePathOrSelf(nested, root); relative != "gcts/raw" {
		t.Fatalf("expected gcts/raw, got %q", relative)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, levelName := range []string{"", "debug", "INFO", "warn", "warning", "error"} {
		if _, err := utils.ParseLogLevel(levelName); err != nil {
			t.Fatalf("ParseLogLevel(%q) unexpected error: %v", levelName, err)
		}
	}
	if _, err := utils.ParseLogLevel("verbose"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
	if _, err := utils.NewLeveledLogger("loud"); err == nil {
		t.Fatalf("expected logger construction to fail for unsupported level")
	}
}
