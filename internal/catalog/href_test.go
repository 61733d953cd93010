package catalog

import (
	"path/filepath"
	"testing"
)

func TestIsRemote(t *testing.T) {
	testCases := map[string]bool{
		"https://coclico.blob.core.windows.net/stac/v1/catalog.json": true,
		"s3://bucket/key.tif":      true,
		"./items/a.json":           false,
		"../catalog.json":          false,
		"/abs/path/collection.json": false,
		"C:/data/items/a.json":     false,
	}
	for href, expected := range testCases {
		if got := isRemote(href); got != expected {
			t.Fatalf("isRemote(%q) = %t, want %t", href, got, expected)
		}
	}
}

func TestRelativeHref(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "release", "v1")
	testCases := []struct {
		name     string
		from     string
		target   string
		expected string
	}{
		{name: "child", from: root, target: filepath.Join(root, "gcts", "collection.json"), expected: "./gcts/collection.json"},
		{name: "parent", from: filepath.Join(root, "gcts"), target: filepath.Join(root, "catalog.json"), expected: "../catalog.json"},
		{name: "grandparent", from: filepath.Join(root, "gcts", "items"), target: filepath.Join(root, "catalog.json"), expected: "../../catalog.json"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := relativeHref(testCase.from, testCase.target); got != testCase.expected {
				t.Fatalf("relativeHref = %q, want %q", got, testCase.expected)
			}
		})
	}
}

func TestRebaseHref(t *testing.T) {
	collectionDirectory := filepath.Join(string(filepath.Separator), "release", "v1", "gcts")
	oldDirectory := filepath.Join(collectionDirectory, "gcts-001")
	newDirectory := filepath.Join(collectionDirectory, "items")
	testCases := []struct {
		name     string
		href     string
		expected string
	}{
		{name: "sibling_file", href: "./data.parquet", expected: "../gcts-001/data.parquet"},
		{name: "bare_file", href: "data.parquet", expected: "../gcts-001/data.parquet"},
		{name: "up_one", href: "../collection.json", expected: "../collection.json"},
		{name: "remote", href: "https://example.org/a.tif", expected: "https://example.org/a.tif"},
		{name: "empty", href: "", expected: ""},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := rebaseHref(testCase.href, oldDirectory, newDirectory); got != testCase.expected {
				t.Fatalf("rebaseHref(%q) = %q, want %q", testCase.href, got, testCase.expected)
			}
		})
	}
}
