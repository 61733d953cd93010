package catalog

import (
	"net/url"
	"path/filepath"
	"strings"
)

const (
	currentDirectoryPrefix = "./"
	parentDirectoryPrefix  = "../"
)

// isRemote reports whether href is a URL rather than a file path. Single-letter schemes are
// Windows drive letters.
func isRemote(href string) bool {
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	return len(parsed.Scheme) > 1
}

// resolveHref turns href into a local path relative to baseDirectory.
func resolveHref(baseDirectory, href string) string {
	if isRemote(href) {
		return href
	}
	localPath := filepath.FromSlash(href)
	if filepath.IsAbs(localPath) {
		return filepath.Clean(localPath)
	}
	return filepath.Join(baseDirectory, localPath)
}

// relativeHref expresses target relative to fromDirectory in the "./x" or "../x" form.
func relativeHref(fromDirectory, target string) string {
	relativePath, err := filepath.Rel(fromDirectory, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	slashed := filepath.ToSlash(relativePath)
	if strings.HasPrefix(slashed, parentDirectoryPrefix) {
		return slashed
	}
	return currentDirectoryPrefix + slashed
}

// rebaseHref rewrites a relative href written next to oldDirectory so it resolves to the same
// target from newDirectory. Remote and absolute hrefs are returned unchanged.
func rebaseHref(href, oldDirectory, newDirectory string) string {
	if href == "" || isRemote(href) || filepath.IsAbs(filepath.FromSlash(href)) {
		return href
	}
	return relativeHref(newDirectory, resolveHref(oldDirectory, href))
}
