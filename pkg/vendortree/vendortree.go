// SPDX-License-Identifier: MPL-2.0

// Package vendortree expands user-supplied package search strings into
// concrete source directories inside a composer vendor tree.
//
// A search string may be:
//   - an absolute or relative filesystem path,
//   - a path relative to the base directory,
//   - a "vendor/package" composer name,
//   - any of the above containing glob wildcards (e.g. "acme/*",
//     "vendor-*", "*/module-payment*").
//
// Wildcard searches additionally consult composer.lock: metapackages are
// declared only in the lock file and never materialize under vendor/, so
// matching lock entries are synthesized as temporary package directories
// containing just a reconstructed composer.json.
package vendortree

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"magepack/pkg/composer"
)

// VendorDirName is the composer vendor directory name under the base path.
const VendorDirName = "vendor"

// Finder expands search strings against one base directory.
type Finder struct {
	// BasePath is the project root expected to contain a vendor/ tree
	// and, optionally, a composer.lock.
	BasePath string
}

// NewFinder creates a Finder for the given base path. An empty base path
// falls back to the current working directory.
func NewFinder(basePath string) (*Finder, error) {
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		basePath = wd
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	return &Finder{BasePath: abs}, nil
}

// HasVendorDir reports whether the base path contains a vendor directory.
// Its absence is a warning condition for callers, never an error here.
func (f *Finder) HasVendorDir() bool {
	info, err := os.Stat(filepath.Join(f.BasePath, VendorDirName))
	return err == nil && info.IsDir()
}

// HasWildcard reports whether a search string contains glob metacharacters.
func HasWildcard(search string) bool {
	return strings.ContainsAny(search, "*?[")
}

// Expand resolves a search string into the de-duplicated list of existing
// directories it designates, in candidate order. An empty result means
// nothing matched; the caller decides whether that is fatal.
func (f *Finder) Expand(search string) ([]string, error) {
	sep := string(os.PathSeparator)
	candidates := []string{
		search,
		filepath.Join(f.BasePath, strings.TrimLeft(search, sep+"/")),
		filepath.Join(f.BasePath, VendorDirName, filepath.FromSlash(search)),
	}
	if HasWildcard(search) {
		candidates = append(candidates,
			filepath.Join(f.BasePath, VendorDirName, "*", filepath.FromSlash(search)))
	}

	var paths []string
	for _, candidate := range candidates {
		if !HasWildcard(candidate) {
			if isDir(candidate) {
				abs, err := filepath.Abs(candidate)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve candidate path: %w", err)
				}
				paths = append(paths, abs)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(candidate)
		if err != nil {
			return nil, fmt.Errorf("invalid search pattern %q: %w", search, err)
		}
		for _, match := range matches {
			if !isDir(match) {
				continue
			}
			// Relative matches must normalize to absolute paths, or the
			// same directory reached through two candidates escapes dedupe.
			abs, err := filepath.Abs(match)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve candidate path: %w", err)
			}
			paths = append(paths, abs)
		}
	}

	if HasWildcard(search) {
		fromLock, err := f.expandFromLock(search)
		if err != nil {
			return nil, err
		}
		paths = append(paths, fromLock...)
	}

	return dedupe(paths), nil
}

// expandFromLock synthesizes package directories for locked metapackages
// whose names match the wildcard search.
func (f *Finder) expandFromLock(search string) ([]string, error) {
	lock, err := composer.LoadLockFile(f.BasePath)
	if err != nil {
		return nil, err
	}

	metas := lock.Metapackages()
	if len(metas) == 0 {
		return nil, nil
	}

	pattern, err := wildcardRegexp(search)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", search, err)
	}

	var paths []string
	var tmpDir string
	for _, meta := range metas {
		if !pattern.MatchString(meta.Name) {
			continue
		}
		if tmpDir == "" {
			tmpDir, err = os.MkdirTemp("", "magepack-meta-")
			if err != nil {
				return nil, fmt.Errorf("failed to create staging directory: %w", err)
			}
		}
		dir, err := composer.WriteSyntheticPackage(tmpDir, meta.Name)
		if err != nil {
			return nil, err
		}
		paths = append(paths, dir)
	}

	return paths, nil
}

// wildcardRegexp compiles a wildcard search into an anchored regexp.
// Translation is deliberately narrow: "*" becomes ".+" and "-" is escaped so
// it is not a pattern operator. Composer package names are lowercase
// alphanumerics plus "-", ".", "_" and "/", so no further escaping is done.
func wildcardRegexp(search string) (*regexp.Regexp, error) {
	expr := strings.ReplaceAll(search, "-", `\-`)
	expr = strings.ReplaceAll(expr, "*", ".+")
	return regexp.Compile("^" + expr + "$")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// dedupe removes duplicate paths preserving first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
