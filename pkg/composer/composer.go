// SPDX-License-Identifier: MPL-2.0

// Package composer reads the composer on-disk formats magepack depends on:
// the per-package manifest (composer.json) and the dependency lock file
// (composer.lock). Only the fields relevant to classification and packaging
// are decoded; everything else is ignored.
package composer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ManifestFileName is the per-package manifest file name.
	ManifestFileName = "composer.json"

	// LockFileName is the dependency lock file name, expected at the base path.
	LockFileName = "composer.lock"

	// TypeMetapackage is the composer package type for packages that group
	// other packages and carry no source files of their own.
	TypeMetapackage = "metapackage"

	// TypeLibrary is the composer package type for plain PHP libraries.
	TypeLibrary = "library"
)

// PSR4Mapping is a single psr-4 autoload declaration: a namespace prefix
// mapped to a source directory.
type PSR4Mapping struct {
	Prefix string
	Path   string
}

// PSR4Map preserves the declaration order of the autoload.psr-4 object.
// The first declared namespace prefix determines a library's name, so the
// usual map[string]string decoding (which loses order) is not an option.
type PSR4Map []PSR4Mapping

// UnmarshalJSON decodes a JSON object into an ordered list of mappings using
// the token stream, keeping keys in declaration order.
func (m *PSR4Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("psr-4 autoload map must be a JSON object")
	}

	var out PSR4Map
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("psr-4 autoload map has a non-string key")
		}

		// Values may be a single path or an array of paths; only the
		// prefix matters for naming, so the first path is kept.
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var path string
		if err := json.Unmarshal(raw, &path); err != nil {
			var paths []string
			if err := json.Unmarshal(raw, &paths); err != nil {
				return fmt.Errorf("psr-4 mapping for %q has an unsupported value", key)
			}
			if len(paths) > 0 {
				path = paths[0]
			}
		}

		out = append(out, PSR4Mapping{Prefix: key, Path: path})
	}

	*m = out
	return nil
}

// Autoload holds the subset of a manifest's autoload section magepack reads.
type Autoload struct {
	PSR4 PSR4Map `json:"psr-4"`
}

// Manifest is the decoded composer.json of one package.
type Manifest struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Autoload Autoload `json:"autoload"`
}

// LoadManifest reads and decodes the composer.json inside dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return &m, nil
}

// ShortName returns the portion of a composer package name after the first
// "/" (the package segment of "vendor/package"). Names without a namespace
// segment are returned unchanged.
func ShortName(name string) string {
	if _, short, found := strings.Cut(name, "/"); found {
		return short
	}
	return name
}

// LockedPackage is one entry of the lock file's packages array.
type LockedPackage struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LockFile is the decoded composer.lock. Only the packages array is read.
type LockFile struct {
	Packages []LockedPackage `json:"packages"`
}

// LoadLockFile reads the composer.lock at the given base path. A missing
// lock file yields an empty lock rather than an error, mirroring a vendor
// tree that simply has no locked metapackages.
func LoadLockFile(basePath string) (*LockFile, error) {
	data, err := os.ReadFile(filepath.Join(basePath, LockFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &LockFile{}, nil
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	var l LockFile
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to decode lock file: %w", err)
	}

	return &l, nil
}

// Metapackages returns the lock entries whose type is "metapackage".
func (l *LockFile) Metapackages() []LockedPackage {
	var out []LockedPackage
	for _, p := range l.Packages {
		if p.Type == TypeMetapackage {
			out = append(out, p)
		}
	}
	return out
}

// WriteSyntheticPackage materializes a lock-only metapackage as a directory
// containing a reconstructed composer.json. Metapackages never exist under
// vendor/, so this is the only way to hand them to the classifier and the
// archiver like any other resolved path. The directory is keyed by the full
// "vendor/package" name: short names alone collide across vendors. Returns
// the package directory.
func WriteSyntheticPackage(parentDir, name string) (string, error) {
	dir := filepath.Join(parentDir, filepath.FromSlash(name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create synthetic package directory: %w", err)
	}

	manifest := struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}{Name: name, Type: TypeMetapackage}
	data, err := json.MarshalIndent(&manifest, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode synthetic manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write synthetic manifest: %w", err)
	}

	return dir, nil
}
