// SPDX-License-Identifier: MPL-2.0

// Package descriptor classifies a resolved package directory as a Magento
// module, a PHP library, or a composer metapackage, and derives the name and
// install path used when archiving it.
//
// Classification runs ordered, short-circuiting checks:
//
//  1. metapackage: composer.json declares type "metapackage"
//  2. library: composer.json declares type "library" with a psr-4 map
//  3. module: etc/module.xml declares a module name
//
// A check that cannot read or parse its descriptor falls through to the
// next; a directory matching none of them yields a *NotFoundError.
package descriptor

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"magepack/pkg/composer"
)

// Format selects the install-path convention for archived files.
type Format int

const (
	// FormatMagento lays files out the way a Magento installation does:
	// modules under app/code/<Vendor>/<Module>, libraries under lib/.
	// Metapackages carry no installable files and are skipped.
	FormatMagento Format = iota

	// FormatComposer keeps every package's own relative layout, suitable
	// for redistribution through a composer artifact repository.
	FormatComposer
)

// String returns the CLI-facing name of the format.
func (f Format) String() string {
	if f == FormatComposer {
		return "composer"
	}
	return "magento"
}

// Kind is the tagged classification of a package directory.
type Kind int

const (
	// KindModule is a Magento module (has etc/module.xml).
	KindModule Kind = iota
	// KindLibrary is a plain PHP library with a psr-4 autoload map.
	KindLibrary
	// KindMetapackage is a composer metapackage with no files of its own.
	KindMetapackage
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindMetapackage:
		return "metapackage"
	default:
		return "module"
	}
}

// Descriptor is the classification result for one resolved path.
type Descriptor struct {
	// Kind is the package classification.
	Kind Kind
	// Name is the derived package name (e.g. "Acme_Foo", "Bar", "acme-meta").
	Name string
	// InstallPath is the in-archive prefix for the package's files. Empty
	// for the composer format and for metapackages: files then keep their
	// path relative to the package root.
	InstallPath string
	// Warning is a non-fatal note attached to the classification (e.g.
	// libraries requiring manual autoloader registration).
	Warning string
}

// Bundles reports whether this descriptor contributes archive content under
// the given format. Only metapackages under the Magento layout are excluded:
// they group other packages and have nothing to install.
func (d *Descriptor) Bundles(format Format) bool {
	return !(d.Kind == KindMetapackage && format == FormatMagento)
}

// NotFoundError reports a resolved path that matched none of the known
// descriptors. It is fatal to the whole invocation.
type NotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no module found at path %s", e.Path)
}

// moduleConfig is the subset of etc/module.xml magepack reads.
type moduleConfig struct {
	XMLName xml.Name `xml:"config"`
	Module  struct {
		Name string `xml:"name,attr"`
	} `xml:"module"`
}

// Resolve classifies the package directory at path under the given format.
func Resolve(path string, format Format) (*Descriptor, error) {
	// Manifest read errors are not fatal: the metapackage and library
	// checks simply fail and classification falls through to module.xml.
	manifest, err := composer.LoadManifest(path)
	if err != nil {
		manifest = nil
	}

	if d := classifyMetapackage(manifest); d != nil {
		return d, nil
	}
	if d := classifyLibrary(manifest, format); d != nil {
		return d, nil
	}
	if d := classifyModule(path, manifest, format); d != nil {
		return d, nil
	}

	return nil, &NotFoundError{Path: path}
}

func classifyMetapackage(manifest *composer.Manifest) *Descriptor {
	if manifest == nil || manifest.Type != composer.TypeMetapackage {
		return nil
	}
	return &Descriptor{
		Kind: KindMetapackage,
		Name: composer.ShortName(manifest.Name),
	}
}

func classifyLibrary(manifest *composer.Manifest, format Format) *Descriptor {
	if manifest == nil || manifest.Type != composer.TypeLibrary || len(manifest.Autoload.PSR4) == 0 {
		return nil
	}

	// The first declared psr-4 prefix names the library.
	namespace := strings.TrimRight(manifest.Autoload.PSR4[0].Prefix, `\`)
	name := lastSegment(namespace)

	if format == FormatComposer {
		return &Descriptor{
			Kind: KindLibrary,
			Name: composer.ShortName(manifest.Name),
		}
	}

	return &Descriptor{
		Kind:        KindLibrary,
		Name:        name,
		InstallPath: "lib/" + strings.ReplaceAll(namespace, `\`, "/"),
		Warning:     "library install paths under lib/ require manual autoloader registration",
	}
}

func classifyModule(path string, manifest *composer.Manifest, format Format) *Descriptor {
	data, err := os.ReadFile(filepath.Join(path, "etc", "module.xml"))
	if err != nil {
		return nil
	}

	var cfg moduleConfig
	if err := xml.Unmarshal(data, &cfg); err != nil || cfg.Module.Name == "" {
		return nil
	}

	// Declared as Vendor_Module; the underscore splits the install path.
	name := cfg.Module.Name

	if format == FormatComposer {
		// The composer package name wins when the sibling manifest has one.
		if manifest != nil && manifest.Name != "" {
			name = composer.ShortName(manifest.Name)
		}
		return &Descriptor{Kind: KindModule, Name: name}
	}

	installPath := "app/code/" + name
	if vendor, module, found := strings.Cut(name, "_"); found {
		installPath = "app/code/" + vendor + "/" + module
	}

	return &Descriptor{
		Kind:        KindModule,
		Name:        name,
		InstallPath: installPath,
	}
}

// lastSegment returns the last non-empty backslash-separated segment of a
// PHP namespace.
func lastSegment(namespace string) string {
	segments := strings.Split(namespace, `\`)
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return namespace
}
