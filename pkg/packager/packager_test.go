// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"magepack/pkg/bundle"
	"magepack/pkg/descriptor"
)

// writeVendorPackage creates vendor/<name> under base with the given files.
func writeVendorPackage(t *testing.T, base, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(base, "vendor", filepath.FromSlash(name))
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// writeModuleFixture creates a Magento module package declaring Acme_Foo.
func writeModuleFixture(t *testing.T, base string) {
	t.Helper()
	writeVendorPackage(t, base, "acme/module-foo", map[string]string{
		"composer.json":    `{"name": "acme/module-foo", "type": "magento2-module"}`,
		"registration.php": "<?php\n",
		"etc/module.xml": `<?xml version="1.0"?>
<config>
	<module name="Acme_Foo" setup_version="1.0.0"/>
</config>`,
	})
}

// writeLibraryFixture creates a PHP library package with one psr-4 prefix.
func writeLibraryFixture(t *testing.T, base string) {
	t.Helper()
	writeVendorPackage(t, base, "acme/bar", map[string]string{
		"composer.json": `{
			"name": "acme/bar",
			"type": "library",
			"autoload": {"psr-4": {"Acme\\Bar\\": "src/"}}
		}`,
		"src/Client.php": "<?php\n",
	})
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// archiveNames returns the sorted entry names of a ZIP archive.
func archiveNames(t *testing.T, archivePath string) []string {
	t.Helper()
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return names
}

func TestRunMagentoIndividual(t *testing.T) {
	base := t.TempDir()
	writeModuleFixture(t, base)
	writeLibraryFixture(t, base)
	outputDir := t.TempDir()

	records, err := Run(Options{
		BasePath:  base,
		Packages:  []string{"acme/*"},
		OutputDir: outputDir,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	// Glob expansion orders vendor/acme/bar before vendor/acme/module-foo.
	lib, mod := records[0], records[1]

	if !lib.Success || lib.Name != "Bar" {
		t.Errorf("library record = %+v", lib)
	}
	if lib.Message == "" {
		t.Error("library record has no autoloader warning")
	}
	if filepath.Base(lib.ArchivePath) != "Bar.zip" {
		t.Errorf("library archive = %q, want Bar.zip", lib.ArchivePath)
	}
	libNames := archiveNames(t, lib.ArchivePath)
	if !slices.Contains(libNames, "lib/Acme/Bar/src/Client.php") {
		t.Errorf("library archive entries = %v, want files under lib/Acme/Bar/", libNames)
	}

	if !mod.Success || mod.Name != "Acme_Foo" {
		t.Errorf("module record = %+v", mod)
	}
	if filepath.Base(mod.ArchivePath) != "Acme_Foo.zip" {
		t.Errorf("module archive = %q, want Acme_Foo.zip", mod.ArchivePath)
	}
	modNames := archiveNames(t, mod.ArchivePath)
	if !slices.Contains(modNames, "app/code/Acme/Foo/registration.php") {
		t.Errorf("module archive entries = %v, want files under app/code/Acme/Foo/", modNames)
	}
}

func TestRunComposerCombined(t *testing.T) {
	base := t.TempDir()
	writeModuleFixture(t, base)
	writeLibraryFixture(t, base)
	outputDir := t.TempDir()

	records, err := Run(Options{
		BasePath:  base,
		Packages:  []string{"acme/*"},
		OutputDir: outputDir,
		Mode:      bundle.ModeSingle,
		Format:    descriptor.FormatComposer,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if records[0].ArchivePath != records[1].ArchivePath {
		t.Fatalf("records point at different archives: %q vs %q",
			records[0].ArchivePath, records[1].ArchivePath)
	}
	combined := records[0].ArchivePath
	if !strings.HasPrefix(filepath.Base(combined), "magepack-") {
		t.Errorf("combined archive = %q, want generated magepack-*.zip", combined)
	}

	want := []string{"bar.zip", "module-foo.zip"}
	if got := archiveNames(t, combined); !slices.Equal(got, want) {
		t.Errorf("combined entries = %v, want %v", got, want)
	}

	// Only the combined archive remains in the output directory.
	dirEntries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirEntries) != 1 {
		t.Errorf("output dir holds %d files, want only the combined archive", len(dirEntries))
	}
}

func TestRunMetapackageSkipped(t *testing.T) {
	base := t.TempDir()
	writeModuleFixture(t, base)
	writeVendorPackage(t, base, "acme/meta-all", map[string]string{
		"composer.json": `{"name": "acme/meta-all", "type": "metapackage"}`,
	})
	outputDir := t.TempDir()

	records, err := Run(Options{
		BasePath:  base,
		Packages:  []string{"acme/meta-all", "acme/module-foo"},
		OutputDir: outputDir,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	meta := records[0]
	if !meta.Success {
		t.Errorf("metapackage record = %+v, want success", meta)
	}
	if meta.ArchivePath != "" {
		t.Errorf("metapackage ArchivePath = %q, want empty", meta.ArchivePath)
	}
	if !strings.Contains(meta.Message, "skipped") {
		t.Errorf("metapackage Message = %q, want a skip reason", meta.Message)
	}

	if filepath.Base(records[1].ArchivePath) != "Acme_Foo.zip" {
		t.Errorf("module archive = %q, want Acme_Foo.zip", records[1].ArchivePath)
	}
}

func TestRunUnresolvedSearchAborts(t *testing.T) {
	base := t.TempDir()
	writeModuleFixture(t, base)
	outputDir := t.TempDir()

	records, err := Run(Options{
		BasePath:  base,
		Packages:  []string{"acme/module-foo", "acme/missing"},
		OutputDir: outputDir,
		Logger:    quietLogger(),
	})

	var notFound *descriptor.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Run() error = %v, want *NotFoundError", err)
	}
	if notFound.Path != "acme/missing" {
		t.Errorf("NotFoundError.Path = %q, want the search string", notFound.Path)
	}

	// The already-classified record carries the batch failure.
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Success {
		t.Error("record reports success despite the aborted batch")
	}
	if records[0].ArchivePath != "" {
		t.Errorf("record ArchivePath = %q, want empty", records[0].ArchivePath)
	}

	// Nothing was archived.
	dirEntries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirEntries) != 0 {
		t.Errorf("output dir holds %d files, want none", len(dirEntries))
	}
}

func TestRunArchiveFailureFailsAllRecords(t *testing.T) {
	base := t.TempDir()
	writeModuleFixture(t, base)
	writeLibraryFixture(t, base)

	// A regular file where the output directory should be makes archiving
	// fail after classification succeeded.
	blocked := filepath.Join(t.TempDir(), "artifacts")
	if err := os.WriteFile(blocked, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := Run(Options{
		BasePath:  base,
		Packages:  []string{"acme/*"},
		OutputDir: blocked,
		Logger:    quietLogger(),
	})

	var createErr *bundle.CreateError
	if !errors.As(err, &createErr) {
		t.Fatalf("Run() error = %v, want *CreateError", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Success {
			t.Errorf("record %q reports success despite the failed batch", r.Name)
		}
		if r.Message != err.Error() {
			t.Errorf("record %q Message = %q, want the batch error", r.Name, r.Message)
		}
	}
}
