// SPDX-License-Identifier: MPL-2.0

// Package bundle builds the ZIP artifacts for a batch of resolved packages.
//
// Each entry's files are added with their source-root prefix replaced by the
// entry's install path, so an archive extracted over a Magento installation
// lands files where the layout expects them. The composer format instead
// keeps per-package relative layouts and folds all per-package archives into
// one combined artifact.
package bundle

import (
	"archive/zip"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"magepack/pkg/descriptor"
)

// Mode selects how many archives one batch produces.
type Mode int

const (
	// ModeIndividual writes one archive per entry, named after the entry.
	ModeIndividual Mode = iota
	// ModeSingle writes one shared archive with a generated name.
	ModeSingle
)

// String returns the CLI-facing name of the mode.
func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "individual"
}

// Entry is one package to archive.
type Entry struct {
	// SourcePath is the absolute directory holding the package's files.
	SourcePath string
	// InstallPath is the in-archive prefix replacing the source root.
	// Empty means files keep their path relative to the package root.
	InstallPath string
	// Name names the entry's archive in ModeIndividual.
	Name string
}

// Options configures one Build invocation.
type Options struct {
	// OutputDir receives the archives; created best-effort if missing.
	OutputDir string
	// Mode is the requested bundling behavior.
	Mode Mode
	// Format is the output layout; FormatComposer forces ModeIndividual
	// internally and adds a combine pass.
	Format descriptor.Format
}

// Report is the result of a successful Build.
type Report struct {
	// ArchivePaths holds each entry's final archive location, parallel to
	// the entries passed to Build.
	ArchivePaths []string
	// Notice is a non-fatal message for the caller (e.g. the requested
	// mode was downgraded). Empty when nothing noteworthy happened.
	Notice string
}

// CreateError reports an archive file that could not be opened for writing.
// It aborts the remaining archiving work.
type CreateError struct {
	Archive string
	Err     error
}

// Error implements the error interface.
func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to create archive %s: %v", e.Archive, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CreateError) Unwrap() error {
	return e.Err
}

// Build archives all entries according to the options and reports each
// entry's final archive location. The whole batch either succeeds or fails:
// a failed archive aborts the pass and the error applies to every entry.
func Build(entries []Entry, opts Options) (*Report, error) {
	report := &Report{ArchivePaths: make([]string, len(entries))}

	mode := opts.Mode
	if opts.Format == descriptor.FormatComposer && mode == ModeSingle {
		// Composer output always ends up as one combined artifact, so a
		// shared intermediate archive would be redundant.
		mode = ModeIndividual
		report.Notice = "composer output always produces one combined archive; building individual archives"
	}

	// Best-effort: a doomed output dir surfaces as a CreateError below.
	_ = os.MkdirAll(opts.OutputDir, 0755)

	if mode == ModeSingle {
		archivePath := filepath.Join(opts.OutputDir, generatedName()+".zip")
		if err := writeArchive(archivePath, entries); err != nil {
			return nil, err
		}
		for i := range entries {
			report.ArchivePaths[i] = archivePath
		}
	} else {
		for i, entry := range entries {
			archivePath := filepath.Join(opts.OutputDir, entry.Name+".zip")
			if err := writeArchive(archivePath, []Entry{entry}); err != nil {
				return nil, err
			}
			report.ArchivePaths[i] = archivePath
		}
	}

	if opts.Format == descriptor.FormatComposer {
		combined, err := combine(opts.OutputDir, report.ArchivePaths)
		if err != nil {
			return nil, err
		}
		for i := range report.ArchivePaths {
			report.ArchivePaths[i] = combined
		}
	}

	return report, nil
}

// generatedName returns a process-unique, time-based archive name for
// shared archives.
func generatedName() string {
	return fmt.Sprintf("magepack-%d", time.Now().UnixNano())
}

// writeArchive creates one ZIP at archivePath containing every entry's tree.
// On failure the partial archive is removed. Close errors are real failures:
// the central directory is flushed on close, so a discarded error would
// report a truncated archive as success.
func writeArchive(archivePath string, entries []Entry) error {
	zipFile, err := os.Create(archivePath)
	if err != nil {
		return &CreateError{Archive: archivePath, Err: err}
	}

	zipWriter := zip.NewWriter(zipFile)

	for _, entry := range entries {
		if err := addTree(zipWriter, entry); err != nil {
			zipWriter.Close()
			zipFile.Close()
			os.Remove(archivePath)
			return fmt.Errorf("failed to archive %s: %w", entry.SourcePath, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		zipFile.Close()
		os.Remove(archivePath)
		return fmt.Errorf("failed to finalize archive %s: %w", archivePath, err)
	}
	if err := zipFile.Close(); err != nil {
		os.Remove(archivePath)
		return fmt.Errorf("failed to finalize archive %s: %w", archivePath, err)
	}

	return nil
}

// addTree walks an entry's source tree depth-first (directories before their
// contents) and adds every file and directory to the open archive, remapping
// the source-root prefix to the entry's install path.
func addTree(zipWriter *zip.Writer, entry Entry) error {
	return filepath.WalkDir(entry.SourcePath, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		relPath, err := filepath.Rel(entry.SourcePath, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}

		zipPath := filepath.ToSlash(relPath)
		if entry.InstallPath != "" {
			zipPath = path.Join(filepath.ToSlash(entry.InstallPath), zipPath)
		}

		if d.IsDir() {
			if _, err := zipWriter.Create(zipPath + "/"); err != nil {
				return fmt.Errorf("failed to create directory entry: %w", err)
			}
			return nil
		}

		fileData, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", p, err)
		}

		fileInfo, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}

		header, err := zip.FileInfoHeader(fileInfo)
		if err != nil {
			return fmt.Errorf("failed to create file header: %w", err)
		}
		header.Name = zipPath
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create ZIP entry: %w", err)
		}

		if _, err := writer.Write(fileData); err != nil {
			return fmt.Errorf("failed to write file data: %w", err)
		}

		return nil
	})
}

// combine folds the per-package archives into one outer artifact, each added
// by its base filename, and deletes the intermediates.
func combine(outputDir string, archives []string) (string, error) {
	combinedPath := filepath.Join(outputDir, generatedName()+".zip")

	zipFile, err := os.Create(combinedPath)
	if err != nil {
		return "", &CreateError{Archive: combinedPath, Err: err}
	}

	zipWriter := zip.NewWriter(zipFile)

	seen := make(map[string]struct{}, len(archives))
	ordered := make([]string, 0, len(archives))
	for _, archive := range archives {
		if _, ok := seen[archive]; ok {
			continue
		}
		seen[archive] = struct{}{}
		ordered = append(ordered, archive)

		data, err := os.ReadFile(archive)
		if err != nil {
			zipWriter.Close()
			zipFile.Close()
			return "", fmt.Errorf("failed to read intermediate archive %s: %w", archive, err)
		}

		writer, err := zipWriter.Create(filepath.Base(archive))
		if err != nil {
			zipWriter.Close()
			zipFile.Close()
			return "", fmt.Errorf("failed to create ZIP entry: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			zipWriter.Close()
			zipFile.Close()
			return "", fmt.Errorf("failed to write intermediate archive: %w", err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		zipFile.Close()
		return "", fmt.Errorf("failed to finalize combined archive: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize combined archive: %w", err)
	}

	for _, archive := range ordered {
		if err := os.Remove(archive); err != nil {
			return "", fmt.Errorf("failed to remove intermediate archive %s: %w", archive, err)
		}
	}

	return combinedPath, nil
}
