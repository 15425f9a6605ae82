// SPDX-License-Identifier: MPL-2.0

// Package packager drives resolution, classification, and archiving for one
// bundling invocation and reports a per-package outcome record for each
// (search string, resolved path) pair in discovery order.
package packager

import (
	"github.com/charmbracelet/log"

	"magepack/pkg/bundle"
	"magepack/pkg/descriptor"
	"magepack/pkg/vendortree"
)

// Options are the inputs of one bundling invocation.
type Options struct {
	// BasePath is the project root expected to contain a vendor/ tree.
	BasePath string
	// Packages is the ordered list of search strings to resolve.
	Packages []string
	// OutputDir receives the archives.
	OutputDir string
	// Mode is the requested bundling behavior.
	Mode bundle.Mode
	// Format is the output layout.
	Format descriptor.Format
	// Logger receives warnings, notices, and debug detail. Defaults to
	// the package-level default logger when nil.
	Logger *log.Logger
}

// OutcomeRecord is the final state of one resolved package.
//
// Records are created pending while paths are classified and finalized in
// bulk after the single archiving pass: every record of an invocation shares
// one terminal state, because the batch is archived as a whole and a failure
// mid-pass leaves no per-entry result worth reporting.
type OutcomeRecord struct {
	// Key is the original search string that produced this record.
	Key string
	// ResolvedPath is the package source directory.
	ResolvedPath string
	// ArchivePath is the archive holding the package's files; empty for
	// skipped metapackages and for failed invocations.
	ArchivePath string
	// Name is the derived package name.
	Name string
	// Message carries warnings, skip reasons, or the batch failure.
	Message string
	// Success reports the batch outcome.
	Success bool
}

// Run resolves every search string, classifies each resolved path, archives
// the batch, and returns one record per (search string, resolved path) pair.
// Resolution and classification failures abort the whole invocation; the
// returned records then all carry the failure.
func Run(opts Options) ([]OutcomeRecord, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	finder, err := vendortree.NewFinder(opts.BasePath)
	if err != nil {
		return nil, err
	}
	if !finder.HasVendorDir() {
		logger.Warn("no vendor directory found under base path", "base", finder.BasePath)
	}

	var records []OutcomeRecord
	var entries []bundle.Entry
	// bundled maps each record index to its entry index, since skipped
	// metapackages produce a record but no archive entry.
	bundled := make(map[int]int)

	for _, search := range opts.Packages {
		paths, err := finder.Expand(search)
		if err != nil {
			return finalizeRecords(records, nil, err), err
		}
		if len(paths) == 0 {
			err := &descriptor.NotFoundError{Path: search}
			return finalizeRecords(records, nil, err), err
		}
		logger.Debug("expanded search", "search", search, "paths", len(paths))

		for _, path := range paths {
			desc, err := descriptor.Resolve(path, opts.Format)
			if err != nil {
				return finalizeRecords(records, nil, err), err
			}
			logger.Debug("classified package",
				"path", path, "kind", desc.Kind, "name", desc.Name, "install", desc.InstallPath)

			record := OutcomeRecord{
				Key:          search,
				ResolvedPath: path,
				Name:         desc.Name,
				Message:      desc.Warning,
			}

			if !desc.Bundles(opts.Format) {
				record.Message = "metapackage declares no installable files; skipped"
				records = append(records, record)
				continue
			}

			bundled[len(records)] = len(entries)
			records = append(records, record)
			entries = append(entries, bundle.Entry{
				SourcePath:  path,
				InstallPath: desc.InstallPath,
				Name:        desc.Name,
			})
		}
	}

	report, err := bundle.Build(entries, bundle.Options{
		OutputDir: opts.OutputDir,
		Mode:      opts.Mode,
		Format:    opts.Format,
	})
	if err != nil {
		return finalizeRecords(records, nil, err), err
	}
	if report.Notice != "" {
		logger.Info(report.Notice)
	}

	archives := make(map[int]string, len(bundled))
	for recordIdx, entryIdx := range bundled {
		archives[recordIdx] = report.ArchivePaths[entryIdx]
	}
	return finalizeRecords(records, archives, nil), nil
}

// finalizeRecords applies the batch's terminal state to every record,
// returning new record values rather than mutating in place. On success each
// bundled record receives its archive location; on failure every record
// carries the same error message.
func finalizeRecords(records []OutcomeRecord, archives map[int]string, batchErr error) []OutcomeRecord {
	out := make([]OutcomeRecord, len(records))
	for i, r := range records {
		if batchErr != nil {
			r.Success = false
			r.Message = batchErr.Error()
		} else {
			r.Success = true
			if archive, ok := archives[i]; ok {
				r.ArchivePath = archive
			}
		}
		out[i] = r
	}
	return out
}
