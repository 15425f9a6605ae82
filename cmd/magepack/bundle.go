// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"magepack/internal/issue"
	"magepack/pkg/bundle"
	"magepack/pkg/descriptor"
	"magepack/pkg/packager"
)

var (
	// bundleBasePath is the project root containing the vendor tree
	bundleBasePath string
	// bundleOutput is the directory receiving the archives
	bundleOutput string
	// bundleSingle puts all packages into one shared archive
	bundleSingle bool
	// bundleComposer selects the composer artifact layout
	bundleComposer bool
)

// bundleCmd resolves and archives the requested packages
var bundleCmd = &cobra.Command{
	Use:   "bundle <package>...",
	Short: "Resolve packages and build ZIP archives",
	Long: `Resolve each package argument against the vendor tree and build ZIP
archives from the matching sources.

A package argument may be a path, a composer "vendor/package" name, or a
wildcard pattern. Wildcard patterns also match metapackages that exist only
in composer.lock.

By default each package becomes its own archive laid out for a Magento
installation (modules under ` + PathStyle.Render("app/code/") + `, libraries under ` + PathStyle.Render("lib/") + `).

Examples:
  magepack bundle acme/module-foo
  magepack bundle 'acme/*' --base-path ./shop -o ./dist
  magepack bundle 'acme/*' --single
  magepack bundle 'acme/*' --composer`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().StringVarP(&bundleBasePath, "base-path", "b", "", "project root containing the vendor tree (default: current directory)")
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "output directory for archives (default: ./artifacts)")
	bundleCmd.Flags().BoolVar(&bundleSingle, "single", false, "bundle all packages into one archive")
	bundleCmd.Flags().BoolVar(&bundleComposer, "composer", false, "build a composer artifact archive instead of the Magento layout")
}

// bundleOptions merges flags over the loaded configuration.
func bundleOptions(packages []string) packager.Options {
	opts := packager.Options{
		BasePath:  cfg.BasePath,
		OutputDir: cfg.OutputDir,
		Packages:  packages,
		Logger:    log.Default(),
	}

	if cfg.Mode == "single" {
		opts.Mode = bundle.ModeSingle
	}
	if cfg.Format == "composer" {
		opts.Format = descriptor.FormatComposer
	}

	if bundleBasePath != "" {
		opts.BasePath = bundleBasePath
	}
	if bundleOutput != "" {
		opts.OutputDir = bundleOutput
	}
	if bundleSingle {
		opts.Mode = bundle.ModeSingle
	}
	if bundleComposer {
		opts.Format = descriptor.FormatComposer
	}

	return opts
}

func runBundle(cmd *cobra.Command, args []string) error {
	opts := bundleOptions(args)

	fmt.Println(TitleStyle.Render("Bundling packages"))
	fmt.Printf("%s Base path: %s\n", infoIcon, PathStyle.Render(opts.BasePath))
	fmt.Printf("%s Output: %s\n", infoIcon, PathStyle.Render(opts.OutputDir))
	fmt.Println()

	records, err := packager.Run(opts)
	printRecords(records)

	if err != nil {
		wrapped := issue.NewErrorContext().
			WithOperation("bundle packages").
			WithResource(opts.BasePath).
			WithSuggestion("Check that the base path contains a composer vendor/ tree").
			WithSuggestion("Use 'magepack list' to inspect what a pattern resolves to").
			Wrap(err).
			BuildError()
		fmt.Println(ErrorStyle.Render("Error: ") + formatErrorForDisplay(wrapped, verbose))
		return &ExitError{Code: 1, Err: wrapped}
	}

	fmt.Printf("\n%s Bundled %d package(s)\n", successIcon, len(records))
	return nil
}

// printRecords renders one result line per outcome record.
func printRecords(records []packager.OutcomeRecord) {
	for _, r := range records {
		icon := successIcon
		if !r.Success {
			icon = errorIcon
		}

		location := r.ArchivePath
		if location == "" {
			location = "-"
		}
		fmt.Printf("%s %s → %s\n", icon, r.Name, PathStyle.Render(location))

		if r.Message != "" {
			fmt.Printf("  %s %s\n", warningIcon, SubtitleStyle.Render(r.Message))
		}
	}
}
