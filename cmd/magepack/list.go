// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"magepack/pkg/descriptor"
	"magepack/pkg/vendortree"
)

// listBasePath is the project root containing the vendor tree
var listBasePath string

// listCmd resolves and classifies packages without archiving anything
var listCmd = &cobra.Command{
	Use:   "list <pattern>...",
	Short: "Show what a package pattern resolves to",
	Long: `Resolve each pattern against the vendor tree and show how every match
would be classified and where its files would be installed, without
building any archives.

Examples:
  magepack list 'acme/*'
  magepack list vendor/acme/module-foo --base-path ./shop`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listBasePath, "base-path", "b", "", "project root containing the vendor tree (default: current directory)")
}

func runList(cmd *cobra.Command, args []string) error {
	basePath := cfg.BasePath
	if listBasePath != "" {
		basePath = listBasePath
	}

	finder, err := vendortree.NewFinder(basePath)
	if err != nil {
		return err
	}
	if !finder.HasVendorDir() {
		fmt.Println(warningIcon + " " + WarningStyle.Render("no vendor directory under ") + PathStyle.Render(finder.BasePath))
	}

	total := 0
	for _, pattern := range args {
		paths, err := finder.Expand(pattern)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Printf("%s %s matches nothing\n", warningIcon, PathStyle.Render(pattern))
			continue
		}

		for _, path := range paths {
			desc, err := descriptor.Resolve(path, descriptor.FormatMagento)
			if err != nil {
				fmt.Printf("%s %s (%s)\n", errorIcon, PathStyle.Render(path), "unrecognized")
				continue
			}
			total++

			install := desc.InstallPath
			if install == "" {
				install = "-"
			}
			fmt.Printf("%s %s  %s  %s\n",
				successIcon, desc.Name, SubtitleStyle.Render(desc.Kind.String()), PathStyle.Render(install))
		}
	}

	fmt.Printf("\n%s %d package(s)\n", infoIcon, total)
	return nil
}
