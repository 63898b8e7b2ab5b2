package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/version"
)

func newDetailsCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "details <package> <version>",
		Short: "Show metadata for a package version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			srcs, err := sources()
			if err != nil {
				return err
			}

			name := nuget.NewPackageName(args[0])
			ver, err := version.Parse(args[1])
			if err != nil {
				return err
			}

			details, err := client.GetPackageDetails(cmd.Context(), force, srcs, name, ver)
			if err != nil {
				return err
			}

			_, _ = packageColor.Printf("%s %s\n", details.Name, ver.Normalize())
			fmt.Printf("  source:   %s\n", details.Source)
			fmt.Printf("  download: %s\n", details.DownloadLink)
			if details.LicenseURL != "" {
				fmt.Printf("  license:  %s\n", details.LicenseURL)
			}
			if details.Unlisted {
				fmt.Println("  unlisted: true")
			}
			if len(details.DirectDependencies) > 0 {
				fmt.Println("  dependencies:")
				for _, dep := range details.DirectDependencies {
					line := fmt.Sprintf("    %s %s", dep.Name, dep.Requirement)
					for _, r := range dep.Restrictions {
						line += " " + r.String()
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the metadata cache and sticky failure markers")
	return cmd
}
