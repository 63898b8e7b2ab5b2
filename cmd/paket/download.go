package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/version"
)

func newDownloadCommand() *cobra.Command {
	var (
		root                 string
		group                string
		includeVersionInPath bool
		force                bool
	)

	cmd := &cobra.Command{
		Use:   "download <package> <version>",
		Short: "Download a package and install it into the project",
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
			if len(srcs) != 1 {
				return fmt.Errorf("download needs exactly one --source")
			}
			remote, ok := srcs[0].(nuget.RemoteSource)
			if !ok {
				return fmt.Errorf("download needs a remote --source")
			}

			name := nuget.NewPackageName(args[0])
			ver, err := version.Parse(args[1])
			if err != nil {
				return err
			}

			target, err := client.DownloadPackage(cmd.Context(), root, remote.Auth, remote.URL,
				group, name, ver, includeVersionInPath, force)
			if err != nil {
				return err
			}

			_, _ = okColor.Printf("Installed %s %s into %s\n", name, ver.Normalize(), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "project root the package is installed under")
	cmd.Flags().StringVar(&group, "group", "", "dependency group subfolder")
	cmd.Flags().BoolVar(&includeVersionInPath, "include-version-in-path", false, "append the version to the install folder name")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "redownload and reinstall even when cached")
	return cmd
}
