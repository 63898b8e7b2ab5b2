package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yever/Paket/nuget"
)

func newVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <package>",
		Short: "List all versions of a package across the configured sources",
		Args:  cobra.ExactArgs(1),
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
			versions, err := client.GetVersions(cmd.Context(), srcs, name)
			if err != nil {
				return err
			}

			sort.Slice(versions, func(i, j int) bool {
				return versions[i].LessThan(versions[j])
			})

			_, _ = packageColor.Println(name)
			for _, v := range versions {
				fmt.Println("  " + v.Normalize())
			}
			return nil
		},
	}
}
