package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yever/Paket/auth"
	"github.com/yever/Paket/core"
	"github.com/yever/Paket/nuget"
	"github.com/yever/Paket/observability"
)

var (
	flagSources  []string
	flagUsername string
	flagPassword string
	flagToken    string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "paket",
	Short:         "NuGet package acquisition",
	Long:          "Queries NuGet feeds for package versions and metadata, and downloads packages into a project.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&flagSources, "source", "s", nil,
		"package source (feed URL, v3 index.json, or local directory); repeatable")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", "", "feed username")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "feed password (prompted when username is set and this is empty)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "feed auth token")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose tracing")

	rootCmd.AddCommand(newVersionsCommand())
	rootCmd.AddCommand(newDetailsCommand())
	rootCmd.AddCommand(newDownloadCommand())
}

// newClient builds the acquisition client from the global flags.
func newClient() (*core.Client, error) {
	level := observability.WarnLevel
	if flagVerbose {
		level = observability.VerboseLevel
	}

	env, err := core.NewEnvironment(core.EnvironmentConfig{
		Logger: observability.NewLogger(os.Stderr, level),
	})
	if err != nil {
		return nil, err
	}
	return core.NewClient(env), nil
}

// credentials resolves the auth flags, prompting for a missing password.
func credentials() (auth.Credentials, error) {
	if flagToken != "" {
		return auth.NewToken(flagToken), nil
	}
	if flagUsername == "" {
		return nil, nil
	}

	password := flagPassword
	if password == "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", flagUsername)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	return auth.NewBasicCredentials(flagUsername, password), nil
}

// sources turns the --source flags into package sources.
func sources() ([]nuget.PackageSource, error) {
	if len(flagSources) == 0 {
		return nil, fmt.Errorf("at least one --source is required")
	}

	creds, err := credentials()
	if err != nil {
		return nil, err
	}

	out := make([]nuget.PackageSource, 0, len(flagSources))
	for _, s := range flagSources {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			out = append(out, nuget.RemoteSource{URL: s, Auth: creds})
			continue
		}
		out = append(out, nuget.LocalSource{Path: s})
	}
	return out, nil
}

var (
	packageColor = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
)
