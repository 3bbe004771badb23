package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groovy-tools/gls/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "gls",
	Short:        "Groovy language server backend",
	Long:         `Compilation cache, worker routing and symbol indexing for Groovy workspaces`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().String("language-version", "", "Language version used for worker selection (e.g. 3.0, 4.0)")
	rootCmd.PersistentFlags().StringSliceP("classpath", "c", []string{}, "Classpath entries handed to parse workers")
	rootCmd.PersistentFlags().StringSliceP("source-root", "r", []string{}, "Workspace script source roots")
	rootCmd.PersistentFlags().String("index-db", "", "Path of the persistent symbol index database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(watchCmd)
}
