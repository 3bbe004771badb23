package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:          "index",
	Short:        "Bulk-index all workspace scripts",
	Long:         `Build the workspace-wide symbol index for every script under the configured source roots.`,
	RunE:         runIndex,
	SilenceUsage: true,
}

func runIndex(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(cmd, true)
	if err != nil {
		return err
	}
	defer svc.close()

	keys := collectSources(svc.cfg.SourceRoots)
	if len(keys) == 0 {
		fmt.Println("no script files found")
		return nil
	}

	err = svc.index.IndexWorkspace(cmd.Context(), keys, func(indexed, total int) {
		fmt.Fprintf(os.Stderr, "\rIndexing %d/%d", indexed, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	symbols := 0
	for _, si := range svc.index.AllSymbolIndices() {
		symbols += si.Len()
	}

	fmt.Printf("indexed %d files, %d symbols\n", len(keys), symbols)
	return nil
}
