package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached state",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show cache and index statistics",
	RunE:         runCacheStats,
	SilenceUsage: true,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Clear the compilation cache and the persistent symbol index",
	RunE:         runCacheClear,
	SilenceUsage: true,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(cmd, true)
	if err != nil {
		return err
	}
	defer svc.close()

	stats := svc.cache.Stats()
	fmt.Printf("cached results:      %d\n", stats.CachedResults)
	fmt.Printf("active compilations: %d\n", stats.ActiveCompilations)
	fmt.Printf("indexed files:       %d\n", svc.index.WorkspaceSize())

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(cmd, true)
	if err != nil {
		return err
	}
	defer svc.close()

	svc.cache.Clear()
	svc.index.Clear()

	fmt.Println("cache cleared")
	return nil
}
