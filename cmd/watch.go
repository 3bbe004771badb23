package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groovy-tools/gls/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:          "watch",
	Short:        "Index the workspace and keep it fresh as files change",
	Long:         `Bulk-index all workspace scripts, then watch the source roots and invalidate cached state whenever a script changes on disk.`,
	RunE:         runWatch,
	SilenceUsage: true,
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(cmd, true)
	if err != nil {
		return err
	}
	defer svc.close()

	keys := collectSources(svc.cfg.SourceRoots)
	if len(keys) > 0 {
		err := svc.index.IndexWorkspace(cmd.Context(), keys, func(indexed, total int) {
			fmt.Fprintf(os.Stderr, "\rIndexing %d/%d", indexed, total)
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
	}

	watcher, err := watch.New(svc.cfg.SourceRoots, svc.logger, svc.cache, svc.index)
	if err != nil {
		return err
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc.logger.Info("watching source roots", "roots", svc.cfg.SourceRoots)
	watcher.Run(ctx)

	return nil
}
