package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workersCmd = &cobra.Command{
	Use:          "workers",
	Short:        "List configured parse workers",
	RunE:         runWorkers,
	SilenceUsage: true,
}

func runWorkers(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(cmd, false)
	if err != nil {
		return err
	}
	defer svc.close()

	current := svc.router.Select(nil)

	for _, w := range svc.router.Workers() {
		marker := " "
		if w == current {
			marker = "*"
		}

		fmt.Printf("%s %-12s versions %-10s capabilities %v\n",
			marker, w.ID, w.Versions, w.Capabilities)
	}

	return nil
}
