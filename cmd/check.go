package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

var checkStats bool

var checkCmd = &cobra.Command{
	Use:          "check [files...]",
	Short:        "Compile script files and report diagnostics",
	Long:         `Compile one or more Groovy script files through the configured workers and print their diagnostics.`,
	Args:         cobra.MinimumNArgs(1),
	RunE:         runCheck,
	SilenceUsage: true,
}

func init() {
	checkCmd.Flags().BoolVar(&checkStats, "stats", false, "Print cache statistics after compiling")
}

func runCheck(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(cmd, false)
	if err != nil {
		return err
	}
	defer svc.close()

	provider := source.NewFileProvider()
	failed := 0

	for _, file := range args {
		key := source.KeyFor(file)

		content, ok := provider.ReadContent(key)
		if !ok {
			return fmt.Errorf("cannot read %s", file)
		}

		result, err := svc.orchestrator.Compile(cmd.Context(), key, content, parse.PhaseCanonicalization)
		if err != nil {
			return err
		}

		printDiagnostics(file, result.Diagnostics)

		if !result.Successful() {
			failed++
		}
	}

	if checkStats {
		stats := svc.orchestrator.Stats()
		fmt.Printf("cached results: %d, active compilations: %d\n",
			stats.CachedResults, stats.ActiveCompilations)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to compile", failed, len(args))
	}

	return nil
}

func printDiagnostics(file string, diagnostics []parse.Diagnostic) {
	for _, d := range diagnostics {
		label := severityLabel(d.Severity)
		fmt.Printf("%s:%d:%d: %s: %s\n",
			file, d.Range.Start.Line+1, d.Range.Start.Column+1, label, d.Message)
	}
}

func severityLabel(s parse.Severity) string {
	switch s {
	case parse.SeverityError:
		return color.RedString("error")
	case parse.SeverityWarning:
		return color.YellowString("warning")
	default:
		return color.CyanString(s.String())
	}
}
