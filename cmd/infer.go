package cmd

import (
	"fmt"
	"os"

	"github.com/cottand/rowfx/backend"
	"github.com/cottand/rowfx/rowfx"
	"github.com/spf13/cobra"
)

var InferCmd = &cobra.Command{
	Use:          "infer program.yaml",
	Short:        "Infer the effects of a program and write its report",
	RunE:         runInfer,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var (
	inferOutPath *string
	inferFlags   *commonFlags
)

func init() {
	inferOutPath = InferCmd.Flags().StringP("out", "o", "", "output path of the report (default: stdout)")
	inferFlags = addCommonFlags(InferCmd)
}

func runInfer(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args[0])
	if err != nil {
		return err
	}
	inferFlags.applyLogging()
	settings, err := inferFlags.settings(cmd, t)
	if err != nil {
		return err
	}
	outcome, err := rowfx.Run(cmd.Context(), t.fsys, t.name, settings)
	if err != nil {
		return fmt.Errorf("could not infer %s: %w", t.path(), err)
	}
	if err := writeReport(outcome.Report, *inferOutPath); err != nil {
		return err
	}
	// diagnostics are part of the report already when it goes to stdout
	if *inferOutPath != "" {
		newRenderer(os.Stderr).diagnostics(outcome.Report)
	}
	if outcome.Report.Failed {
		return fmt.Errorf("errors found during inference of %s", t.path())
	}
	return nil
}

func writeReport(report *backend.Report, outPath string) error {
	data, err := report.Marshal()
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}
