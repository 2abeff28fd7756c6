package cmd

import (
	"fmt"
	"os"

	"github.com/cottand/rowfx/rowfx"
	"github.com/spf13/cobra"
)

var CheckCmd = &cobra.Command{
	Use:          "check program.yaml",
	Short:        "Report the effect errors of a program",
	RunE:         runCheck,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var checkFlags *commonFlags

func init() {
	checkFlags = addCommonFlags(CheckCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args[0])
	if err != nil {
		return err
	}
	checkFlags.applyLogging()
	settings, err := checkFlags.settings(cmd, t)
	if err != nil {
		return err
	}
	outcome, err := rowfx.Run(cmd.Context(), t.fsys, t.name, settings)
	if err != nil {
		return fmt.Errorf("could not infer %s: %w", t.path(), err)
	}
	r := newRenderer(os.Stdout)
	errs := r.diagnostics(outcome.Report)
	r.summary(outcome.Report, outcome.Cached)
	if errs > 0 {
		return fmt.Errorf("%d errors found in %s", errs, t.path())
	}
	return nil
}
