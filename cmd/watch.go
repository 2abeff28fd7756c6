package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cottand/rowfx/rowfx"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var WatchCmd = &cobra.Command{
	Use:          "watch program.yaml",
	Short:        "Check a program again every time it or its settings change",
	RunE:         runWatch,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var watchFlags *commonFlags

const watchDebounce = 100 * time.Millisecond

func init() {
	watchFlags = addCommonFlags(WatchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args[0])
	if err != nil {
		return err
	}
	watchFlags.applyLogging()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not start watching: %w", err)
	}
	defer w.Close()
	// editors often replace files instead of writing them, so watch the directory
	if err := w.Add(t.dir); err != nil {
		return fmt.Errorf("could not watch %s: %w", t.dir, err)
	}

	r := newRenderer(os.Stdout)
	check := func() {
		if err := watchOnce(cmd, t, r); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
	}
	check()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, t) {
				continue
			}
			debounce = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", t.dir, err)
		case <-debounce:
			debounce = nil
			check()
		}
	}
}

func relevant(ev fsnotify.Event, t *target) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	return name == t.name || name == rowfx.SettingsFile
}

func watchOnce(cmd *cobra.Command, t *target, r *renderer) error {
	settings, err := watchFlags.settings(cmd, t)
	if err != nil {
		return err
	}
	outcome, err := rowfx.Run(cmd.Context(), t.fsys, t.name, settings)
	if err != nil {
		return fmt.Errorf("could not infer %s: %w", t.path(), err)
	}
	r.diagnostics(outcome.Report)
	r.summary(outcome.Report, outcome.Cached)
	return nil
}
