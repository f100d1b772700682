package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/cottand/tsz/internal/log"
	"github.com/cottand/tsz/project"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var ConformanceCmd = &cobra.Command{
	Use:          "conformance ./folder",
	Short:        "Check fixtures against the diagnostics and types they expect",
	RunE:         runConformance,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var (
	jobs    *int
	verbose *bool
)

func init() {
	jobs = ConformanceCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "fixtures checked in parallel")
	verbose = ConformanceCmd.Flags().BoolP("verbose", "v", false, "print passing fixtures too")
	ConformanceCmd.Flags().IntVarP(&logLevel, "log-level", "l", int(slog.LevelError), "log level")
}

func runConformance(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(logLevel))

	loaded, err := loadTarget(args[0], project.LoadSettings{Jobs: *jobs})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, prog := range loaded.Programs {
		mismatches := prog.Mismatches()
		if len(mismatches) == 0 {
			if *verbose {
				_, _ = fmt.Fprintf(out, "PASS %s\n", prog.Fixture.Name)
			}
			continue
		}
		failed++
		_, _ = fmt.Fprintf(out, "FAIL %s (%s)\n", prog.Fixture.Name, prog.Path)
		for _, m := range mismatches {
			_, _ = fmt.Fprintf(out, "    %s\n", m)
		}
	}
	_, _ = fmt.Fprintf(out, "%d/%d fixtures passed\n", len(loaded.Programs)-failed, len(loaded.Programs))
	if failed > 0 {
		return errors.Errorf("%d fixtures failed", failed)
	}
	return nil
}
