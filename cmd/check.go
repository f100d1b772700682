package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/internal/log"
	"github.com/cottand/tsz/project"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var CheckCmd = &cobra.Command{
	Use:          "check ./folder|program.yaml",
	Short:        "Type check programs and print their diagnostics",
	RunE:         runCheck,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

// logLevel is shared by the subcommands
var logLevel int

var (
	checkOverrides *[]string
	showTypes      *bool
	debugErrors    *bool
)

func init() {
	checkOverrides = CheckCmd.Flags().StringArrayP("option", "O", nil, "override a compiler option, as name=true|false")
	showTypes = CheckCmd.Flags().BoolP("types", "t", false, "print the declared types of top-level values")
	debugErrors = CheckCmd.Flags().Bool("debug-errors", false, "print where each diagnostic was raised")
	CheckCmd.Flags().IntVarP(&logLevel, "log-level", "l", int(slog.LevelError), "log level")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(logLevel))
	tserr.SetDebug(*debugErrors)

	overrides, err := parseOverrides(*checkOverrides)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	total, files := 0, 0
	for _, arg := range args {
		loaded, err := loadTarget(arg, project.LoadSettings{Overrides: overrides, Jobs: 1})
		if err != nil {
			return err
		}
		for _, prog := range loaded.Programs {
			for _, d := range prog.Diagnostics() {
				_, _ = fmt.Fprintln(out, d)
			}
			if *showTypes {
				_, _ = fmt.Fprint(out, prog.DisplayTypes())
			}
		}
		total += loaded.ErrorCount()
		files += len(loaded.Programs)
	}
	if total > 0 {
		return errors.Errorf("found %d errors in %d files", total, files)
	}
	return nil
}
