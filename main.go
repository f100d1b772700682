//go:build !(js || wasm)

package main

import (
	"os"

	"github.com/cottand/tsz/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "tsz [subcommand]",
	Short:        "tsz checks TypeScript programs against the assignability and inference rules of tsc",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.CheckCmd)
	rootCmd.AddCommand(cmd.ConformanceCmd)
}
