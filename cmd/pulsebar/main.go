package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}
	root := &cobra.Command{
		Use:   "pulsebar",
		Short: "Status line generator for swaybar and i3bar",
		Long: `pulsebar refreshes a set of modules on their own schedules and streams
the i3bar JSON protocol to stdout. Clicks arrive on stdin.

Examples:
  pulsebar -c ~/.config/pulsebar/config.yaml
  pulsebar state -c ~/.config/pulsebar/config.yaml
  pulsebar modules`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBar(cmd, flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to config file (.json, .yaml, .toml)")

	root.AddCommand(
		createRunCommand(flags),
		createStateCommand(flags),
		createModulesCommand(),
		createVersionCommand(),
	)
	return root
}
