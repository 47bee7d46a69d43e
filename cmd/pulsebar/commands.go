package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pulsebar/internal/app"
	"pulsebar/internal/config"
	"pulsebar/internal/probes"
	"pulsebar/internal/storage"
	logx "pulsebar/pkg/logx"
)

func requireConfig(flags *GlobalFlags) error {
	if flags.ConfigPath == "" {
		return errors.New("--config is required")
	}
	return nil
}

func createRunCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bar (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBar(cmd, flags)
		},
	}
}

func runBar(cmd *cobra.Command, flags *GlobalFlags) error {
	if err := requireConfig(flags); err != nil {
		return err
	}
	path := config.ExpandPath(flags.ConfigPath)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(path)
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("fatal start: %w", err)
	}

	reason := app.StopSIGTERM
	select {
	case <-ctx.Done():
	case <-a.Done():
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	return a.Err()
}

func createStateCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print persisted module state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireConfig(flags); err != nil {
				return err
			}
			cfg, err := config.NewConfigManager(config.ExpandPath(flags.ConfigPath)).Parse()
			if err != nil {
				return err
			}
			log := logx.NewConsole("warn")

			snap := storage.Snapshot{}
			st, err := storage.Open(storage.Config{
				Driver:      cfg.Persist.Driver,
				Path:        cfg.Persist.Path,
				BusyTimeout: cfg.Persist.BusyTimeout.Std(),
			}, log)
			switch {
			case err == nil:
				defer st.Close()
				snap = storage.LoadOrEmpty(cmd.Context(), st, log)
			case !errors.Is(err, storage.ErrDisabled):
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(snap)
		},
	}
}

func createModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List built-in module kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, k := range probes.NewRegistry().Kinds() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "pulsebar", version)
		},
	}
}
