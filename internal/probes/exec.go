package probes

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"pulsebar/internal/module"
)

// output runs a command bound to ctx and returns its stdout.
func output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	b, err := cmd.Output()
	if err != nil {
		return string(b), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(b), nil
}

// run is output without the stdout. A non-zero exit is ignored when
// tolerateExit is set (pkill exits 1 when nothing matched).
func run(ctx context.Context, tolerateExit bool, name string, args ...string) error {
	err := exec.CommandContext(ctx, name, args...).Run()
	var ee *exec.ExitError
	if tolerateExit && errors.As(err, &ee) {
		return nil
	}
	return err
}

// Spawn starts a detached process and reaps it in the background.
// GUI programs launched from clicks must outlive the click timeout.
func Spawn(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// CommandClick turns a configured argv into a click action.
func CommandClick(argv []string) module.ClickAction {
	if len(argv) == 0 {
		return module.NoopClick
	}
	argv = append([]string(nil), argv...)
	return func(context.Context) error {
		return Spawn(argv[0], argv[1:]...)
	}
}
