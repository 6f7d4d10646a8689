// Command pathminer searches interaction networks for active subnetworks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/pathminer/internal/cli"
	pmerrors "github.com/matzehuels/pathminer/pkg/errors"
)

// Exit statuses.
const (
	exitError       = 1
	exitUsage       = 2   // invalid input, config or flags
	exitInterrupted = 130 // 128 + SIGINT
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.New(os.Stderr, cli.LogInfo).RootCommand()
	root.SilenceErrors = true
	err := root.ExecuteContext(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", pmerrors.UserMessage(err))
	}
	cancel()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case pmerrors.Is(err, pmerrors.ErrCodeInvalidInput),
		pmerrors.Is(err, pmerrors.ErrCodeInvalidConfig),
		pmerrors.Is(err, pmerrors.ErrCodeInvalidFormula),
		pmerrors.Is(err, pmerrors.ErrCodeInvalidStrategy),
		pmerrors.Is(err, pmerrors.ErrCodeUnsupported):
		return exitUsage
	}
	return exitError
}
