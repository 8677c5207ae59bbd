package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/morozRed/swampmonster/internal/cli"
	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/events"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, codemodel.ErrNotFound):
		return 2
	case errors.Is(err, events.ErrCancelled):
		fmt.Fprintln(os.Stderr, "cancelled; no report written")
		return 130
	default:
		return 1
	}
}
