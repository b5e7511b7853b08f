package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardnew/fxc/cli"
	"github.com/ardnew/fxc/log"
)

func main() {
	// An interrupt ends the frame loop of run so profiles and the trace
	// summary are still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Run(ctx, func(code int) { stop(); os.Exit(code) }, os.Args[1:]...)

	stop()

	if err != nil {
		log.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
