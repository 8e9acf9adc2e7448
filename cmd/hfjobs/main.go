// Command hfjobs runs jobs on the Hugging Face Hub and streams
// their logs.
//
//	hfjobs run [flags] <image> [flags] <command...>
//	hfjobs logs [-t] <job_id>
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
//
//nolint:gochecknoglobals // link-time variable
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	a := &app{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		getenv:  os.Getenv,
		version: version,
	}

	return newRootCmd(a).ExecuteContext(ctx) //nolint:wrapcheck // cobra errors are final
}
