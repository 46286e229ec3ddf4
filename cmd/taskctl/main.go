// Command taskctl manages your tasks from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"caseworker-tasks/internal/taskctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := taskctl.NewDispatcher(taskctl.Commands()).Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
