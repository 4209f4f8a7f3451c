// Command scoper is the block-scoped variable interpreter CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thomasrohde/scoper/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
