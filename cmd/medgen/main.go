// Package main provides the medgen CLI: warehouse lookups, NCBI variant
// reports and schema migrations from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	// Version is set by build flags
	Version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := getRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
