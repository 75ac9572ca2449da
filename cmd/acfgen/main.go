// Package main provides the entry point for the acfgen CLI, which writes Steam
// appmanifest files from SteamCMD app info.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
