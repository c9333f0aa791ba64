package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/GlebRadaev/wholesale/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx)
	cancel()
	os.Exit(code)
}
