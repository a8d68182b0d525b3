package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mutostats/internal/cli"
)

// mutostats turns result files into series for plotting and comparison
func main() {
	inv, err := cli.ParseStats(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.RunStats(ctx, inv, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
