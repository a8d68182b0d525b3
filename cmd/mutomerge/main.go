package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mutostats/internal/cli"
)

// mutomerge combines result files of repeated simulation runs into one
func main() {
	inv, err := cli.ParseMerge(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.RunMerge(ctx, inv, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
