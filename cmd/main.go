package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// Version will be set at build time
var Version = "development"

func main() {
	// amounts documents carry plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	app := &cli.App{
		Name:    "sfi-bridge-bot",
		Usage:   "drive SingularityFinance testnet activity and rollup withdrawals",
		Version: Version,
		Flags:   globalFlags,
		Before:  setupLogging,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write the amounts config file",
				Flags:  []cli.Flag{autoFlag, forceFlag},
				Action: initAction,
			},
			{
				Name:   "run",
				Usage:  "run the default rollup workflow",
				Action: runAction,
			},
			{
				Name:   "prove",
				Usage:  "prove the most recent withdrawals of the account",
				Action: proveAction,
			},
			{
				Name:   "finalize",
				Usage:  "finalize the most recent withdrawals of the account",
				Action: finalizeAction,
			},
			{
				Name:   "bridge",
				Usage:  "initiate withdrawals to the settlement chain and register them",
				Flags:  []cli.Flag{timesFlag},
				Action: bridgeAction,
			},
		},
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}

	// there is no graceful stop, in-flight waits are abandoned
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal: %v\n", sig)
		os.Exit(130)
	}()

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool(debugFlag.Name) {
		level = slog.LevelDebug
	}

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level: level,
		}),
	))

	slog.Info("Starting sfi-bridge-bot ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	return nil
}
