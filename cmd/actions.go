package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sfi-network/sfi-bridge-bot/config"
	"github.com/sfi-network/sfi-bridge-bot/scheduler"
)

var errInteractiveInit = errors.New("interactive setup is not supported, use --auto")

func initAction(c *cli.Context) error {
	env, err := config.LoadEnv(c.StringSlice(envFileFlag.Name)...)
	if err != nil {
		return err
	}
	if !c.Bool(autoFlag.Name) {
		return errInteractiveInit
	}

	if _, err := os.Stat(env.ConfigFile); err == nil && !c.Bool(forceFlag.Name) {
		return fmt.Errorf("config file %s already exists, use --force to overwrite", env.ConfigFile)
	}

	if err := config.Defaults().Save(env.ConfigFile); err != nil {
		return err
	}
	slog.Info("Config file written", "path", env.ConfigFile)
	return nil
}

func runAction(c *cli.Context) error {
	return runSteps(c, func(b *bot, cfg *config.Config) []scheduler.Step {
		return defaultSteps(b.operator, cfg)
	})
}

func proveAction(c *cli.Context) error {
	return runSteps(c, func(b *bot, _ *config.Config) []scheduler.Step { return proveSteps(b.machine) })
}

func finalizeAction(c *cli.Context) error {
	return runSteps(c, func(b *bot, _ *config.Config) []scheduler.Step { return finalizeSteps(b.machine) })
}

func bridgeAction(c *cli.Context) error {
	times := c.Int(timesFlag.Name)
	if times < 1 {
		return fmt.Errorf("--times must be at least 1, got %d", times)
	}
	return runSteps(c, func(b *bot, cfg *config.Config) []scheduler.Step {
		return bridgeSteps(b.machine, cfg.BridgeAmount, times)
	})
}

func runSteps(c *cli.Context, steps func(*bot, *config.Config) []scheduler.Step) error {
	env, cfg, err := loadRunConfig(c)
	if err != nil {
		return err
	}
	b, err := newBot(c.Context, env, slog.Default())
	if err != nil {
		return err
	}
	return b.run(c.Context, steps(b, cfg))
}

func loadRunConfig(c *cli.Context) (*config.Env, *config.Config, error) {
	env, err := config.LoadEnv(c.StringSlice(envFileFlag.Name)...)
	if err != nil {
		return nil, nil, err
	}
	if err := env.RequireKey(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(env.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	return env, cfg, nil
}
