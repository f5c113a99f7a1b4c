package main

import "github.com/urfave/cli/v2"

var (
	envFileFlag = &cli.StringSliceFlag{
		Name:  "env-file",
		Usage: "dotenv files to load before reading the environment",
		Value: cli.NewStringSlice(".env"),
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "enable debug logging",
	}
	globalFlags = []cli.Flag{envFileFlag, debugFlag}

	autoFlag = &cli.BoolFlag{
		Name:    "auto",
		Aliases: []string{"a"},
		Usage:   "use the pre-defined amounts",
	}
	forceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite an existing config file",
	}
	timesFlag = &cli.IntFlag{
		Name:  "times",
		Usage: "number of successful withdrawals to initiate",
		Value: 1,
	}
)
