// Package main provides chainstatetool, a command-line tool to exercise and inspect chain state stores.
//
// Usage:
//
//	chainstatetool simulate --blocks 50 --reorg-depth 3
//	chainstatetool inspect --store leveldb:///chainstate
package main

import (
	"os"

	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/ulogger"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	tSettings := settings.NewSettings()
	logger := ulogger.New("cstool", ulogger.WithLevel(tSettings.LogLevel), ulogger.WithLoggerType(tSettings.LoggerType))

	app := &cli.App{
		Name:  "chainstatetool",
		Usage: "Exercise and inspect chain state stores",
		Commands: []*cli.Command{
			{
				Name:  "simulate",
				Usage: "Feed generated blocks with random spends and a reorganization through a chain state daemon",
				Action: func(c *cli.Context) error {
					return simulate(c, logger, tSettings)
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "blocks",
						Usage: "Number of blocks on the initial chain",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "reorg-depth",
						Usage: "Number of blocks the competing chain replaces, 0 for no reorganization",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "spends",
						Usage: "Maximum number of spending transactions per block",
						Value: 5,
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Seed of the spend generator",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "Chain state store URL, overrides chainstate_store",
					},
					&cli.StringFlag{
						Name:  "headers",
						Usage: "Header store URL, overrides headers_store",
					},
				},
			},
			{
				Name:  "inspect",
				Usage: "Print the tip and counters of a chain state store",
				Action: func(c *cli.Context) error {
					return inspect(c, logger, tSettings)
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "store",
						Usage: "Chain state store URL, defaults to chainstate_store",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%v", err)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(append(data, '\n'))

	return err
}
