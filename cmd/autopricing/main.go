// autopricing scores daily price recommendations for every (style, country)
// pair and exports them for the shop.
//
// Usage:
//
//	autopricing run --snapshot data/snapshot.yaml [--pages data/pages]
//	autopricing run --contexts data/contexts.json
//	autopricing assemble --snapshot data/snapshot.yaml --out contexts.json
//	autopricing schedule
//	autopricing policy
//	autopricing history [--style A-1 --country DE]
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "autopricing",
		Usage:   "Rule-based price recommendations from competitor and sales signals",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),

		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Value: cli.NewStringSlice(".env"),
				Usage: "Environment files to load before reading configuration",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error), overrides LOG_LEVEL",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Policy YAML, overrides AUTOPRICING_POLICY",
			},
			&cli.StringFlag{
				Name:  "settings",
				Usage: "Operator settings YAML, overrides AUTOPRICING_SETTINGS",
			},
			&cli.StringFlag{
				Name:  "rates",
				Usage: "Currency rates YAML, overrides AUTOPRICING_RATES",
			},
		},

		Commands: []*cli.Command{
			runCommand(),
			assembleCommand(),
			scheduleCommand(),
			policyCommand(),
			historyCommand(),
			backupCommand(),
		},
	}
}
