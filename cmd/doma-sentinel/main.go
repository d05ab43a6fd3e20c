package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/web3tea/doma-sentinel/config"
	"github.com/web3tea/doma-sentinel/pkg/log"
)

var version = "0.1.0"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to a .toml, .yaml or .json config file",
	Sources: cli.EnvVars("DOMA_SENTINEL_CONFIG"),
}

func main() {
	cmd := &cli.Command{
		Name:    "doma-sentinel",
		Usage:   "Poll the Doma event feed and relay filtered domain listings",
		Version: version,
		Flags:   []cli.Flag{configFlag},
		Commands: []*cli.Command{
			runCmd,
			pollCmd,
			filterCmd,
			extractCmd,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// loadConfig reads the file named by --config, if any, plus .env and
// environment overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}
