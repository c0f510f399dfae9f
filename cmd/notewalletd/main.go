package main

import (
	"fmt"
	"os"

	"github.com/ark-network/notewallet/internal/config"
	"github.com/ark-network/notewallet/internal/core/application"
	cli_interface "github.com/ark-network/notewallet/internal/interface/cli"
	log "github.com/sirupsen/logrus"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	newApp := func() (application.Service, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		log.Debugf("config: %s", cfg)
		return cfg.AppService(), nil
	}

	app := cli_interface.NewApp(newApp, os.Stdout)
	app.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
