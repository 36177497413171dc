package cmd

import (
	"errors"
	"os"

	"github.com/achilleasa/voxray/config"
	"github.com/urfave/cli"
)

// Write the default render job config.
func InitConfig(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing config file argument")
	}
	path := ctx.Args().First()

	if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
		return errors.New("config file " + path + " already exists; use --force to overwrite it")
	}

	cfg := config.DefaultConfig()
	if ctx.IsSet("dataset") {
		cfg.Dataset = ctx.String("dataset")
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}
	logger.Noticef("wrote default config to %s", path)
	return nil
}
