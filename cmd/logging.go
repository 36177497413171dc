package cmd

import (
	"github.com/achilleasa/voxray/log"
	"github.com/urfave/cli"
)

var logger = log.New("voxray")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
