package cmd

import (
	"errors"

	"github.com/achilleasa/voxray/renderer"
	"github.com/urfave/cli"
)

// Write a reduced resolution copy of a dataset timestep.
func Downsample(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing dataset file argument")
	}

	r, err := newRenderer(ctx, 0)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := renderer.DefaultInitOptions()
	opts.UseCPU = ctx.Bool("cpu")
	if err = r.Initialize(opts); err != nil {
		return err
	}
	if _, err = r.LoadVolume(ctx.Args().First()); err != nil {
		return err
	}

	base, err := r.Downsample(ctx.Int("timestep"), ctx.Int("factor"))
	if err != nil {
		return err
	}
	logger.Noticef("wrote %s.dat and %s.raw", base, base)
	return nil
}
