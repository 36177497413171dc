package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/achilleasa/voxray/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "voxray"
	app.Usage = "render scalar volume datasets using ray casting or path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "backend",
			Value: "all",
			Usage: fmt.Sprintf("comma separated list of compute backends to use (%s)", strings.Join(cmd.BackendNames(), ", ")),
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
		},
		{
			Name:      "info",
			Usage:     "display dataset properties and histogram statistics",
			ArgsUsage: "dataset.dat",
			Action:    cmd.DatasetInfo,
		},
		{
			Name:  "render",
			Usage: "render a single frame",
			Description: `
Load a dataset, apply the render job settings and render a frame. When path
tracing is selected the frame is refined over the requested number of
iterations.

Settings are read from the job config (see the config init command); flags
override individual values.`,
			ArgsUsage: "dataset.dat",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Value: "voxray.yaml",
					Usage: "render job config",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "iterations",
					Value: 1,
					Usage: "number of progressive iterations",
				},
				cli.StringFlag{
					Name:  "technique",
					Value: "raycast",
					Usage: "rendering technique (raycast or pathtrace)",
				},
				cli.StringFlag{
					Name:  "illumination",
					Value: "central-diff",
					Usage: "illumination mode (off, central-diff, central-diff-tf, sobel, gradient-magnitude, cel)",
				},
				cli.IntFlag{
					Name:  "timestep",
					Value: 0,
					Usage: "timestep to render",
				},
				cli.BoolFlag{
					Name:  "cpu",
					Usage: "render on a CPU device",
				},
				cli.StringFlag{
					Name:  "vendor",
					Value: "any",
					Usage: "restrict devices to a platform vendor (any, nvidia, amd, intel)",
				},
				cli.StringFlag{
					Name:  "device",
					Usage: "use the device whose name contains this value",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
		{
			Name:      "downsample",
			Usage:     "write a reduced resolution copy of a dataset",
			ArgsUsage: "dataset.dat",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "factor, f",
					Value: 2,
					Usage: "reduction factor along each axis",
				},
				cli.IntFlag{
					Name:  "timestep, t",
					Value: 0,
					Usage: "timestep to downsample",
				},
				cli.BoolFlag{
					Name:  "cpu",
					Usage: "use a CPU device",
				},
			},
			Action: cmd.Downsample,
		},
		{
			Name:  "config",
			Usage: "manage render job configs",
			Subcommands: []cli.Command{
				{
					Name:      "init",
					Usage:     "write the default render job config",
					ArgsUsage: "job.yaml",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "dataset",
							Usage: "dataset to reference in the config",
						},
						cli.BoolFlag{
							Name:  "force",
							Usage: "overwrite an existing file",
						},
					},
					Action: cmd.InitConfig,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
