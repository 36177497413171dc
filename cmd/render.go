package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/config"
	"github.com/achilleasa/voxray/log"
	"github.com/achilleasa/voxray/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return err
	}
	if err = overrideConfig(ctx, cfg); err != nil {
		return err
	}
	if !ctx.GlobalBool("v") && !ctx.GlobalBool("vv") {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(level)
		}
	}
	if cfg.Dataset == "" {
		return errors.New("missing dataset file argument")
	}

	r, err := newRenderer(ctx, cfg.Device.Workers)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = setupRenderer(r, cfg); err != nil {
		return err
	}

	w, h := cfg.Output.Width, cfg.Output.Height
	frame := make([]float32, w*h*4)
	var renderTime time.Duration
	stats := make([]renderer.FrameStats, 0, cfg.Output.Iterations)
	for i := 0; i < cfg.Output.Iterations; i++ {
		if _, err = r.Render(w, h, frame); err != nil {
			return err
		}
		stats = append(stats, r.Stats())
		renderTime += r.LastExecTime()
	}

	if err = writePNG(cfg.Output.Path, frame, w, h); err != nil {
		return err
	}
	logger.Noticef("wrote %dx%d frame to %s", w, h, cfg.Output.Path)

	displayFrameStats(r.CurrentDeviceName(), stats, renderTime)
	return nil
}

// Apply explicitly set command line flags on top of the loaded config.
func overrideConfig(ctx *cli.Context, cfg *config.Config) error {
	if ctx.NArg() > 0 {
		cfg.Dataset = ctx.Args().First()
	}
	if ctx.IsSet("width") {
		cfg.Output.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Output.Height = ctx.Int("height")
	}
	if ctx.IsSet("iterations") {
		cfg.Output.Iterations = ctx.Int("iterations")
	}
	if ctx.IsSet("out") {
		cfg.Output.Path = ctx.String("out")
	}
	if ctx.IsSet("technique") {
		cfg.Render.Technique = ctx.String("technique")
	}
	if ctx.IsSet("illumination") {
		cfg.Render.Illumination = ctx.String("illumination")
	}
	if ctx.IsSet("cpu") {
		cfg.Device.UseCPU = ctx.Bool("cpu")
	}
	if ctx.IsSet("vendor") {
		cfg.Device.Vendor = ctx.String("vendor")
	}
	if ctx.IsSet("device") {
		cfg.Device.Name = ctx.String("device")
	}
	if ctx.IsSet("timestep") {
		cfg.Render.Timestep = ctx.Int("timestep")
	}
	return cfg.Validate()
}

// Initialize the renderer, load the dataset and apply the render settings.
func setupRenderer(r *renderer.Renderer, cfg *config.Config) error {
	vendor, err := compute.ParseVendor(cfg.Device.Vendor)
	if err != nil {
		return err
	}
	opts := renderer.DefaultInitOptions()
	opts.UseCPU = cfg.Device.UseCPU
	opts.Vendor = vendor
	opts.DeviceName = cfg.Device.Name
	opts.PlatformIndex = cfg.Device.Platform
	if err = r.Initialize(opts); err != nil {
		return err
	}

	table, err := cfg.TransferTable()
	if err != nil {
		return err
	}
	if err = r.ApplyTransferFunction(table); err != nil {
		return err
	}
	r.SetObjESS(cfg.Render.ObjESS)
	if err = r.GenerateBricks(renderer.BrickDivisor(cfg.Render.BrickDivisor)); err != nil {
		return err
	}
	if _, err = r.LoadVolume(cfg.Dataset); err != nil {
		return err
	}

	technique, _ := cfg.Technique()
	illum, _ := cfg.Illumination()
	if err = r.SetIllumination(illum); err != nil {
		return err
	}
	if err = r.SetSamplingRate(cfg.Render.SamplingRate); err != nil {
		return err
	}
	if err = r.SetExtinction(cfg.Render.Extinction); err != nil {
		return err
	}
	if err = r.SetTimestep(cfg.Render.Timestep); err != nil {
		return err
	}
	if err = r.SetImgESS(cfg.Render.ImgESS); err != nil {
		return err
	}
	r.SetTechnique(technique)
	r.SetBackground(cfg.BackgroundColor())
	r.SetAmbientOcclusion(cfg.Render.AmbientOcclusion)
	r.SetContours(cfg.Render.Contours)
	r.SetAerial(cfg.Render.Aerial)
	r.SetShowESS(cfg.Render.ShowESS)
	r.SetLinearInterpolation(cfg.Render.Linear)
	r.SetUseGradient(cfg.Render.UseGradient)

	cam := cfg.BuildCamera()
	r.SetView(cam.ViewMatrix())
	r.SetCamOrtho(cam.Ortho)
	r.SetBBox(cfg.BBoxVectors())
	logger.Debugf("camera %s", cam)

	return r.ResizeOutput(cfg.Output.Width, cfg.Output.Height, nil)
}

// Encode RGBA float pixels as an 8-bit PNG.
func writePNG(path string, pixels []float32, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := (y*w + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(pixels[off]),
				G: toByte(pixels[off+1]),
				B: toByte(pixels[off+2]),
				A: toByte(pixels[off+3]),
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		return fmt.Errorf("error encoding png file: %w", err)
	}
	return nil
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func displayFrameStats(device string, stats []renderer.FrameStats, total time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Iteration", "Technique", "Render time", "Brick time"})
	for _, stat := range stats {
		table.Append([]string{
			fmt.Sprintf("%d", stat.Iteration),
			stat.Technique.String(),
			stat.RenderTime.String(),
			stat.BrickTime.String(),
		})
	}
	table.SetFooter([]string{"", device, "TOTAL", total.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
