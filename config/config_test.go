package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/tfunc"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	technique, err := cfg.Technique()
	require.NoError(t, err)
	require.Equal(t, kernel.Raycast, technique)

	illum, err := cfg.Illumination()
	require.NoError(t, err)
	require.Equal(t, kernel.IllumCentralDiff, illum)

	table, err := cfg.TransferTable()
	require.NoError(t, err)
	exp, err := tfunc.Sample(tfunc.DefaultRamp(), tfunc.Linear)
	require.NoError(t, err)
	require.Equal(t, exp.RGBA, table.RGBA)

	// The default camera sits at distance 2 on the z axis.
	origin := cfg.BuildCamera().ViewMatrix().MulPoint([3]float32{0, 0, 0})
	require.InDelta(t, 2, origin[2], 1e-6)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs", "job.yaml")

	cfg := DefaultConfig()
	cfg.Dataset = "/data/head.dat"
	cfg.Output.Width = 320
	cfg.Render.Technique = "pathtrace"
	cfg.Render.Illumination = "sobel"
	cfg.TransferFunction.Interpolation = "cubic"
	cfg.TransferFunction.Points = []ControlPoint{
		{Position: 0, Color: [4]uint8{0, 0, 0, 0}},
		{Position: 0.5, Color: [4]uint8{255, 0, 0, 40}},
		{Position: 1, Color: [4]uint8{255, 255, 255, 255}},
	}
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset: a.dat\noutput:\n  iterations: 8\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "a.dat", cfg.Dataset)
	require.Equal(t, 8, cfg.Output.Iterations)
	require.Equal(t, 512, cfg.Output.Width)
}

func TestLoadInvalidFile(t *testing.T) {
	specs := []string{
		"output:\n  width: 0\n",
		"render:\n  technique: photon\n",
		"render:\n  illumination: phong\n",
		"render:\n  samplingRate: -1\n",
		"render:\n  brickDivisor: 0\n",
		"transferFunction:\n  interpolation: bounce\n",
		"transferFunction:\n  points: []\n",
		"output: [",
	}

	dir := t.TempDir()
	for i, spec := range specs {
		path := filepath.Join(dir, "job.yaml")
		require.NoError(t, os.WriteFile(path, []byte(spec), 0644))
		_, err := LoadConfig(path)
		require.Error(t, err, "spec %d", i)
	}
}
