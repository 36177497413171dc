// Package config loads and saves render job descriptions. A job names the
// dataset to render together with the device, renderer, camera and transfer
// function settings; command line flags override individual values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/scene"
	"github.com/achilleasa/voxray/tfunc"
	"github.com/achilleasa/voxray/types"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Config represents a render job loaded from YAML
type Config struct {
	// Path to the .dat descriptor or raw file to render
	Dataset string `yaml:"dataset"`

	LogLevel string `yaml:"logLevel"`

	Output struct {
		Path       string `yaml:"path"`
		Width      int    `yaml:"width"`
		Height     int    `yaml:"height"`
		Iterations int    `yaml:"iterations"`
	} `yaml:"output"`

	Device struct {
		// host or opencl
		Backend string `yaml:"backend"`

		UseCPU   bool   `yaml:"useCPU"`
		Vendor   string `yaml:"vendor"`
		Name     string `yaml:"name"`
		Platform int    `yaml:"platform"`

		// Host backend worker count; 0 uses all cores
		Workers int `yaml:"workers"`
	} `yaml:"device"`

	Render struct {
		Technique    string     `yaml:"technique"`
		Illumination string     `yaml:"illumination"`
		SamplingRate float32    `yaml:"samplingRate"`
		Extinction   float32    `yaml:"extinction"`
		Background   [4]float32 `yaml:"background,flow"`
		BrickDivisor int        `yaml:"brickDivisor"`
		Timestep     int        `yaml:"timestep"`

		AmbientOcclusion bool `yaml:"ambientOcclusion"`
		Contours         bool `yaml:"contours"`
		Aerial           bool `yaml:"aerial"`
		ImgESS           bool `yaml:"imgESS"`
		ObjESS           bool `yaml:"objESS"`
		ShowESS          bool `yaml:"showESS"`
		Linear           bool `yaml:"linear"`
		UseGradient      bool `yaml:"useGradient"`
	} `yaml:"render"`

	Camera struct {
		// Quaternion as (w, x, y, z)
		Rotation    [4]float32 `yaml:"rotation,flow"`
		Translation [3]float32 `yaml:"translation,flow"`
		Ortho       bool       `yaml:"ortho"`

		// Cursor deltas applied on top of the rotation
		Orbit [2]float32 `yaml:"orbit,flow"`
	} `yaml:"camera"`

	BBox struct {
		Min [3]float32 `yaml:"min,flow"`
		Max [3]float32 `yaml:"max,flow"`
	} `yaml:"bbox"`

	TransferFunction struct {
		Interpolation string         `yaml:"interpolation"`
		Points        []ControlPoint `yaml:"points"`
	} `yaml:"transferFunction"`
}

// ControlPoint is the YAML form of a transfer function control point.
type ControlPoint struct {
	Position float64  `yaml:"position"`
	Color    [4]uint8 `yaml:"color,flow"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.LogLevel = "notice"

	cfg.Output.Path = "frame.png"
	cfg.Output.Width = 512
	cfg.Output.Height = 512
	cfg.Output.Iterations = 1

	cfg.Device.Backend = "host"
	cfg.Device.Platform = -1

	rendering := kernel.DefaultRenderingParams()
	raycast := kernel.DefaultRaycastParams()
	cfg.Render.Technique = rendering.Technique.String()
	cfg.Render.Illumination = rendering.Illumination.String()
	cfg.Render.SamplingRate = raycast.SamplingRate
	cfg.Render.Extinction = kernel.DefaultPathtraceParams().MaxExtinction
	cfg.Render.Background = [4]float32(rendering.Background)
	cfg.Render.BrickDivisor = 16
	cfg.Render.ObjESS = true
	cfg.Render.Linear = rendering.Linear

	cam := scene.NewCamera()
	cfg.Camera.Rotation = [4]float32{cam.Rotation.W, cam.Rotation.V[0], cam.Rotation.V[1], cam.Rotation.V[2]}
	cfg.Camera.Translation = [3]float32(cam.Translation)

	cfg.BBox.Min = [3]float32{-1, -1, -1}
	cfg.BBox.Max = [3]float32{1, 1, 1}

	cfg.TransferFunction.Interpolation = tfunc.Linear.String()
	for _, p := range tfunc.DefaultRamp() {
		cfg.TransferFunction.Points = append(cfg.TransferFunction.Points, ControlPoint{Position: p.Position, Color: p.Color})
	}
	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate checks value ranges and enum names.
func (cfg *Config) Validate() error {
	if cfg.Output.Width <= 0 || cfg.Output.Height <= 0 {
		return fmt.Errorf("output size must be positive; got %dx%d", cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Output.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1; got %d", cfg.Output.Iterations)
	}
	if _, err := cfg.Technique(); err != nil {
		return err
	}
	if _, err := cfg.Illumination(); err != nil {
		return err
	}
	if cfg.Render.SamplingRate <= 0 {
		return fmt.Errorf("sampling rate must be positive; got %f", cfg.Render.SamplingRate)
	}
	if cfg.Render.Extinction <= 0 {
		return fmt.Errorf("extinction must be positive; got %f", cfg.Render.Extinction)
	}
	if cfg.Render.BrickDivisor <= 0 {
		return fmt.Errorf("brick divisor must be positive; got %d", cfg.Render.BrickDivisor)
	}
	if _, err := cfg.TransferTable(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) Technique() (kernel.Technique, error) {
	return kernel.ParseTechnique(cfg.Render.Technique)
}

func (cfg *Config) Illumination() (kernel.Illumination, error) {
	return kernel.ParseIllumination(cfg.Render.Illumination)
}

// BuildCamera builds the configured camera.
func (cfg *Config) BuildCamera() *scene.Camera {
	cam := scene.NewCamera()
	rot := mgl32.Quat{
		W: cfg.Camera.Rotation[0],
		V: mgl32.Vec3{cfg.Camera.Rotation[1], cfg.Camera.Rotation[2], cfg.Camera.Rotation[3]},
	}
	if rot.Len() > 0 {
		cam.Rotation = rot.Normalize()
	}
	cam.Translation = mgl32.Vec3(cfg.Camera.Translation)
	cam.Ortho = cfg.Camera.Ortho
	cam.Orbit(cfg.Camera.Orbit[0], cfg.Camera.Orbit[1])
	return cam
}

func (cfg *Config) BBoxVectors() (types.Vec3, types.Vec3) {
	return types.Vec3(cfg.BBox.Min), types.Vec3(cfg.BBox.Max)
}

func (cfg *Config) BackgroundColor() types.Vec4 {
	return types.Vec4(cfg.Render.Background)
}

// TransferTable samples the configured transfer function.
func (cfg *Config) TransferTable() (*tfunc.Table, error) {
	mode, err := tfunc.ParseInterpolation(cfg.TransferFunction.Interpolation)
	if err != nil {
		return nil, err
	}
	points := make([]tfunc.ControlPoint, len(cfg.TransferFunction.Points))
	for i, p := range cfg.TransferFunction.Points {
		points[i] = tfunc.ControlPoint{Position: p.Position, Color: p.Color}
	}
	return tfunc.Sample(points, mode)
}
