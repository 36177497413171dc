// Package renderer drives a compute device to render scalar volumes. It owns
// the device resources (volume, brick, transfer function, output and
// accumulation images), the parameter block state and the progressive
// iteration counter.
package renderer

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/log"
	"github.com/achilleasa/voxray/scene"
	"github.com/achilleasa/voxray/tfunc"
	"github.com/achilleasa/voxray/volume"
)

// The seed of the per-frame RNG seed sequence.
const seedSequenceStart = 42

type State uint8

// Renderer states.
const (
	Uninitialized State = iota
	Ready
	DataLoaded
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case DataLoaded:
		return "data loaded"
	}
	return "uninitialized"
}

// Renderer renders volumes on a device opened from one of its backends. All
// methods are safe to call from multiple goroutines but the device is used as
// a single in-order queue.
type Renderer struct {
	mu       sync.Mutex
	logger   log.Logger
	backends []compute.Backend

	device compute.Device
	res    resourceSet
	state  State

	// Host copies used to restore device state after re-initialization.
	props     volume.Properties
	timesteps []volume.Timestep
	timestep  int
	tfRGBA    []byte
	tfPrefix  []uint32

	brickDivisor BrickDivisor
	brickRes     [3]int
	objESS       bool

	width, height  int
	displayTexture *uint32

	camera    kernel.CameraParams
	rendering kernel.RenderingParams
	raycast   kernel.RaycastParams
	pathtrace kernel.PathtraceParams

	seeds *rand.Rand
	stats FrameStats
}

// Create a renderer that opens devices from the given backends in order.
func New(backends ...compute.Backend) *Renderer {
	return &Renderer{
		logger:       log.New("renderer"),
		backends:     backends,
		brickDivisor: BricksTiny,
		objESS:       true,
		camera:       kernel.DefaultCameraParams(),
		rendering:    kernel.DefaultRenderingParams(),
		raycast:      kernel.DefaultRaycastParams(),
		pathtrace:    kernel.DefaultPathtraceParams(),
		seeds:        rand.New(rand.NewSource(seedSequenceStart)),
	}
}

// Initialize opens a compute device, builds the volume rendering program and
// restores any previously loaded dataset, transfer function and output.
//
// When display sharing is requested but unavailable the renderer falls back
// to non-shared output; when no GPU matches the selection it falls back to a
// CPU device. Both fallbacks are logged as warnings.
func (r *Renderer) Initialize(opts InitOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeDevice()

	dev, err := r.openDevice(opts)
	if err != nil {
		return &ResourceError{Op: "initialize", Err: err}
	}

	if err = dev.Build(kernel.Program()); err != nil {
		dev.Close()
		return &ResourceError{Op: "build program", Err: err}
	}

	r.res.kernels = make(map[string]compute.Kernel)
	for _, name := range kernel.Names() {
		k, err := dev.Kernel(name)
		if err != nil {
			r.res.release()
			dev.Close()
			return &ResourceError{Op: "load kernel " + name, Err: err}
		}
		r.res.kernels[name] = k
	}

	r.device = dev
	r.state = Ready
	r.logger.Noticef("using %s device %q", dev.Type(), dev.Name())

	if r.tfRGBA != nil {
		if err = r.uploadTransferFunction(r.tfRGBA, r.tfPrefix); err != nil {
			return err
		}
	}
	if r.timesteps != nil {
		// Missing bricks only disable object-order ESS.
		var buildErr *BuildError
		if err = r.uploadVolume(r.timesteps, r.props); err != nil && !errors.As(err, &buildErr) {
			return err
		}
	}
	if r.width > 0 && r.height > 0 {
		if err = r.allocateOutput(r.width, r.height, r.displayTexture); err != nil {
			return err
		}
	}
	return nil
}

// Try the requested selection first, then relax display sharing and finally
// the device type.
func (r *Renderer) openDevice(opts InitOptions) (compute.Device, error) {
	if len(r.backends) == 0 {
		return nil, compute.ErrDeviceNotFound
	}

	sel := compute.Selection{
		Type:          compute.GpuDevice,
		Vendor:        opts.Vendor,
		Name:          opts.DeviceName,
		PlatformIndex: opts.PlatformIndex,
	}
	if opts.UseCPU {
		sel.Type = compute.CpuDevice
	}

	candidates := make([]compute.Selection, 0, 3)
	if opts.UseSharedDisplayContext {
		switch {
		case opts.UseCPU:
			r.logger.Warning("display sharing is not available for CPU devices; using non-shared output")
		case opts.DisplayContext == nil:
			r.logger.Warning("display sharing requested without a display context; using non-shared output")
		default:
			shared := sel
			shared.Display = opts.DisplayContext
			candidates = append(candidates, shared)
		}
	}
	candidates = append(candidates, sel)
	if sel.Type != compute.CpuDevice {
		candidates = append(candidates, compute.Selection{Type: compute.CpuDevice, PlatformIndex: -1})
	}

	var lastErr error
	for i, candidate := range candidates {
		if i > 0 {
			switch {
			case candidates[i-1].Display != nil:
				r.logger.Warningf("could not open a device with display sharing (%v); falling back to non-shared output", lastErr)
			default:
				r.logger.Warningf("could not open a GPU device (%v); falling back to CPU", lastErr)
			}
		}
		for _, backend := range r.backends {
			dev, err := backend.Open(candidate)
			if err == nil {
				return dev, nil
			}
			if !errors.Is(err, compute.ErrDeviceNotFound) && !errors.Is(err, compute.ErrSharingUnsupported) {
				r.logger.Warningf("%s backend: %v", backend.Name(), err)
			}
			lastErr = err
		}
	}
	return nil, lastErr
}

// Release the device and every resource allocated on it. Host side state is
// kept so that Initialize can restore it.
func (r *Renderer) closeDevice() {
	r.res.release()
	if r.device != nil {
		r.device.Close()
		r.device = nil
	}
	r.state = Uninitialized
}

// Close releases all device resources and forgets any loaded dataset.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeDevice()
	r.timesteps = nil
	r.props = volume.Properties{}
	r.tfRGBA, r.tfPrefix = nil, nil
	r.width, r.height, r.displayTexture = 0, 0, nil
}

func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// All platforms of all backends in enumeration order.
func (r *Renderer) platforms() ([]compute.PlatformInfo, error) {
	var out []compute.PlatformInfo
	for _, backend := range r.backends {
		list, err := backend.Platforms()
		if err != nil {
			return nil, fmt.Errorf("%s backend: %w", backend.Name(), err)
		}
		out = append(out, list...)
	}
	return out, nil
}

// ListPlatforms returns the names of the available compute platforms.
func (r *Renderer) ListPlatforms() ([]string, error) {
	platforms, err := r.platforms()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = p.Name
	}
	return names, nil
}

// ListDevices returns the names of the devices of the given kind on a
// platform as indexed by ListPlatforms.
func (r *Renderer) ListDevices(platformIndex int, kind compute.DeviceType) ([]string, error) {
	platforms, err := r.platforms()
	if err != nil {
		return nil, err
	}
	if platformIndex < 0 || platformIndex >= len(platforms) {
		return nil, fmt.Errorf("renderer: platform index %d out of range [0, %d)", platformIndex, len(platforms))
	}

	var names []string
	for _, dev := range platforms[platformIndex].Devices {
		if kind == 0 || dev.Type&kind == dev.Type {
			names = append(names, dev.Name)
		}
	}
	return names, nil
}

// CurrentDeviceName returns the name of the open device or an empty string.
func (r *Renderer) CurrentDeviceName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return ""
	}
	return r.device.Name()
}

// LoadVolume reads a dataset, uploads it and applies the default transfer
// function if none has been set. It returns the number of timesteps.
func (r *Renderer) LoadVolume(path string) (int, error) {
	reader := volume.NewReader()
	if err := reader.Read(path); err != nil {
		return 0, err
	}
	props, err := reader.Properties()
	if err != nil {
		return 0, err
	}
	data, err := reader.Data()
	if err != nil {
		return 0, err
	}

	if err = r.UploadVolume(data, props); err != nil {
		return 0, err
	}
	return len(data), nil
}

// UploadVolume uploads one image per timestep and builds the bricks.
func (r *Renderer) UploadVolume(timesteps []volume.Timestep, props volume.Properties) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Uninitialized {
		return &ResourceError{Op: "upload volume", Err: ErrNotInitialized}
	}
	return r.uploadVolume(timesteps, props)
}

func (r *Renderer) uploadVolume(timesteps []volume.Timestep, props volume.Properties) error {
	r.clearVolume()

	format, err := volumeImageFormat(props)
	if err != nil {
		return &ResourceError{Op: "upload volume", Err: err}
	}
	if len(timesteps) == 0 {
		return &ResourceError{Op: "upload volume", Err: ErrNoVolume}
	}

	desc := compute.ImageDesc{
		Width:  props.Resolution[0],
		Height: props.Resolution[1],
		Depth:  props.Resolution[2],
		Format: format,
		Access: compute.ReadOnly,
	}
	size := props.TimestepSize()
	for t, ts := range timesteps {
		if len(ts.Data) < size {
			r.clearVolume()
			return &ResourceError{
				Op:  "upload volume",
				Err: fmt.Errorf("%w: timestep %d holds %d bytes; expected %d", ErrPayloadTooSmall, t, len(ts.Data), size),
			}
		}
		img, err := r.device.NewImage(desc, ts.Data[:size])
		if err != nil {
			r.clearVolume()
			return &ResourceError{Op: fmt.Sprintf("upload volume timestep %d", t), Err: err}
		}
		r.res.volumes = append(r.res.volumes, img)
	}

	r.props = props
	r.timesteps = timesteps
	if r.timestep >= len(timesteps) {
		r.timestep = 0
	}
	r.rendering.ModelScale = scene.ModelScale(
		[3]int{props.Resolution[0], props.Resolution[1], props.Resolution[2]},
		props.SliceThickness,
	)

	if r.res.tff == nil {
		table, err := tfunc.Sample(tfunc.DefaultRamp(), tfunc.Linear)
		if err != nil {
			r.clearVolume()
			return err
		}
		if err = r.uploadTransferFunction(table.RGBA, table.PrefixSum); err != nil {
			r.clearVolume()
			return err
		}
	}

	r.state = DataLoaded
	r.resetIteration()
	if err = r.buildBricks(r.brickDivisor); err != nil {
		r.logger.Warningf("volume uploaded without empty space skipping bricks: %v", err)
		return err
	}

	r.logger.Infof("uploaded %d timestep(s) of %dx%dx%d %s voxels", len(timesteps), desc.Width, desc.Height, desc.Depth, format)
	return nil
}

// Discard the dataset; the device stays usable.
func (r *Renderer) clearVolume() {
	r.res.releaseVolumes()
	r.timesteps = nil
	r.props = volume.Properties{}
	r.brickRes = [3]int{}
	if r.state == DataLoaded {
		r.state = Ready
	}
}

// HasVolume returns true if a dataset is loaded.
func (r *Renderer) HasVolume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == DataLoaded
}

// Properties returns the properties of the loaded dataset.
func (r *Renderer) Properties() (volume.Properties, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.props, r.state == DataLoaded
}

// Timesteps returns the number of loaded timesteps.
func (r *Renderer) Timesteps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.res.volumes)
}

// Histogram returns the 256 bin histogram of timestep t of the loaded
// dataset.
func (r *Renderer) Histogram(t int) (volume.Histogram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != DataLoaded {
		return volume.Histogram{}, &volume.DatasetError{Op: "histogram", Err: volume.ErrNoData}
	}
	if t < 0 || t >= len(r.timesteps) {
		return volume.Histogram{}, &volume.DatasetError{Op: "histogram", Err: fmt.Errorf("%w: %d", volume.ErrTimestepOutOfRange, t)}
	}
	return r.timesteps[t].Histogram, nil
}

// Map the dataset format to a device image format. Four channel layouts are
// uploaded as RGBA; the kernels only sample the first stored channel.
func volumeImageFormat(props volume.Properties) (compute.ImageFormat, error) {
	var f compute.ImageFormat
	switch props.Format {
	case volume.UChar:
		f.Type = compute.UNorm8
	case volume.UShort:
		f.Type = compute.UNorm16
	case volume.Float:
		f.Type = compute.Float32
	default:
		return f, volume.ErrUnknownFormat
	}

	switch props.ChannelOrder {
	case volume.ChannelR:
		f.Order = compute.R
	case volume.ChannelRG:
		f.Order = compute.RG
	default:
		f.Order = compute.RGBA
	}
	return f, nil
}
