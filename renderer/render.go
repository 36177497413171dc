package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/types"
)

const (
	// Local work-group edge length of the render dispatch. It also defines
	// the tile size tracked by the hit images.
	renderLocalSize = 8
)

// Restart progressive accumulation with the next frame.
func (r *Renderer) resetIteration() {
	r.rendering.Iteration = 0
}

// Allocate the output image together with the hit and accumulation pairs.
func (r *Renderer) allocateOutput(width, height int, displayTexture *uint32) error {
	if width <= 0 || height <= 0 {
		return &ResourceError{Op: "resize output", Err: fmt.Errorf("%w; got %dx%d", ErrInvalidOutputSize, width, height)}
	}
	r.res.releaseOutput()

	rgba := compute.ImageDesc{
		Width:  width,
		Height: height,
		Format: compute.ImageFormat{Order: compute.RGBA, Type: compute.Float32},
	}

	var err error
	if displayTexture != nil && r.device.SharesDisplay() {
		rgba.Access = compute.WriteOnly
		r.res.output, err = r.device.NewSharedImage(rgba, *displayTexture)
		rgba.Access = compute.ReadWrite
	} else {
		r.res.output, err = r.device.NewImage(rgba, nil)
	}
	if err != nil {
		r.res.releaseOutput()
		return &ResourceError{Op: "allocate output image", Err: err}
	}

	// Every tile starts out as a hit so the first frame renders everything.
	hitDesc := compute.ImageDesc{
		Width:  (width+renderLocalSize-1)/renderLocalSize + 1,
		Height: (height+renderLocalSize-1)/renderLocalSize + 1,
		Format: compute.ImageFormat{Order: compute.R, Type: compute.UInt8},
	}
	seed := make([]byte, hitDesc.Size())
	for i := range seed {
		seed[i] = 1
	}
	for i := range r.res.hit.images {
		if r.res.hit.images[i], err = r.device.NewImage(hitDesc, seed); err != nil {
			r.res.releaseOutput()
			return &ResourceError{Op: "allocate hit image", Err: err}
		}
		if r.res.accumulate.images[i], err = r.device.NewImage(rgba, nil); err != nil {
			r.res.releaseOutput()
			return &ResourceError{Op: "allocate accumulation image", Err: err}
		}
	}

	r.width, r.height = width, height
	r.displayTexture = displayTexture
	r.resetIteration()
	r.logger.Debugf("allocated %dx%d output (shared: %t)", width, height, displayTexture != nil && r.device.SharesDisplay())
	return nil
}

// ResizeOutput (re)creates the output image and the progressive state. When
// the device shares the display context and a texture handle is supplied the
// output is written directly to that texture.
func (r *Renderer) ResizeOutput(width, height int, displayTexture *uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Uninitialized {
		return &ResourceError{Op: "resize output", Err: ErrNotInitialized}
	}
	return r.allocateOutput(width, height, displayTexture)
}

// Render dispatches one frame. It returns false if no dataset is loaded.
// Unless the output is shared with the display the frame is read back into
// out as RGBA float32 pixels.
func (r *Renderer) Render(width, height int, out []float32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != DataLoaded {
		return false, nil
	}
	if r.res.output == nil || width != r.width || height != r.height {
		if err := r.allocateOutput(width, height, r.displayTexture); err != nil {
			return false, err
		}
	}
	shared := r.device.SharesDisplay() && r.displayTexture != nil
	if !shared && len(out) < width*height*4 {
		return false, &RenderError{Err: fmt.Errorf("%w: need %d floats; got %d", ErrOutputBufferTooSmall, width*height*4, len(out))}
	}

	bricks, haveBricks, err := r.brickImage(r.timestep)
	if err != nil {
		return false, &RenderError{Err: err}
	}
	raycast := r.raycast
	if r.objESS && haveBricks {
		for i, n := range r.brickRes {
			raycast.Bricks[i] = uint32(n)
		}
	} else {
		raycast.Bricks = [3]uint32{}
	}
	r.rendering.Seed = r.seeds.Uint32()

	args := kernel.RenderArgs{
		Volume:        r.res.volumes[r.timestep],
		Bricks:        bricks,
		TFF:           r.res.tff,
		Output:        r.res.output,
		TFFPrefix:     r.res.tffPrefix,
		InAccumulate:  r.res.accumulate.In(),
		OutAccumulate: r.res.accumulate.Out(),
		InHit:         r.res.hit.In(),
		OutHit:        r.res.hit.Out(),
		Camera:        r.camera,
		Rendering:     r.rendering,
		Raycast:       raycast,
		Pathtrace:     r.pathtrace,
	}
	list, err := args.List()
	if err != nil {
		return false, &RenderError{Err: err}
	}

	k := r.res.kernels[kernel.VolumeRender.String()]
	if err = k.SetArgs(list...); err != nil {
		return false, &RenderError{Err: err}
	}
	took, err := k.Exec2D(
		compute.RoundUp(width, renderLocalSize),
		compute.RoundUp(height, renderLocalSize),
		renderLocalSize, renderLocalSize,
	)
	if err != nil {
		return false, &RenderError{Err: err}
	}

	if r.rendering.ImgESS {
		r.res.hit.Swap()
	}
	r.res.accumulate.Swap()
	r.stats.Iteration = r.rendering.Iteration
	r.stats.Technique = r.rendering.Technique
	r.stats.RenderTime = took
	r.rendering.Iteration++

	if shared {
		return true, nil
	}

	buf := make([]byte, width*height*16)
	if err = r.device.ReadImage(r.res.output, buf); err != nil {
		return false, &RenderError{Err: err}
	}
	for i := 0; i < width*height*4; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return true, nil
}

// ResetIteration restarts progressive accumulation.
func (r *Renderer) ResetIteration() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetIteration()
}

// Iteration returns the iteration the next frame will contribute.
func (r *Renderer) Iteration() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendering.Iteration
}

// LastExecTime returns the kernel execution time of the last frame.
func (r *Renderer) LastExecTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.RenderTime
}

func (r *Renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// SetView sets the camera to model space transformation (column-major).
func (r *Renderer) SetView(view [16]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera.View = types.Mat4(view)
	r.resetIteration()
}

// SetBBox sets the clipping box in normalized [-1, 1] model coordinates.
func (r *Renderer) SetBBox(bl, tr types.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera.BBoxMin = types.MinVec3(bl, tr)
	r.camera.BBoxMax = types.MaxVec3(bl, tr)
	r.resetIteration()
}

func (r *Renderer) SetCamOrtho(ortho bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera.Ortho = ortho
	r.resetIteration()
}

func (r *Renderer) SetIllumination(mode kernel.Illumination) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidIllumination, mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.Illumination = mode
	return nil
}

func (r *Renderer) SetAmbientOcclusion(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raycast.AO = enabled
}

// SetShowESS tints samples skipped by empty space skipping.
func (r *Renderer) SetShowESS(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.ShowESS = enabled
}

func (r *Renderer) SetLinearInterpolation(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.Linear = enabled
}

func (r *Renderer) SetContours(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raycast.Contours = enabled
}

func (r *Renderer) SetAerial(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raycast.Aerial = enabled
}

// SetImgESS toggles image-order empty space skipping. Enabling it marks
// every tile as hit so the next frame renders the full image.
func (r *Renderer) SetImgESS(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rendering.ImgESS = enabled
	if !enabled || !r.res.hit.allocated() {
		return nil
	}
	seed := make([]byte, r.res.hit.In().Desc().Size())
	for i := range seed {
		seed[i] = 1
	}
	for _, img := range r.res.hit.images {
		if err := r.device.WriteImage(img, seed); err != nil {
			return &ResourceError{Op: "reset hit image", Err: err}
		}
	}
	return nil
}

func (r *Renderer) SetBackground(color types.Vec4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.Background = color
	r.resetIteration()
}

// SetUseGradient scales sample opacity by the gradient magnitude.
func (r *Renderer) SetUseGradient(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.UseGradient = enabled
}

func (r *Renderer) SetTechnique(technique kernel.Technique) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.Technique = technique
	r.resetIteration()
}

// SetExtinction sets the majorant extinction used by the path tracer.
func (r *Renderer) SetExtinction(extinction float32) error {
	if extinction <= 0 {
		return fmt.Errorf("%w; got %f", ErrInvalidExtinction, extinction)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pathtrace.MaxExtinction = extinction
	r.resetIteration()
	return nil
}

// SetSamplingRate sets the number of ray samples per voxel.
func (r *Renderer) SetSamplingRate(rate float32) error {
	if rate <= 0 {
		return fmt.Errorf("%w; got %f", ErrInvalidSamplingRate, rate)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raycast.SamplingRate = rate
	return nil
}

// SetTimestep selects the timestep rendered by the next frame.
func (r *Renderer) SetTimestep(t int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t < 0 || (r.state == DataLoaded && t >= len(r.res.volumes)) {
		return fmt.Errorf("%w: %d", ErrTimestepOutOfRange, t)
	}
	r.timestep = t
	r.resetIteration()
	return nil
}

// ScaleVolume multiplies the per-axis model scale of the loaded volume.
func (r *Renderer) ScaleVolume(scale types.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendering.ModelScale = r.rendering.ModelScale.MulVec(scale)
	r.resetIteration()
}
