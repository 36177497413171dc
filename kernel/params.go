package kernel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/achilleasa/voxray/types"
)

// Byte sizes of the parameter blocks as laid out by an OpenCL compiler.
const (
	CameraParamsSize    = 128
	RenderingParamsSize = 64
	RaycastParamsSize   = 32
	PathtraceParamsSize = 4
)

type Illumination uint32

// Illumination modes.
const (
	IllumOff Illumination = iota
	IllumCentralDiff
	IllumCentralDiffTF
	IllumSobel
	IllumGradientMagnitude
	IllumCel
	numIlluminationModes
)

// Valid returns true for a known illumination mode.
func (i Illumination) Valid() bool {
	return i < numIlluminationModes
}

var illuminationNames = [numIlluminationModes]string{
	"off", "central-diff", "central-diff-tf", "sobel", "gradient-magnitude", "cel",
}

func (i Illumination) String() string {
	if !i.Valid() {
		return fmt.Sprintf("Illumination(%d)", uint32(i))
	}
	return illuminationNames[i]
}

// Parse an illumination mode name.
func ParseIllumination(name string) (Illumination, error) {
	for i, n := range illuminationNames {
		if n == name {
			return Illumination(i), nil
		}
	}
	return IllumOff, fmt.Errorf("kernel: unknown illumination mode %q", name)
}

type Technique uint32

// Rendering techniques.
const (
	Raycast Technique = iota
	Pathtrace
)

func (t Technique) String() string {
	if t == Pathtrace {
		return "pathtrace"
	}
	return "raycast"
}

// Parse a technique name.
func ParseTechnique(name string) (Technique, error) {
	switch name {
	case "", "raycast":
		return Raycast, nil
	case "pathtrace":
		return Pathtrace, nil
	}
	return Raycast, fmt.Errorf("kernel: unknown technique %q", name)
}

// CameraParams positions the camera relative to the volume.
type CameraParams struct {
	// Camera to model space transformation (column-major).
	View types.Mat4

	// Clipping box in normalized [-1, 1] model coordinates.
	BBoxMin types.Vec3
	BBoxMax types.Vec3

	Ortho bool
}

// RenderingParams holds the flags shared by both techniques.
type RenderingParams struct {
	Background   types.Vec4
	ModelScale   types.Vec3
	Illumination Illumination

	ImgESS      bool
	ShowESS     bool
	Linear      bool
	UseGradient bool

	Technique Technique
	Seed      uint32
	Iteration uint32
}

// RaycastParams holds the ray casting specific settings.
type RaycastParams struct {
	// Samples per voxel along a ray.
	SamplingRate float32

	AO       bool
	Contours bool
	Aerial   bool

	// Brick grid resolution.
	Bricks [3]uint32
}

// PathtraceParams holds the path tracing specific settings.
type PathtraceParams struct {
	// Majorant for free-flight sampling.
	MaxExtinction float32
}

func DefaultCameraParams() CameraParams {
	return CameraParams{
		View:    types.Ident4(),
		BBoxMin: types.XYZ(-1, -1, -1),
		BBoxMax: types.XYZ(1, 1, 1),
	}
}

func DefaultRenderingParams() RenderingParams {
	return RenderingParams{
		Background:   types.XYZW(1, 1, 1, 1),
		ModelScale:   types.XYZ(1, 1, 1),
		Illumination: IllumCentralDiff,
		Linear:       true,
		Technique:    Raycast,
		Seed:         42,
	}
}

func DefaultRaycastParams() RaycastParams {
	return RaycastParams{
		SamplingRate: 1.5,
		Bricks:       [3]uint32{1, 1, 1},
	}
}

func DefaultPathtraceParams() PathtraceParams {
	return PathtraceParams{MaxExtinction: 100}
}

type packer []byte

func (p packer) f32(off int, v float32) {
	binary.LittleEndian.PutUint32(p[off:], math.Float32bits(v))
}

func (p packer) u32(off int, v uint32) {
	binary.LittleEndian.PutUint32(p[off:], v)
}

func (p packer) flag(off int, v bool) {
	if v {
		p.u32(off, 1)
	} else {
		p.u32(off, 0)
	}
}

func (p packer) vec3(off int, v types.Vec3) {
	p.f32(off, v[0])
	p.f32(off+4, v[1])
	p.f32(off+8, v[2])
}

func (p packer) getF32(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[off:]))
}

func (p packer) getU32(off int) uint32 {
	return binary.LittleEndian.Uint32(p[off:])
}

func (p packer) getFlag(off int) bool {
	return p.getU32(off) != 0
}

func (p packer) getVec3(off int) types.Vec3 {
	return types.XYZ(p.getF32(off), p.getF32(off+4), p.getF32(off+8))
}

func checkSize(name string, b []byte, size int) error {
	if len(b) != size {
		return fmt.Errorf("kernel: %s block must be %d bytes; got %d", name, size, len(b))
	}
	return nil
}

// MarshalBinary packs the block using the device struct layout:
// float16 view @0, float3 bbox_bl @64, float3 bbox_tr @80, uint ortho @96.
func (c CameraParams) MarshalBinary() ([]byte, error) {
	p := make(packer, CameraParamsSize)
	for i, v := range c.View {
		p.f32(i*4, v)
	}
	p.vec3(64, c.BBoxMin)
	p.vec3(80, c.BBoxMax)
	p.flag(96, c.Ortho)
	return p, nil
}

func (c *CameraParams) UnmarshalBinary(b []byte) error {
	if err := checkSize("camera", b, CameraParamsSize); err != nil {
		return err
	}
	p := packer(b)
	for i := range c.View {
		c.View[i] = p.getF32(i * 4)
	}
	c.BBoxMin = p.getVec3(64)
	c.BBoxMax = p.getVec3(80)
	c.Ortho = p.getFlag(96)
	return nil
}

// MarshalBinary packs the block using the device struct layout:
// float4 background @0, float3 model scale @16, then eight uints from @32.
func (r RenderingParams) MarshalBinary() ([]byte, error) {
	p := make(packer, RenderingParamsSize)
	for i, v := range r.Background {
		p.f32(i*4, v)
	}
	p.vec3(16, r.ModelScale)
	p.u32(32, uint32(r.Illumination))
	p.flag(36, r.ImgESS)
	p.flag(40, r.ShowESS)
	p.flag(44, r.Linear)
	p.flag(48, r.UseGradient)
	p.u32(52, uint32(r.Technique))
	p.u32(56, r.Seed)
	p.u32(60, r.Iteration)
	return p, nil
}

func (r *RenderingParams) UnmarshalBinary(b []byte) error {
	if err := checkSize("rendering", b, RenderingParamsSize); err != nil {
		return err
	}
	p := packer(b)
	for i := range r.Background {
		r.Background[i] = p.getF32(i * 4)
	}
	r.ModelScale = p.getVec3(16)
	r.Illumination = Illumination(p.getU32(32))
	r.ImgESS = p.getFlag(36)
	r.ShowESS = p.getFlag(40)
	r.Linear = p.getFlag(44)
	r.UseGradient = p.getFlag(48)
	r.Technique = Technique(p.getU32(52))
	r.Seed = p.getU32(56)
	r.Iteration = p.getU32(60)
	return nil
}

// MarshalBinary packs the block using the device struct layout:
// float sampling rate @0, uint ao/contours/aerial @4..12, uint4 bricks @16.
func (r RaycastParams) MarshalBinary() ([]byte, error) {
	p := make(packer, RaycastParamsSize)
	p.f32(0, r.SamplingRate)
	p.flag(4, r.AO)
	p.flag(8, r.Contours)
	p.flag(12, r.Aerial)
	for i, v := range r.Bricks {
		p.u32(16+i*4, v)
	}
	return p, nil
}

func (r *RaycastParams) UnmarshalBinary(b []byte) error {
	if err := checkSize("raycast", b, RaycastParamsSize); err != nil {
		return err
	}
	p := packer(b)
	r.SamplingRate = p.getF32(0)
	r.AO = p.getFlag(4)
	r.Contours = p.getFlag(8)
	r.Aerial = p.getFlag(12)
	for i := range r.Bricks {
		r.Bricks[i] = p.getU32(16 + i*4)
	}
	return nil
}

func (r PathtraceParams) MarshalBinary() ([]byte, error) {
	p := make(packer, PathtraceParamsSize)
	p.f32(0, r.MaxExtinction)
	return p, nil
}

func (r *PathtraceParams) UnmarshalBinary(b []byte) error {
	if err := checkSize("pathtrace", b, PathtraceParamsSize); err != nil {
		return err
	}
	r.MaxExtinction = packer(b).getF32(0)
	return nil
}
