package kernel

import (
	"encoding/binary"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/types"
)

type fakeImage struct {
	name string
}

func (f *fakeImage) Desc() compute.ImageDesc { return compute.ImageDesc{Width: 1} }
func (f *fakeImage) Release()                {}

func TestParamBlockLayout(t *testing.T) {
	cam := DefaultCameraParams()
	cam.Ortho = true
	cam.View[12] = 0.25
	b, _ := cam.MarshalBinary()
	if len(b) != CameraParamsSize {
		t.Fatalf("expected camera block of %d bytes; got %d", CameraParamsSize, len(b))
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(b[48:])); v != 0.25 {
		t.Fatalf("expected view[12] at offset 48 to be 0.25; got %f", v)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(b[80:])); v != 1 {
		t.Fatalf("expected bbox_tr.x at offset 80 to be 1; got %f", v)
	}
	if binary.LittleEndian.Uint32(b[96:]) != 1 {
		t.Fatal("expected ortho flag at offset 96")
	}

	rendering := DefaultRenderingParams()
	rendering.Iteration = 7
	b, _ = rendering.MarshalBinary()
	if binary.LittleEndian.Uint32(b[56:]) != 42 || binary.LittleEndian.Uint32(b[60:]) != 7 {
		t.Fatalf("expected seed 42 and iteration 7 at offsets 56 and 60; got %v", b[56:])
	}

	raycast := DefaultRaycastParams()
	raycast.Bricks = [3]uint32{8, 4, 2}
	b, _ = raycast.MarshalBinary()
	if binary.LittleEndian.Uint32(b[20:]) != 4 {
		t.Fatal("expected brick y resolution at offset 20")
	}
}

func TestRenderArgsRoundTrip(t *testing.T) {
	img := func(name string) compute.Image { return &fakeImage{name: name} }
	args := &RenderArgs{
		Volume: img("vol"), Bricks: img("bricks"), TFF: img("tff"), Output: img("out"),
		TFFPrefix: img("prefix"), InAccumulate: img("accIn"), OutAccumulate: img("accOut"),
		InHit: img("hitIn"), OutHit: img("hitOut"),
		Camera:    DefaultCameraParams(),
		Rendering: DefaultRenderingParams(),
		Raycast:   DefaultRaycastParams(),
		Pathtrace: PathtraceParams{MaxExtinction: 12.5},
	}
	args.Rendering.Background = types.XYZW(0.1, 0.2, 0.3, 1)
	args.Rendering.Technique = Pathtrace

	list, err := args.List()
	if err != nil {
		t.Fatal(err)
	}
	if list[ArgOutput].(*fakeImage).name != "out" || list[ArgOutHit].(*fakeImage).name != "hitOut" {
		t.Fatal("expected images at their positional slots")
	}

	decoded, err := DecodeRenderArgs(list)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, args) {
		t.Fatalf("expected decoded args to match\n%+v\ngot\n%+v", args, decoded)
	}

	list[ArgCamera] = uint32(1)
	if _, err := DecodeRenderArgs(list); err == nil {
		t.Fatal("expected an error for a malformed parameter block")
	}
}

func TestProgramDeclaresAllKernels(t *testing.T) {
	prog := Program()
	if len(prog.Kernels) != int(numKernels) {
		t.Fatalf("expected %d kernels; got %d", numKernels, len(prog.Kernels))
	}
	for _, name := range prog.Kernels {
		if !strings.Contains(prog.Source, "__kernel void "+name) {
			t.Fatalf("expected program source to define kernel %s", name)
		}
	}
}

func TestParseIllumination(t *testing.T) {
	for mode := IllumOff; mode < numIlluminationModes; mode++ {
		got, err := ParseIllumination(mode.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != mode {
			t.Fatalf("expected %s; got %s", mode, got)
		}
	}
	if _, err := ParseIllumination("phong"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}
