package host

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/types"
)

func openDevice(t *testing.T) *Device {
	dev, err := New(2).Open(compute.Selection{PlatformIndex: -1})
	if err != nil {
		t.Fatal(err)
	}
	if err = dev.Build(kernel.Program()); err != nil {
		t.Fatal(err)
	}
	return dev.(*Device)
}

func newTestImage(t *testing.T, dev *Device, desc compute.ImageDesc, data []byte) *Image {
	img, err := dev.NewImage(desc, data)
	if err != nil {
		t.Fatal(err)
	}
	return img.(*Image)
}

func volumeDesc(w, h, d int) compute.ImageDesc {
	return compute.ImageDesc{Width: w, Height: h, Depth: d, Format: compute.ImageFormat{Order: compute.R, Type: compute.UNorm8}}
}

func TestBackendOpen(t *testing.T) {
	b := New(3)
	platforms, err := b.Platforms()
	if err != nil {
		t.Fatal(err)
	}
	if len(platforms) != 1 || len(platforms[0].Devices) != 1 {
		t.Fatalf("expected 1 platform with 1 device; got %v", platforms)
	}

	if _, err = b.Open(compute.Selection{Type: compute.GpuDevice, PlatformIndex: -1}); !errors.Is(err, compute.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound when asking for a GPU; got %v", err)
	}
	if _, err = b.Open(compute.Selection{PlatformIndex: -1, Display: fakeDisplay{}}); !errors.Is(err, compute.ErrSharingUnsupported) {
		t.Fatalf("expected ErrSharingUnsupported; got %v", err)
	}
}

type fakeDisplay struct{}

func (fakeDisplay) Handles() (uintptr, uintptr) { return 1, 2 }

func TestKernelErrors(t *testing.T) {
	dev := openDevice(t)

	if _, err := dev.Kernel("missing"); !errors.Is(err, compute.ErrKernelNotFound) {
		t.Fatalf("expected ErrKernelNotFound; got %v", err)
	}

	k, err := dev.Kernel(kernel.GenerateBricks.String())
	if err != nil {
		t.Fatal(err)
	}
	if err = k.SetArgs(int64(1)); !errors.Is(err, compute.ErrUnsupportedArg) {
		t.Fatalf("expected ErrUnsupportedArg; got %v", err)
	}

	other := openDevice(t)
	foreign := newTestImage(t, other, volumeDesc(4, 4, 4), nil)
	if err = k.SetArgs(foreign, foreign); err == nil {
		t.Fatal("expected an error when binding an image owned by another device")
	}

	vol := newTestImage(t, dev, volumeDesc(4, 4, 4), nil)
	if err = k.SetArgs(vol, vol); err != nil {
		t.Fatal(err)
	}
	if _, err = k.Exec3D(6, 4, 4, 4, 4, 4); !errors.Is(err, compute.ErrInvalidWorkGroupSize) {
		t.Fatalf("expected ErrInvalidWorkGroupSize; got %v", err)
	}
}

func TestImageAddressing(t *testing.T) {
	dev := openDevice(t)
	img := newTestImage(t, dev, volumeDesc(2, 1, 1), []byte{0, 255})

	if got := img.FetchR(-5, 0, 0); got != 0 {
		t.Fatalf("expected clamped fetch to return 0; got %f", got)
	}
	if got := img.FetchR(7, 3, 3); got != 1 {
		t.Fatalf("expected clamped fetch to return 1; got %f", got)
	}
	if got := img.SampleLinear(types.XYZ(0.5, 0.5, 0.5)); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("expected linear sample at the center to be 0.5; got %f", got)
	}
	if got := img.SampleNearest(types.XYZ(0.74, 0.5, 0.5)); got != 1 {
		t.Fatalf("expected nearest sample to be 1; got %f", got)
	}

	img.Store(5, 0, 0, types.XYZW(0, 0, 0, 0))
	if got := img.FetchR(1, 0, 0); got != 1 {
		t.Fatalf("expected out of range store to be discarded; got %f", got)
	}

	if err := dev.WriteImage(img, []byte{1}); err == nil {
		t.Fatal("expected short write to fail")
	}
}

func TestGenerateBricks(t *testing.T) {
	dev := openDevice(t)

	const res = 16
	data := make([]byte, res*res*res)
	for i := range data {
		data[i] = byte((i * 7) % 256)
	}
	vol := newTestImage(t, dev, volumeDesc(res, res, res), data)

	brickRes := 3
	bricks := newTestImage(t, dev, compute.ImageDesc{
		Width: brickRes, Height: brickRes, Depth: brickRes,
		Format: compute.ImageFormat{Order: compute.RG, Type: compute.UNorm8},
	}, nil)

	k, err := dev.Kernel(kernel.GenerateBricks.String())
	if err != nil {
		t.Fatal(err)
	}
	if err = k.SetArgs(vol, bricks); err != nil {
		t.Fatal(err)
	}
	global := compute.RoundUp(brickRes, 4)
	if _, err = k.Exec3D(global, global, global, 4, 4, 4); err != nil {
		t.Fatal(err)
	}

	for bz := 0; bz < brickRes; bz++ {
		for by := 0; by < brickRes; by++ {
			for bx := 0; bx < brickRes; bx++ {
				x0, x1 := kernel.BrickRange(bx, res, brickRes)
				y0, y1 := kernel.BrickRange(by, res, brickRes)
				z0, z1 := kernel.BrickRange(bz, res, brickRes)
				lo, hi := byte(255), byte(0)
				for z := z0; z < z1; z++ {
					for y := y0; y < y1; y++ {
						for x := x0; x < x1; x++ {
							v := data[(z*res+y)*res+x]
							lo, hi = min(lo, v), max(hi, v)
						}
					}
				}

				got := bricks.Fetch(bx, by, bz)
				if got[0] != float32(lo)/255 || got[1] != float32(hi)/255 {
					t.Fatalf("brick (%d, %d, %d): expected range [%d, %d]; got [%f, %f]", bx, by, bz, lo, hi, got[0]*255, got[1]*255)
				}
			}
		}
	}
}

func TestDownsampling(t *testing.T) {
	dev := openDevice(t)

	// Each 2x2x2 block averages to 10 * its z index + 1.
	const res = 8
	data := make([]byte, res*res*res)
	for z := 0; z < res; z++ {
		for y := 0; y < res; y++ {
			for x := 0; x < res; x++ {
				v := (z/2)*10 + (x%2)*2 - 1
				data[(z*res+y)*res+x] = byte(v + 1)
			}
		}
	}
	vol := newTestImage(t, dev, volumeDesc(res, res, res), data)
	out := newTestImage(t, dev, compute.ImageDesc{
		Width: res / 2, Height: res / 2, Depth: res / 2,
		Format: compute.ImageFormat{Order: compute.R, Type: compute.Float32},
	}, nil)

	k, err := dev.Kernel(kernel.Downsampling.String())
	if err != nil {
		t.Fatal(err)
	}
	if err = k.SetArgs(vol, out); err != nil {
		t.Fatal(err)
	}
	if _, err = k.Exec3D(4, 4, 4, 4, 4, 4); err != nil {
		t.Fatal(err)
	}

	for z := 0; z < res/2; z++ {
		exp := float32(z*10+1) / 255
		for x := 0; x < res/2; x++ {
			if got := out.FetchR(x, 1, z); math.Abs(float64(got-exp)) > 1e-5 {
				t.Fatalf("voxel (%d, 1, %d): expected %f; got %f", x, z, exp, got)
			}
		}
	}
}

type renderFixture struct {
	dev  *Device
	args kernel.RenderArgs
	vol  *Image
	out  *Image
	acc  [2]*Image
	hit  [2]*Image
}

const fixtureSize = 16

func newRenderFixture(t *testing.T, tfColor [4]byte) *renderFixture {
	dev := openDevice(t)
	f := &renderFixture{dev: dev}

	data := make([]byte, fixtureSize*fixtureSize*fixtureSize)
	for i := range data {
		data[i] = 200
	}
	f.vol = newTestImage(t, dev, volumeDesc(fixtureSize, fixtureSize, fixtureSize), data)

	tf := make([]byte, 1024*4)
	prefix := make([]byte, 1024*4)
	var sum uint32
	for i := 0; i < 1024; i++ {
		copy(tf[i*4:], tfColor[:])
		if tfColor[3] != 0 {
			sum++
		}
		binary.LittleEndian.PutUint32(prefix[i*4:], sum)
	}
	tff := newTestImage(t, dev, compute.ImageDesc{Width: 1024, Format: compute.ImageFormat{Order: compute.RGBA, Type: compute.UNorm8}}, tf)
	tffPrefix := newTestImage(t, dev, compute.ImageDesc{Width: 1024, Format: compute.ImageFormat{Order: compute.R, Type: compute.UInt32}}, prefix)

	bricks := newTestImage(t, dev, compute.ImageDesc{
		Width: 2, Height: 2, Depth: 2,
		Format: compute.ImageFormat{Order: compute.RG, Type: compute.UNorm8},
	}, nil)
	bk, _ := dev.Kernel(kernel.GenerateBricks.String())
	if err := bk.SetArgs(f.vol, bricks); err != nil {
		t.Fatal(err)
	}
	if _, err := bk.Exec3D(4, 4, 4, 4, 4, 4); err != nil {
		t.Fatal(err)
	}

	rgba := compute.ImageDesc{Width: fixtureSize, Height: fixtureSize, Format: compute.ImageFormat{Order: compute.RGBA, Type: compute.Float32}}
	f.out = newTestImage(t, dev, rgba, nil)
	f.acc[0] = newTestImage(t, dev, rgba, nil)
	f.acc[1] = newTestImage(t, dev, rgba, nil)

	hitDesc := compute.ImageDesc{Width: fixtureSize/8 + 1, Height: fixtureSize/8 + 1, Format: compute.ImageFormat{Order: compute.R, Type: compute.UInt8}}
	seed := make([]byte, hitDesc.Size())
	for i := range seed {
		seed[i] = 1
	}
	f.hit[0] = newTestImage(t, dev, hitDesc, seed)
	f.hit[1] = newTestImage(t, dev, hitDesc, seed)

	view := types.Ident4()
	view[14] = 3
	cam := kernel.DefaultCameraParams()
	cam.View = view

	rendering := kernel.DefaultRenderingParams()
	rendering.Illumination = kernel.IllumOff
	raycast := kernel.DefaultRaycastParams()
	raycast.Bricks = [3]uint32{2, 2, 2}

	f.args = kernel.RenderArgs{
		Volume:        f.vol,
		Bricks:        bricks,
		TFF:           tff,
		Output:        f.out,
		TFFPrefix:     tffPrefix,
		InAccumulate:  f.acc[0],
		OutAccumulate: f.acc[1],
		InHit:         f.hit[0],
		OutHit:        f.hit[1],
		Camera:        cam,
		Rendering:     rendering,
		Raycast:       raycast,
		Pathtrace:     kernel.DefaultPathtraceParams(),
	}
	return f
}

func (f *renderFixture) render(t *testing.T) {
	k, err := f.dev.Kernel(kernel.VolumeRender.String())
	if err != nil {
		t.Fatal(err)
	}
	list, err := f.args.List()
	if err != nil {
		t.Fatal(err)
	}
	if err = k.SetArgs(list...); err != nil {
		t.Fatal(err)
	}
	if _, err = k.Exec2D(fixtureSize, fixtureSize, 8, 8); err != nil {
		t.Fatal(err)
	}
}

func TestRaycastOpaqueVolume(t *testing.T) {
	f := newRenderFixture(t, [4]byte{255, 0, 0, 255})
	f.render(t)

	center := f.out.Fetch(fixtureSize/2, fixtureSize/2, 0)
	if center[0] < 0.9 || center[1] > 0.1 || center[2] > 0.1 {
		t.Fatalf("expected center pixel to be red; got %v", center)
	}
	if acc := f.acc[1].Fetch(fixtureSize/2, fixtureSize/2, 0); acc != center {
		t.Fatalf("expected accumulation output to match the frame; got %v and %v", acc, center)
	}
}

func TestRaycastTransparentVolume(t *testing.T) {
	specs := []struct {
		descr  string
		objESS bool
		imgESS bool
	}{
		{"no ESS", false, false},
		{"object-order ESS", true, false},
		{"image-order ESS", false, true},
	}

	for _, spec := range specs {
		f := newRenderFixture(t, [4]byte{255, 0, 0, 0})
		if !spec.objESS {
			f.args.Raycast.Bricks = [3]uint32{}
		}
		f.args.Rendering.ImgESS = spec.imgESS
		f.render(t)

		for y := 0; y < fixtureSize; y++ {
			for x := 0; x < fixtureSize; x++ {
				if got := f.out.Fetch(x, y, 0); got != types.XYZW(1, 1, 1, 1) {
					t.Fatalf("[%s] expected pixel (%d, %d) to show the background; got %v", spec.descr, x, y, got)
				}
			}
		}

		if spec.imgESS {
			for ty := 0; ty < 2; ty++ {
				for tx := 0; tx < 2; tx++ {
					if f.hit[1].FetchUint(tx, ty, 0) != 0 {
						t.Fatalf("[%s] expected tile (%d, %d) to be marked as empty", spec.descr, tx, ty)
					}
				}
			}
		}
	}
}

func TestImageOrderESSSkipsEmptyTiles(t *testing.T) {
	f := newRenderFixture(t, [4]byte{255, 0, 0, 255})
	f.args.Rendering.ImgESS = true

	// No tile hit anything in the previous frame.
	if err := f.dev.WriteImage(f.hit[0], make([]byte, f.hit[0].desc.Size())); err != nil {
		t.Fatal(err)
	}
	f.render(t)

	if got := f.out.Fetch(fixtureSize/2, fixtureSize/2, 0); got != types.XYZW(1, 1, 1, 1) {
		t.Fatalf("expected skipped tile to show the background; got %v", got)
	}
}

func TestPathtraceAccumulation(t *testing.T) {
	f := newRenderFixture(t, [4]byte{255, 0, 0, 0})
	f.args.Rendering.Technique = kernel.Pathtrace
	f.args.Rendering.Iteration = 1

	// The previous estimate is black; a white sample must average to grey.
	prev := make([]byte, f.acc[0].desc.Size())
	for off := 12; off < len(prev); off += 16 {
		binary.LittleEndian.PutUint32(prev[off:], math.Float32bits(1))
	}
	if err := f.dev.WriteImage(f.acc[0], prev); err != nil {
		t.Fatal(err)
	}
	f.render(t)

	got := f.out.Fetch(3, 4, 0)
	if got != types.XYZW(0.5, 0.5, 0.5, 1) {
		t.Fatalf("expected accumulated pixel to be (0.5, 0.5, 0.5, 1); got %v", got)
	}
}

func TestPathtraceDeterministic(t *testing.T) {
	var frames [2]types.Vec4
	for i := range frames {
		f := newRenderFixture(t, [4]byte{200, 100, 50, 40})
		f.args.Rendering.Technique = kernel.Pathtrace
		f.args.Rendering.Seed = 7
		f.render(t)
		frames[i] = f.out.Fetch(fixtureSize/2, fixtureSize/2, 0)
	}
	if frames[0] != frames[1] {
		t.Fatalf("expected identical seeds to produce identical frames; got %v and %v", frames[0], frames[1])
	}
}

func TestIntersectBox(t *testing.T) {
	lo, hi := types.Splat3(-1), types.Splat3(1)
	tNear, tFar, ok := intersectBox(types.XYZ(0, 0, 3), types.XYZ(0, 0, -1), lo, hi)
	if !ok || tNear != 2 || tFar != 4 {
		t.Fatalf("expected hit at [2, 4]; got [%f, %f] (hit: %t)", tNear, tFar, ok)
	}
	if _, _, ok = intersectBox(types.XYZ(0, 3, 3), types.XYZ(0, 0, -1), lo, hi); ok {
		t.Fatal("expected ray to miss the box")
	}
	if _, _, ok = intersectBox(types.XYZ(0, 0, 3), types.XYZ(0, 0, 1), lo, hi); ok {
		t.Fatal("expected ray pointing away from the box to miss")
	}
}
