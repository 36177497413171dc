package kernel

import (
	"fmt"

	"github.com/achilleasa/voxray/compute"
)

// Positional arguments of the volumeRender kernel.
const (
	ArgVolume = iota
	ArgBricks
	ArgTFF
	ArgOutput
	ArgTFFPrefix
	ArgInAccumulate
	ArgOutAccumulate
	ArgInHit
	ArgOutHit
	ArgCamera
	ArgRendering
	ArgRaycast
	ArgPathtrace
	numRenderArgs
)

// RenderArgs is the complete argument set of a volumeRender dispatch.
type RenderArgs struct {
	Volume    compute.Image
	Bricks    compute.Image
	TFF       compute.Image
	Output    compute.Image
	TFFPrefix compute.Image

	InAccumulate  compute.Image
	OutAccumulate compute.Image
	InHit         compute.Image
	OutHit        compute.Image

	Camera    CameraParams
	Rendering RenderingParams
	Raycast   RaycastParams
	Pathtrace PathtraceParams
}

// List flattens the arguments in kernel order. Parameter blocks are passed
// as their packed byte representation.
func (a *RenderArgs) List() ([]interface{}, error) {
	cam, err := a.Camera.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rendering, err := a.Rendering.MarshalBinary()
	if err != nil {
		return nil, err
	}
	raycast, err := a.Raycast.MarshalBinary()
	if err != nil {
		return nil, err
	}
	pathtrace, err := a.Pathtrace.MarshalBinary()
	if err != nil {
		return nil, err
	}

	list := make([]interface{}, numRenderArgs)
	list[ArgVolume] = a.Volume
	list[ArgBricks] = a.Bricks
	list[ArgTFF] = a.TFF
	list[ArgOutput] = a.Output
	list[ArgTFFPrefix] = a.TFFPrefix
	list[ArgInAccumulate] = a.InAccumulate
	list[ArgOutAccumulate] = a.OutAccumulate
	list[ArgInHit] = a.InHit
	list[ArgOutHit] = a.OutHit
	list[ArgCamera] = cam
	list[ArgRendering] = rendering
	list[ArgRaycast] = raycast
	list[ArgPathtrace] = pathtrace
	return list, nil
}

// DecodeRenderArgs is the inverse of RenderArgs.List.
func DecodeRenderArgs(list []interface{}) (*RenderArgs, error) {
	if len(list) != numRenderArgs {
		return nil, fmt.Errorf("kernel: %s expects %d args; got %d", VolumeRender, numRenderArgs, len(list))
	}

	images := make([]compute.Image, ArgCamera)
	for i := 0; i < ArgCamera; i++ {
		img, ok := list[i].(compute.Image)
		if !ok || img == nil {
			return nil, fmt.Errorf("kernel: %s arg %d must be an image", VolumeRender, i)
		}
		images[i] = img
	}

	blocks := make([][]byte, numRenderArgs-ArgCamera)
	for i := range blocks {
		b, ok := list[ArgCamera+i].([]byte)
		if !ok {
			return nil, fmt.Errorf("kernel: %s arg %d must be a parameter block", VolumeRender, ArgCamera+i)
		}
		blocks[i] = b
	}

	a := &RenderArgs{
		Volume:        images[ArgVolume],
		Bricks:        images[ArgBricks],
		TFF:           images[ArgTFF],
		Output:        images[ArgOutput],
		TFFPrefix:     images[ArgTFFPrefix],
		InAccumulate:  images[ArgInAccumulate],
		OutAccumulate: images[ArgOutAccumulate],
		InHit:         images[ArgInHit],
		OutHit:        images[ArgOutHit],
	}
	if err := a.Camera.UnmarshalBinary(blocks[0]); err != nil {
		return nil, err
	}
	if err := a.Rendering.UnmarshalBinary(blocks[1]); err != nil {
		return nil, err
	}
	if err := a.Raycast.UnmarshalBinary(blocks[2]); err != nil {
		return nil, err
	}
	if err := a.Pathtrace.UnmarshalBinary(blocks[3]); err != nil {
		return nil, err
	}
	return a, nil
}

// Decode a (source volume, destination image) argument pair as used by the
// generateBricks and downsampling kernels.
func DecodeImagePair(kt Type, list []interface{}) (compute.Image, compute.Image, error) {
	if len(list) != 2 {
		return nil, nil, fmt.Errorf("kernel: %s expects 2 args; got %d", kt, len(list))
	}
	src, ok1 := list[0].(compute.Image)
	dst, ok2 := list[1].(compute.Image)
	if !ok1 || !ok2 || src == nil || dst == nil {
		return nil, nil, fmt.Errorf("kernel: %s expects two image args", kt)
	}
	return src, dst, nil
}
