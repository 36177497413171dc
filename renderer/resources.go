package renderer

import (
	"github.com/achilleasa/voxray/compute"
)

// A pair of images where one is read and the other written by a dispatch.
// Swap exchanges the roles once the dispatch succeeds.
type pingPong struct {
	images [2]compute.Image
	in     int
}

func (p *pingPong) In() compute.Image {
	return p.images[p.in]
}

func (p *pingPong) Out() compute.Image {
	return p.images[1-p.in]
}

func (p *pingPong) Swap() {
	p.in = 1 - p.in
}

func (p *pingPong) allocated() bool {
	return p.images[0] != nil && p.images[1] != nil
}

func (p *pingPong) release() {
	for i, img := range p.images {
		if img != nil {
			img.Release()
			p.images[i] = nil
		}
	}
	p.in = 0
}

// The device resources owned by the renderer.
type resourceSet struct {
	// One volume and one brick image per timestep.
	volumes []compute.Image
	bricks  []compute.Image

	// Bound in place of missing bricks.
	placeholderBrick compute.Image

	tff       compute.Image
	tffPrefix compute.Image

	output     compute.Image
	hit        pingPong
	accumulate pingPong

	kernels map[string]compute.Kernel
}

func releaseAll(images []compute.Image) {
	for _, img := range images {
		if img != nil {
			img.Release()
		}
	}
}

func (rs *resourceSet) releaseVolumes() {
	releaseAll(rs.volumes)
	releaseAll(rs.bricks)
	rs.volumes, rs.bricks = nil, nil
}

func (rs *resourceSet) releaseBricks() {
	releaseAll(rs.bricks)
	rs.bricks = nil
}

func (rs *resourceSet) releaseOutput() {
	if rs.output != nil {
		rs.output.Release()
		rs.output = nil
	}
	rs.hit.release()
	rs.accumulate.release()
}

func (rs *resourceSet) releaseTransferFunction() {
	if rs.tff != nil {
		rs.tff.Release()
		rs.tff = nil
	}
	if rs.tffPrefix != nil {
		rs.tffPrefix.Release()
		rs.tffPrefix = nil
	}
}

// Release all allocated resources.
func (rs *resourceSet) release() {
	rs.releaseVolumes()
	rs.releaseTransferFunction()
	rs.releaseOutput()
	if rs.placeholderBrick != nil {
		rs.placeholderBrick.Release()
		rs.placeholderBrick = nil
	}
	for name, k := range rs.kernels {
		k.Release()
		delete(rs.kernels, name)
	}
}
