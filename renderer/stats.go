package renderer

import (
	"time"

	"github.com/achilleasa/voxray/kernel"
)

type FrameStats struct {
	// The iteration the last frame contributed.
	Iteration uint32

	Technique kernel.Technique

	// Kernel execution time of the last frame.
	RenderTime time.Duration

	// Time spent building bricks after the last transfer function change.
	BrickTime time.Duration
}
