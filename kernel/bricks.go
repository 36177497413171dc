package kernel

// BrickCellSize returns the number of voxels covered by one brick along an
// axis of the given volume resolution. Brick generation and ray traversal
// must agree on this value.
func BrickCellSize(volumeRes, brickRes int) int {
	if brickRes <= 0 {
		return volumeRes
	}
	return (volumeRes + brickRes - 1) / brickRes
}

// BrickRange returns the voxel range [from, to) whose values are folded into
// brick b. The range extends one voxel past the cell on each side so that
// trilinear reconstruction near a cell boundary stays within [min, max].
func BrickRange(b, volumeRes, brickRes int) (int, int) {
	cell := BrickCellSize(volumeRes, brickRes)
	from := b*cell - 1
	to := (b+1)*cell + 1
	if from < 0 {
		from = 0
	}
	if to > volumeRes {
		to = volumeRes
	}
	return from, to
}
