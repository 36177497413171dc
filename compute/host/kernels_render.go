package host

import (
	"fmt"
	"math"

	"github.com/achilleasa/voxray/kernel"
	"github.com/achilleasa/voxray/types"
)

const (
	// Edge length of the screen tiles tracked by the hit images.
	hitTileSize = 8

	// Stop marching once the accumulated opacity reaches this value.
	earlyRayTermination = 0.95

	// Samples with a lower opacity do not contribute.
	minSampleAlpha = 1e-3

	maxPathBounces = 32

	// Path throughput is subject to russian roulette after this many bounces.
	minRouletteBounces = 3

	shininess = 20
)

// The decoded state of a volumeRender dispatch.
type renderPass struct {
	vol, bricks, tff, prefix *Image
	output, accIn, accOut    *Image
	hitIn, hitOut            *Image

	cam       kernel.CameraParams
	rendering kernel.RenderingParams
	raycast   kernel.RaycastParams
	pathtrace kernel.PathtraceParams

	width, height int
	res           types.Vec3
	boxMin        types.Vec3
	boxMax        types.Vec3
	step          float32
	objESS        bool
	brickRes      [3]int
	brickCell     [3]int
}

// A segment of a ray inside the clipping box.
type ray struct {
	origin, dir types.Vec3
	tNear, tFar float32
}

// volumeRender renders one frame. See kernel.RenderArgs for the argument
// layout.
func volumeRender(args []interface{}) (func(wg workGroup), error) {
	ra, err := kernel.DecodeRenderArgs(args)
	if err != nil {
		return nil, err
	}

	images := make([]*Image, kernel.ArgCamera)
	for i := range images {
		if images[i], err = imageArg(args, i); err != nil {
			return nil, err
		}
	}

	rp := &renderPass{
		vol:       images[kernel.ArgVolume],
		bricks:    images[kernel.ArgBricks],
		tff:       images[kernel.ArgTFF],
		output:    images[kernel.ArgOutput],
		prefix:    images[kernel.ArgTFFPrefix],
		accIn:     images[kernel.ArgInAccumulate],
		accOut:    images[kernel.ArgOutAccumulate],
		hitIn:     images[kernel.ArgInHit],
		hitOut:    images[kernel.ArgOutHit],
		cam:       ra.Camera,
		rendering: ra.Rendering,
		raycast:   ra.Raycast,
		pathtrace: ra.Pathtrace,
	}
	if rp.vol.desc.Dims() != 3 {
		return nil, fmt.Errorf("volume must be a 3D image")
	}
	if rp.output.desc.Dims() != 2 {
		return nil, fmt.Errorf("output must be a 2D image")
	}
	rp.width, rp.height = rp.output.w, rp.output.h
	rp.res = types.XYZ(float32(rp.vol.w), float32(rp.vol.h), float32(rp.vol.d))

	ms := rp.rendering.ModelScale
	rp.boxMin = rp.cam.BBoxMin.MulVec(ms)
	rp.boxMax = rp.cam.BBoxMax.MulVec(ms)

	samplingRate := rp.raycast.SamplingRate
	if samplingRate <= 0 {
		samplingRate = 1
	}
	rp.raycast.SamplingRate = samplingRate
	voxel := float32(math.MaxFloat32)
	for i := 0; i < 3; i++ {
		voxel = min(voxel, 2*ms[i]/rp.res[i])
	}
	rp.step = voxel / samplingRate

	rp.objESS = true
	for i, n := range rp.raycast.Bricks {
		if n == 0 {
			rp.objESS = false
			break
		}
		rp.brickRes[i] = int(n)
	}
	if rp.objESS {
		volRes := [3]int{rp.vol.w, rp.vol.h, rp.vol.d}
		for i := range rp.brickRes {
			rp.brickCell[i] = kernel.BrickCellSize(volRes[i], rp.brickRes[i])
		}
	}

	return rp.renderGroup, nil
}

func (rp *renderPass) renderGroup(wg workGroup) {
	tileX := wg.id[0] * wg.size[0] / hitTileSize
	tileY := wg.id[1] * wg.size[1] / hitTileSize

	render := !rp.rendering.ImgESS || rp.tileVisible(tileX, tileY)
	var hit bool
	wg.forEach(func(gid [3]int) {
		x, y := gid[0], gid[1]
		if x >= rp.width || y >= rp.height {
			return
		}

		color := rp.rendering.Background.Vec3()
		if render {
			var alpha float32
			color, alpha = rp.trace(x, y)
			if alpha > 0 {
				hit = true
			}
		}
		rp.accumulate(x, y, color)
	})

	if rp.rendering.ImgESS {
		var flag uint32
		if hit {
			flag = 1
		}
		rp.hitOut.StoreUint(tileX, tileY, 0, flag)
	}
}

// A tile is rendered if it or any of its neighbors hit the volume in the
// previous frame.
func (rp *renderPass) tileVisible(tileX, tileY int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if rp.hitIn.FetchUint(tileX+dx, tileY+dy, 0) != 0 {
				return true
			}
		}
	}
	return false
}

func (rp *renderPass) accumulate(x, y int, color types.Vec3) {
	sample := color.Vec4(1)
	if rp.rendering.Technique == kernel.Pathtrace && rp.rendering.Iteration > 0 {
		iter := float32(rp.rendering.Iteration)
		prev := rp.accIn.Fetch(x, y, 0)
		sample = prev.Mul(iter).Add(sample).Mul(1 / (iter + 1))
	}
	rp.accOut.Store(x, y, 0, sample)
	rp.output.Store(x, y, 0, sample)
}

// Generate the primary ray for pixel (x, y).
func (rp *renderPass) primaryRay(x, y int) ray {
	aspect := float32(rp.width) / float32(rp.height)
	u := (2*(float32(x)+0.5)/float32(rp.width) - 1) * aspect
	v := 1 - 2*(float32(y)+0.5)/float32(rp.height)

	view := rp.cam.View
	if rp.cam.Ortho {
		return ray{
			origin: view.MulPoint(types.XYZ(u, v, 0)),
			dir:    view.MulDir(types.XYZ(0, 0, -1)).Normalize(),
		}
	}
	return ray{
		origin: view.MulPoint(types.XYZ(0, 0, 0)),
		dir:    view.MulDir(types.XYZ(u, v, -2)).Normalize(),
	}
}

// Returns the pixel color and the opacity the volume contributed to it.
func (rp *renderPass) trace(x, y int) (types.Vec3, float32) {
	bg := rp.rendering.Background.Vec3()
	r := rp.primaryRay(x, y)

	var ok bool
	r.tNear, r.tFar, ok = intersectBox(r.origin, r.dir, rp.boxMin, rp.boxMax)
	if !ok {
		return bg, 0
	}
	r.tNear = max(r.tNear, 0)

	rnd := newRNG(rp.rendering.Seed, x, y, rp.rendering.Iteration)
	if rp.rendering.Technique == kernel.Pathtrace {
		return rp.pathtraceRay(r, &rnd)
	}
	return rp.raycastRay(r, &rnd)
}

// Map a model space point to normalized texture coordinates.
func (rp *renderPass) texCoords(p types.Vec3) types.Vec3 {
	ms := rp.rendering.ModelScale
	return types.XYZ(
		(p[0]/ms[0]+1)*0.5,
		(p[1]/ms[1]+1)*0.5,
		(p[2]/ms[2]+1)*0.5,
	)
}

func (rp *renderPass) density(tc types.Vec3) float32 {
	if rp.rendering.Linear {
		return rp.vol.SampleLinear(tc)
	}
	return rp.vol.SampleNearest(tc)
}

func (rp *renderPass) classify(d float32) types.Vec4 {
	return rp.tff.Sample1D(clampF(d, 0, 1))
}

func (rp *renderPass) raycastRay(r ray, rnd *rng) (types.Vec3, float32) {
	bg := rp.rendering.Background.Vec3()
	var (
		rgb     types.Vec3
		alpha   float32
		skipped int
	)
	diag := rp.boxMax.Sub(rp.boxMin).Len()

	t := r.tNear + rnd.float()*rp.step
	for t < r.tFar && alpha < earlyRayTermination {
		p := r.origin.Add(r.dir.Mul(t))
		tc := rp.texCoords(p)

		if rp.objESS {
			if b, empty := rp.emptyBrick(tc); empty {
				t = max(rp.brickExit(r, b), t) + rp.step*0.01
				skipped++
				continue
			}
		}

		sample := rp.classify(rp.density(tc))
		if sample[3] > minSampleAlpha {
			a := 1 - float32(math.Pow(float64(1-clampF(sample[3], 0, 1)), float64(1/rp.raycast.SamplingRate)))
			color := sample.Vec3()

			needGradient := rp.rendering.Illumination != kernel.IllumOff || rp.rendering.UseGradient || rp.raycast.Contours
			if needGradient {
				grad := rp.gradient(tc)
				gradLen := grad.Len()
				if rp.rendering.UseGradient {
					a *= clampF(gradLen*4, 0, 1)
				}
				color = rp.shade(color, grad, r.dir)
				if rp.raycast.Contours && gradLen > floatEpsilon {
					if abs(grad.Normalize().Dot(r.dir)) < 0.15 {
						color = color.Mul(0.05)
					}
				}
			}
			if rp.raycast.AO {
				color = color.Mul(rp.ambientOcclusion(tc))
			}
			if rp.raycast.Aerial && diag > 0 {
				f := clampF((t-r.tNear)/diag, 0, 1) * 0.6
				color = color.Add(bg.Sub(color).Mul(f))
			}

			rgb = rgb.Add(color.Mul((1 - alpha) * a))
			alpha += (1 - alpha) * a
		}
		t += rp.step
	}

	if rp.rendering.ShowESS && skipped > 0 {
		f := min(0.5, float32(skipped)*0.05)
		rgb = rgb.Add(types.XYZ(0.2, 0.4, 1).Sub(rgb).Mul(f))
		alpha = max(alpha, f)
	}

	return rgb.Add(bg.Mul(1 - alpha)), alpha
}

// Delta tracking through the majorant medium.
func (rp *renderPass) pathtraceRay(r ray, rnd *rng) (types.Vec3, float32) {
	bg := rp.rendering.Background.Vec3()
	maxExt := rp.pathtrace.MaxExtinction
	if maxExt <= 0 {
		return bg, 0
	}

	throughput := types.Splat3(1)
	origin, dir := r.origin, r.dir
	t, tFar := r.tNear, r.tFar
	var collided bool
	for bounce := 0; bounce < maxPathBounces; {
		t -= float32(math.Log(float64(1-rnd.float()))) / maxExt
		if t >= tFar {
			if !collided {
				return bg, 0
			}
			return throughput.MulVec(bg), 1
		}

		p := origin.Add(dir.Mul(t))
		sample := rp.classify(rp.density(rp.texCoords(p)))
		if rnd.float() >= sample[3] {
			// null collision
			continue
		}

		collided = true
		bounce++
		throughput = throughput.MulVec(sample.Vec3())
		if bounce > minRouletteBounces {
			q := max(throughput[0], throughput[1], throughput[2])
			if rnd.float() >= q {
				return types.Vec3{}, 1
			}
			throughput = throughput.Mul(1 / q)
		}

		origin, dir = p, sampleSphere(rnd)
		var ok bool
		if _, tFar, ok = intersectBox(origin, dir, rp.boxMin, rp.boxMax); !ok {
			return throughput.MulVec(bg), 1
		}
		t = 0
	}
	return types.Vec3{}, 1
}

// Locate the brick containing tc and check whether every value inside it
// maps to a transparent transfer function entry.
func (rp *renderPass) emptyBrick(tc types.Vec3) ([3]int, bool) {
	volRes := [3]int{rp.vol.w, rp.vol.h, rp.vol.d}
	var b [3]int
	for i := range b {
		v := int(floorF(clampF(tc[i], 0, 1) * float32(volRes[i])))
		b[i] = clampInt(v/rp.brickCell[i], 0, rp.brickRes[i]-1)
	}
	mm := rp.bricks.Fetch(b[0], b[1], b[2])
	return b, rp.rangeTransparent(mm[0], mm[1])
}

// Query the transfer function prefix sum for a [lo, hi] value range. The
// range is padded by one entry to cover linear TF filtering.
func (rp *renderPass) rangeTransparent(lo, hi float32) bool {
	last := rp.prefix.w - 1
	from := clampInt(int(clampF(lo, 0, 1)*float32(last))-1, 0, last)
	to := clampInt(int(clampF(hi, 0, 1)*float32(last))+1, 0, last)
	var before uint32
	if from > 0 {
		before = rp.prefix.FetchUint(from-1, 0, 0)
	}
	return rp.prefix.FetchUint(to, 0, 0)-before == 0
}

// Ray parameter where r leaves brick b.
func (rp *renderPass) brickExit(r ray, b [3]int) float32 {
	ms := rp.rendering.ModelScale
	var lo, hi types.Vec3
	for i := range b {
		cell := float32(rp.brickCell[i])
		lo[i] = (float32(b[i])*cell/rp.res[i]*2 - 1) * ms[i]
		hi[i] = (float32(b[i]+1)*cell/rp.res[i]*2 - 1) * ms[i]
	}
	_, tFar, _ := intersectBox(r.origin, r.dir, lo, hi)
	return tFar
}

// Gradient of the scalar field at tc using the active illumination mode's
// operator.
func (rp *renderPass) gradient(tc types.Vec3) types.Vec3 {
	h := types.XYZ(1/rp.res[0], 1/rp.res[1], 1/rp.res[2])
	value := rp.density
	if rp.rendering.Illumination == kernel.IllumCentralDiffTF {
		value = func(tc types.Vec3) float32 {
			return rp.classify(rp.density(tc))[3]
		}
	}

	if rp.rendering.Illumination == kernel.IllumSobel {
		return rp.sobel(tc, h)
	}

	var g types.Vec3
	for i := 0; i < 3; i++ {
		var off types.Vec3
		off[i] = h[i]
		g[i] = (value(tc.Add(off)) - value(tc.Sub(off))) * 0.5
	}
	return g
}

// 3x3x3 Sobel operator.
func (rp *renderPass) sobel(tc, h types.Vec3) types.Vec3 {
	var g types.Vec3
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				d := [3]int{dx, dy, dz}
				s := rp.density(tc.Add(types.XYZ(float32(dx)*h[0], float32(dy)*h[1], float32(dz)*h[2])))
				for axis := 0; axis < 3; axis++ {
					if d[axis] == 0 {
						continue
					}
					// Smoothing weight along the two other axes.
					w := float32(1)
					for other := 0; other < 3; other++ {
						if other != axis && d[other] == 0 {
							w *= 2
						}
					}
					g[axis] += float32(d[axis]) * w * s
				}
			}
		}
	}
	return g.Mul(1.0 / 32)
}

// Apply the illumination model to a sample color.
func (rp *renderPass) shade(color, grad, dir types.Vec3) types.Vec3 {
	mode := rp.rendering.Illumination
	if mode == kernel.IllumOff {
		return color
	}
	if mode == kernel.IllumGradientMagnitude {
		return color.Mul(clampF(grad.Len()*4, 0, 1))
	}
	if grad.Len() < floatEpsilon {
		return color
	}

	// Headlight: the light travels along the view direction.
	n := grad.Mul(-1).Normalize()
	l := dir.Mul(-1)
	ndl := abs(n.Dot(l))

	if mode == kernel.IllumCel {
		if ndl < 0.2 {
			return types.Vec3{}
		}
		q := floorF(ndl*4) / 4
		return color.Mul(0.3 + 0.7*q)
	}

	spec := float32(math.Pow(float64(ndl), shininess))
	return color.Mul(0.3 + 0.7*ndl).Add(types.Splat3(0.2 * spec))
}

// Occlusion estimate from six axis aligned samples two voxels away.
func (rp *renderPass) ambientOcclusion(tc types.Vec3) float32 {
	var occ float32
	for axis := 0; axis < 3; axis++ {
		for _, sign := range []float32{-1, 1} {
			var off types.Vec3
			off[axis] = sign * 2 / rp.res[axis]
			occ += rp.classify(rp.density(tc.Add(off)))[3]
		}
	}
	return 1 - 0.6*occ/6
}

const floatEpsilon = 1e-6

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Slab test. Returns the entry and exit ray parameters.
func intersectBox(origin, dir, boxMin, boxMax types.Vec3) (float32, float32, bool) {
	tNear := float32(math.Inf(-1))
	tFar := float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		d := dir[i]
		if abs(d) < floatEpsilon {
			if origin[i] < boxMin[i] || origin[i] > boxMax[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (boxMin[i] - origin[i]) / d
		t1 := (boxMax[i] - origin[i]) / d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = max(tNear, t0)
		tFar = min(tFar, t1)
	}
	return tNear, tFar, tFar >= max(tNear, 0)
}

// Uniform direction on the unit sphere.
func sampleSphere(rnd *rng) types.Vec3 {
	z := 1 - 2*rnd.float()
	r := float32(math.Sqrt(float64(max(0, 1-z*z))))
	phi := 2 * math.Pi * float64(rnd.float())
	return types.XYZ(r*float32(math.Cos(phi)), r*float32(math.Sin(phi)), z)
}
