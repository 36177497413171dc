package host

import (
	"fmt"
	"reflect"
	"time"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/types"
	"golang.org/x/sync/errgroup"
)

// A work-group of a dispatch.
type workGroup struct {
	id     [3]int
	size   [3]int
	global [3]int
}

// Invoke fn for every work item of the group in local id order.
func (wg workGroup) forEach(fn func(gid [3]int)) {
	for lz := 0; lz < wg.size[2]; lz++ {
		for ly := 0; ly < wg.size[1]; ly++ {
			for lx := 0; lx < wg.size[0]; lx++ {
				fn([3]int{
					wg.id[0]*wg.size[0] + lx,
					wg.id[1]*wg.size[1] + ly,
					wg.id[2]*wg.size[2] + lz,
				})
			}
		}
	}
}

// A kernelFunc decodes the bound arguments and returns the function that
// processes a single work-group. Work-groups may run concurrently; the items
// of a group always run sequentially on the same goroutine.
type kernelFunc func(args []interface{}) (func(wg workGroup), error)

// Kernel is a host kernel instance with its bound arguments.
type Kernel struct {
	device *Device
	name   string
	fn     kernelFunc
	args   []interface{}
}

func (k *Kernel) Name() string {
	return k.name
}

// Release the kernel.
func (k *Kernel) Release() {
	k.args = nil
}

// Bind arguments to kernel.
func (k *Kernel) SetArgs(args ...interface{}) error {
	bound := make([]interface{}, len(args))
	for argIndex, arg := range args {
		switch v := arg.(type) {
		case compute.Image:
			img, err := k.device.image(v)
			if err != nil {
				return fmt.Errorf("host device (%s): could not set arg %d for kernel %s: %w", k.device.name, argIndex, k.name, err)
			}
			bound[argIndex] = img
		case []byte:
			bound[argIndex] = append([]byte(nil), v...)
		case int32, uint32, float32, types.Vec3, types.Vec4:
			bound[argIndex] = v
		default:
			return fmt.Errorf(
				"host device (%s): could not set arg %d for kernel %s; %w: %s",
				k.device.name,
				argIndex,
				k.name,
				compute.ErrUnsupportedArg,
				reflect.TypeOf(arg),
			)
		}
	}
	k.args = bound
	return nil
}

// Execute 2D kernel.
func (k *Kernel) Exec2D(globalX, globalY, localX, localY int) (time.Duration, error) {
	return k.exec([3]int{globalX, globalY, 1}, [3]int{localX, localY, 1})
}

// Execute 3D kernel.
func (k *Kernel) Exec3D(globalX, globalY, globalZ, localX, localY, localZ int) (time.Duration, error) {
	return k.exec([3]int{globalX, globalY, globalZ}, [3]int{localX, localY, localZ})
}

func (k *Kernel) exec(global, local [3]int) (time.Duration, error) {
	var groups [3]int
	for i := 0; i < 3; i++ {
		if local[i] <= 0 || global[i] <= 0 || global[i]%local[i] != 0 {
			return 0, fmt.Errorf("host device (%s): unable to execute kernel %s: %w (global %v, local %v)", k.device.name, k.name, compute.ErrInvalidWorkGroupSize, global, local)
		}
		groups[i] = global[i] / local[i]
	}

	tick := time.Now()
	runGroup, err := k.fn(k.args)
	if err != nil {
		return 0, fmt.Errorf("host device (%s): unable to execute kernel %s: %w", k.device.name, k.name, err)
	}

	var g errgroup.Group
	g.SetLimit(k.device.workers)
	for gz := 0; gz < groups[2]; gz++ {
		for gy := 0; gy < groups[1]; gy++ {
			for gx := 0; gx < groups[0]; gx++ {
				wg := workGroup{id: [3]int{gx, gy, gz}, size: local, global: global}
				g.Go(func() error {
					runGroup(wg)
					return nil
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("host device (%s): kernel %s did not complete successfully: %w", k.device.name, k.name, err)
	}

	return time.Since(tick), nil
}

// Decode a positional image argument.
func imageArg(args []interface{}, index int) (*Image, error) {
	if index >= len(args) {
		return nil, fmt.Errorf("missing arg %d", index)
	}
	img, ok := args[index].(*Image)
	if !ok {
		return nil, fmt.Errorf("arg %d must be an image", index)
	}
	return img, nil
}
