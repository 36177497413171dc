package volume

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/achilleasa/voxray/asset"
	"github.com/achilleasa/voxray/log"
	"golang.org/x/sync/errgroup"
)

// Reader loads dat/raw datasets. A successful Read publishes the properties
// and all timesteps at once; a failed Read leaves the reader empty.
type Reader struct {
	logger log.Logger

	mu        sync.RWMutex
	props     Properties
	timesteps []Timestep
}

// Create a new dataset reader.
func NewReader() *Reader {
	return &Reader{
		logger: log.New("dataset reader"),
	}
}

// Read a dataset. Paths with a .dat extension are parsed as descriptors and
// the raw payloads they reference are resolved relative to them. Any other
// path is treated as a single raw payload with unknown resolution and format.
func (r *Reader) Read(pathToDataset string) error {
	return r.ReadContext(context.Background(), pathToDataset)
}

// ReadContext is Read with a context that can abort ingestion.
func (r *Reader) ReadContext(ctx context.Context, pathToDataset string) error {
	props, timesteps, err := r.load(ctx, pathToDataset)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.props, r.timesteps = Properties{}, nil
		return err
	}
	r.props, r.timesteps = props, timesteps
	return nil
}

func (r *Reader) load(ctx context.Context, pathToDataset string) (Properties, []Timestep, error) {
	if pathToDataset == "" {
		return Properties{}, nil, datasetErr("read", "", ErrEmptyPath)
	}

	start := time.Now()
	r.logger.Noticef("reading dataset from %s", pathToDataset)

	var desc *descriptor
	var relTo *asset.Resource
	if strings.EqualFold(path.Ext(strings.Replace(pathToDataset, `\`, `/`, -1)), ".dat") {
		datRes, err := asset.NewResource(pathToDataset, nil)
		if err != nil {
			return Properties{}, nil, datasetErr("read", pathToDataset, err)
		}
		desc, err = parseDescriptor(datRes, pathToDataset)
		datRes.Close()
		if err != nil {
			return Properties{}, nil, err
		}
		relTo = datRes
	} else {
		desc = &descriptor{
			props: Properties{
				RawFileNames: []string{pathToDataset},
				Resolution:   [4]int{0, 0, 0, 1},
			},
		}
	}
	props := desc.props

	if !desc.haveThickness {
		if desc.props.DatFileName != "" {
			r.logger.Warningf("missing slice thickness declaration in %s; assuming 1.0 in each dimension", pathToDataset)
		}
		props.SliceThickness = [3]float64{1, 1, 1}
	}

	// Fetch payloads
	payloads := make([][]byte, len(props.RawFileNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range props.RawFileNames {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := asset.NewResource(name, relTo)
			if err != nil {
				return datasetErr("read", name, err)
			}
			if payloads[i], err = res.ReadAll(); err != nil {
				return datasetErr("read", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Properties{}, nil, err
	}
	props.RawFileSize = int64(len(payloads[0]))

	// Fill in missing metadata
	if !desc.haveResolution() {
		if err := r.inferResolution(&props, props.RawFileSize); err != nil {
			return Properties{}, nil, datasetErr("infer", props.RawFileNames[0], err)
		}
	} else if props.Format == UnknownFormat {
		if err := r.inferFormat(&props, props.RawFileSize); err != nil {
			return Properties{}, nil, datasetErr("infer", props.RawFileNames[0], err)
		}
	}
	if err := props.Validate(); err != nil {
		return Properties{}, nil, datasetErr("read", pathToDataset, err)
	}

	expSize := props.TimestepSize()
	for i, payload := range payloads {
		if len(payload) < expSize {
			return Properties{}, nil, datasetErr("read", props.RawFileNames[i], ErrPayloadTooSmall)
		}
		if len(payload) > expSize {
			r.logger.Warningf("ignoring %d trailing bytes in %s", len(payload)-expSize, props.RawFileNames[i])
		}
	}

	// Normalize all timesteps
	timesteps := make([]Timestep, len(payloads))
	ranges := make([]sampleRange, len(payloads))
	g, gctx = errgroup.WithContext(ctx)
	for i := range payloads {
		i := i
		g.Go(func() error {
			var err error
			timesteps[i], ranges[i], err = normalizeTimestep(gctx, payloads[i][:expSize], props)
			if err != nil {
				return datasetErr("read", props.RawFileNames[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Properties{}, nil, err
	}

	props.MinValue, props.MaxValue = float32(ranges[0].min), float32(ranges[0].max)
	for _, rng := range ranges[1:] {
		if float32(rng.min) < props.MinValue {
			props.MinValue = float32(rng.min)
		}
		if float32(rng.max) > props.MaxValue {
			props.MaxValue = float32(rng.max)
		}
	}

	r.logger.Noticef(
		"read %d timestep(s) of %dx%dx%d %s voxels in %d ms; data range [%g..%g]",
		len(timesteps), props.Resolution[0], props.Resolution[1], props.Resolution[2],
		props.Format, time.Since(start).Nanoseconds()/1e6, props.MinValue, props.MaxValue,
	)
	return props, timesteps, nil
}

// HasData returns true if a dataset has been successfully read.
func (r *Reader) HasData() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.timesteps) != 0
}

// Properties of the loaded dataset.
func (r *Reader) Properties() (Properties, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.timesteps) == 0 {
		return Properties{}, datasetErr("properties", "", ErrNoData)
	}
	props := r.props
	props.RawFileNames = append([]string(nil), r.props.RawFileNames...)
	return props, nil
}

// Data returns the normalized timesteps of the loaded dataset. Callers must
// treat the returned buffers as read-only.
func (r *Reader) Data() ([]Timestep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.timesteps) == 0 {
		return nil, datasetErr("data", "", ErrNoData)
	}
	return append([]Timestep(nil), r.timesteps...), nil
}

// Histogram returns the histogram of timestep t.
func (r *Reader) Histogram(t int) (Histogram, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.timesteps) == 0 {
		return Histogram{}, datasetErr("histogram", "", ErrNoData)
	}
	if t < 0 || t >= len(r.timesteps) {
		return Histogram{}, datasetErr("histogram", "", ErrTimestepOutOfRange)
	}
	return r.timesteps[t].Histogram, nil
}

// Clear drops any loaded dataset.
func (r *Reader) Clear() {
	r.mu.Lock()
	r.props, r.timesteps = Properties{}, nil
	r.mu.Unlock()
}
