package volume

import (
	"errors"
	"fmt"
)

var (
	ErrNoData                 = errors.New("no volume data loaded")
	ErrEmptyPath              = errors.New("empty dataset path")
	ErrMissingObjectFileName  = errors.New("missing ObjectFileName declaration")
	ErrUnknownFormat          = errors.New("unknown scalar format")
	ErrUnknownChannelOrder    = errors.New("unknown channel order")
	ErrPayloadTooSmall        = errors.New("raw payload smaller than declared resolution")
	ErrInvalidResolution      = errors.New("invalid volume resolution")
	ErrTimestepOutOfRange     = errors.New("timestep out of range")
	ErrUnresolvableResolution = errors.New("could not infer volume resolution")
)

// DatasetError reports a malformed or missing descriptor or payload. Op names
// the failed stage (read, parse, infer, histogram, write) and Path the file
// that triggered it, if any.
type DatasetError struct {
	Op   string
	Path string
	Err  error
}

func (e *DatasetError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dataset: %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("dataset: %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

func datasetErr(op, path string, err error) error {
	return &DatasetError{Op: op, Path: path, Err: err}
}
