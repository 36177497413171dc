package cmd

import (
	"fmt"
	"strings"

	"github.com/achilleasa/voxray/compute"
	"github.com/achilleasa/voxray/compute/host"
	"github.com/achilleasa/voxray/renderer"
	"github.com/urfave/cli"
)

type backendFactory struct {
	name string
	new  func(workers int) compute.Backend
}

// Backends in preference order. Device backends register themselves ahead of
// the host backend.
var backendFactories = []backendFactory{
	{name: "host", new: func(workers int) compute.Backend { return host.New(workers) }},
}

func registerBackend(name string, fn func(workers int) compute.Backend) {
	backendFactories = append([]backendFactory{{name: name, new: fn}}, backendFactories...)
}

// Names of the compiled-in backends.
func BackendNames() []string {
	names := make([]string, len(backendFactories))
	for i, f := range backendFactories {
		names[i] = f.name
	}
	return names
}

// Instantiate the backends selected by a comma separated list of names. An
// empty list selects all of them.
func newBackends(selection string, workers int) ([]compute.Backend, error) {
	if selection == "" || selection == "all" {
		out := make([]compute.Backend, len(backendFactories))
		for i, f := range backendFactories {
			out[i] = f.new(workers)
		}
		return out, nil
	}

	var out []compute.Backend
	for _, name := range strings.Split(selection, ",") {
		name = strings.TrimSpace(name)
		found := false
		for _, f := range backendFactories {
			if f.name == name {
				out = append(out, f.new(workers))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown backend %q; available backends: %s", name, strings.Join(BackendNames(), ", "))
		}
	}
	return out, nil
}

// Create a renderer backed by the backends selected with the global
// --backend flag.
func newRenderer(ctx *cli.Context, workers int) (*renderer.Renderer, error) {
	backends, err := newBackends(ctx.GlobalString("backend"), workers)
	if err != nil {
		return nil, err
	}
	return renderer.New(backends...), nil
}
