package cmd

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestNewBackends(t *testing.T) {
	specs := []struct {
		selection string
		expErr    bool
		expFirst  string
	}{
		{"", false, backendFactories[0].name},
		{"all", false, backendFactories[0].name},
		{"host", false, "host"},
		{" host ", false, "host"},
		{"vulkan", true, ""},
	}

	for specIndex, spec := range specs {
		backends, err := newBackends(spec.selection, 1)
		if spec.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", specIndex)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if got := backends[0].Name(); got != spec.expFirst {
			t.Fatalf("[spec %d] expected first backend %q; got %q", specIndex, spec.expFirst, got)
		}
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	pixels := []float32{
		1, 0, 0, 1, 0, 1, 0, 1,
		0, 0, 1, 1, 2, -1, 0.5, 1,
	}
	if err := writePNG(path, pixels, 2, 2); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 128 {
		t.Fatalf("expected clamped pixel (255, 0, 128); got (%d, %d, %d)", r>>8, g>>8, b>>8)
	}
}
