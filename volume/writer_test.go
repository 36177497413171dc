package volume

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndReadBack(t *testing.T) {
	props := Properties{
		Resolution:     [4]int{3, 2, 2, 1},
		SliceThickness: [3]float64{0.5, 1, 2},
		Format:         UChar,
	}
	payload := []byte{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110}

	base := filepath.Join(t.TempDir(), "small_3")
	datPath, rawPath, err := WriteDataset(base, props, payload)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(rawPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, payload) {
		t.Fatalf("expected raw file to contain the payload; got %v", raw)
	}

	r := NewReader()
	if err := r.Read(datPath); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Properties()
	if got.Resolution != props.Resolution || got.SliceThickness != props.SliceThickness || got.Format != props.Format {
		t.Fatalf("expected round-tripped properties to match; got %+v", got)
	}
}

func TestWriteRejectsShortPayload(t *testing.T) {
	props := Properties{Resolution: [4]int{4, 4, 4, 1}, Format: UShort}
	if _, _, err := WriteDataset(filepath.Join(t.TempDir(), "x"), props, make([]byte, 64)); err == nil {
		t.Fatal("expected an error for a payload smaller than the declared resolution")
	}
}
