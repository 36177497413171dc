package volume

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/voxray/log"
)

func writeTestDataset(t *testing.T, dat string, raws map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, payload := range raws {
		if err := os.WriteFile(filepath.Join(dir, name), payload, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if dat == "" {
		return dir
	}
	datPath := filepath.Join(dir, "volume.dat")
	if err := os.WriteFile(datPath, []byte(dat), 0644); err != nil {
		t.Fatal(err)
	}
	return datPath
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetSink(&buf)
	t.Cleanup(func() { log.SetSink(os.Stdout) })
	return &buf
}

func TestReadUniformUCharWithoutSliceThickness(t *testing.T) {
	logBuf := captureLog(t)
	datPath := writeTestDataset(t,
		"ObjectFileName: volume.raw\nResolution: 4 4 4\nFormat: UCHAR\n",
		map[string][]byte{"volume.raw": bytes.Repeat([]byte{128}, 64)},
	)

	r := NewReader()
	if r.HasData() {
		t.Fatal("expected reader to have no data before reading")
	}
	if err := r.Read(datPath); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(logBuf.String(), "missing slice thickness") {
		t.Fatalf("expected a slice thickness warning; got log output %q", logBuf.String())
	}

	props, err := r.Properties()
	if err != nil {
		t.Fatal(err)
	}
	if props.SliceThickness != [3]float64{1, 1, 1} {
		t.Fatalf("expected default slice thickness of 1.0; got %v", props.SliceThickness)
	}
	if props.Resolution != [4]int{4, 4, 4, 1} {
		t.Fatalf("expected resolution 4x4x4x1; got %v", props.Resolution)
	}

	hist, err := r.Histogram(0)
	if err != nil {
		t.Fatal(err)
	}
	for bin, count := range hist {
		exp := uint64(0)
		if bin == 128 {
			exp = 64
		}
		if count != exp {
			t.Fatalf("expected bin %d to contain %d samples; got %d", bin, exp, count)
		}
	}

	r.Clear()
	if r.HasData() {
		t.Fatal("expected reader to have no data after Clear")
	}
	if _, err := r.Properties(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData after Clear; got %v", err)
	}
}

func TestReadTimeSeries(t *testing.T) {
	raws := map[string][]byte{}
	for i, name := range []string{"head_t08.raw", "head_t09.raw", "head_t10.raw"} {
		payload := make([]byte, 2*3*4*2)
		for j := 0; j < len(payload)/2; j++ {
			binary.LittleEndian.PutUint16(payload[j*2:], uint16((i+1)*j))
		}
		raws[name] = payload
	}
	datPath := writeTestDataset(t,
		"ObjectFileName: head_t08.raw\nResolution: 2 3 4\nSliceThickness: 1 1 2,5\nFormat: USHORT\nTimeSeries: 3\n",
		raws,
	)

	r := NewReader()
	if err := r.Read(datPath); err != nil {
		t.Fatal(err)
	}

	props, _ := r.Properties()
	if props.Timesteps() != 3 {
		t.Fatalf("expected 3 timesteps; got %d", props.Timesteps())
	}
	if props.SliceThickness[2] != 2.5 {
		t.Fatalf("expected z slice thickness 2.5; got %f", props.SliceThickness[2])
	}

	data, err := r.Data()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 {
		t.Fatalf("expected 3 timestep buffers; got %d", len(data))
	}
	for i, ts := range data {
		if len(ts.Data) != 2*3*4*2 {
			t.Fatalf("[timestep %d] expected buffer of %d bytes; got %d", i, 2*3*4*2, len(ts.Data))
		}
		if sum := ts.Histogram.Sum(); sum != 24 {
			t.Fatalf("[timestep %d] expected histogram to sum to 24; got %d", i, sum)
		}
	}

	// max raw value is 3*23; it must be stretched to the full 16-bit range
	if props.MaxValue != 69 {
		t.Fatalf("expected max value 69; got %f", props.MaxValue)
	}
	if v := binary.LittleEndian.Uint16(data[2].Data[23*2:]); v != math.MaxUint16 {
		t.Fatalf("expected last sample to be stretched to %d; got %d", math.MaxUint16, v)
	}

	if _, err := r.Histogram(3); !errors.Is(err, ErrTimestepOutOfRange) {
		t.Fatalf("expected ErrTimestepOutOfRange; got %v", err)
	}
}

func TestReadBigEndianFloat(t *testing.T) {
	payload := make([]byte, 8*4)
	for i := 0; i < 8; i++ {
		binary.BigEndian.PutUint32(payload[i*4:], math.Float32bits(float32(i)*0.5))
	}
	datPath := writeTestDataset(t,
		"ObjectFileName: f.raw\nResolution: 2 2 2\nSliceThickness: 1 1 1\nFormat: FLOAT\nByteOrder: BIG\n",
		map[string][]byte{"f.raw": payload},
	)

	r := NewReader()
	if err := r.Read(datPath); err != nil {
		t.Fatal(err)
	}
	data, _ := r.Data()
	props, _ := r.Properties()

	if props.MinValue != 0 || props.MaxValue != 3.5 {
		t.Fatalf("expected data range [0..3.5]; got [%f..%f]", props.MinValue, props.MaxValue)
	}
	last := math.Float32frombits(binary.LittleEndian.Uint32(data[0].Data[7*4:]))
	if last != 1 {
		t.Fatalf("expected max sample to normalize to 1.0; got %f", last)
	}
	if data[0].Histogram[255] != 1 || data[0].Histogram[0] != 1 {
		t.Fatalf("expected one sample in bins 0 and 255; got %d and %d", data[0].Histogram[0], data[0].Histogram[255])
	}
}

func TestReadFloatIgnoresNonFiniteSamples(t *testing.T) {
	const voxels = 8 * 8 * 8
	payload := make([]byte, voxels*4)
	for i := 0; i < voxels; i++ {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(float32(i%8)*0.25))
	}
	binary.LittleEndian.PutUint32(payload[100*4:], math.Float32bits(float32(math.NaN())))
	binary.LittleEndian.PutUint32(payload[200*4:], math.Float32bits(float32(math.Inf(1))))
	datPath := writeTestDataset(t,
		"ObjectFileName: f.raw\nResolution: 8 8 8\nSliceThickness: 1 1 1\nFormat: FLOAT\n",
		map[string][]byte{"f.raw": payload},
	)

	r := NewReader()
	if err := r.Read(datPath); err != nil {
		t.Fatal(err)
	}
	data, _ := r.Data()
	props, _ := r.Properties()

	if props.MinValue != 0 || props.MaxValue != 1.75 {
		t.Fatalf("expected data range [0..1.75]; got [%f..%f]", props.MinValue, props.MaxValue)
	}

	var finite int
	for i := 0; i < voxels; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[0].Data[i*4:]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			if i != 100 && i != 200 {
				t.Fatalf("voxel %d: expected a finite normalized value; got %f", i, v)
			}
			continue
		}
		finite++
		if exp := float32(i%8) * 0.25 / 1.75; math.Abs(float64(v-exp)) > 1e-6 {
			t.Fatalf("voxel %d: expected %f; got %f", i, exp, v)
		}
	}
	if finite != voxels-2 {
		t.Fatalf("expected %d finite voxels; got %d", voxels-2, finite)
	}
	if sum := data[0].Histogram.Sum(); sum != voxels {
		t.Fatalf("expected histogram to hold %d samples; got %d", voxels, sum)
	}
	// The +Inf voxel joins the 64 maxima in the top bin; the NaN voxel joins
	// the 63 remaining zeros in bin 0.
	if data[0].Histogram[255] != 65 || data[0].Histogram[0] != 64 {
		t.Fatalf("expected 65 samples in bin 255 and 64 in bin 0; got %d and %d", data[0].Histogram[255], data[0].Histogram[0])
	}
}

func TestInferResolutionForRawOnlyFile(t *testing.T) {
	dir := writeTestDataset(t, "", map[string][]byte{"cube.raw": make([]byte, 7*7*7)})

	r := NewReader()
	if err := r.Read(filepath.Join(dir, "cube.raw")); err != nil {
		t.Fatal(err)
	}
	props, _ := r.Properties()
	if props.Resolution != [4]int{7, 7, 7, 1} {
		t.Fatalf("expected inferred resolution 7x7x7; got %v", props.Resolution)
	}
	if props.Format != UChar {
		t.Fatalf("expected inferred format UCHAR; got %s", props.Format)
	}
}

func TestInferFormatFromResolution(t *testing.T) {
	specs := []struct {
		payloadSize int
		expFormat   ScalarFormat
		expErr      bool
	}{
		{64, UChar, false},
		{128, UShort, false},
		{256, Float, false},
		{192, UnknownFormat, true},
	}

	for specIndex, spec := range specs {
		datPath := writeTestDataset(t,
			"ObjectFileName: v.raw\nResolution: 4 4 4\n",
			map[string][]byte{"v.raw": make([]byte, spec.payloadSize)},
		)
		r := NewReader()
		err := r.Read(datPath)
		if spec.expErr {
			var dsErr *DatasetError
			if !errors.As(err, &dsErr) {
				t.Fatalf("[spec %d] expected a DatasetError; got %v", specIndex, err)
			}
			if r.HasData() {
				t.Fatalf("[spec %d] expected failed read to leave no data", specIndex)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
		props, _ := r.Properties()
		if props.Format != spec.expFormat {
			t.Fatalf("[spec %d] expected format %s; got %s", specIndex, spec.expFormat, props.Format)
		}
	}
}

func TestReadErrors(t *testing.T) {
	r := NewReader()

	if err := r.Read(""); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath; got %v", err)
	}

	if err := r.Read(filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Fatal("expected an error for a missing descriptor")
	}

	datPath := writeTestDataset(t, "ObjectFileName: gone.raw\nResolution: 4 4 4\nFormat: UCHAR\n", nil)
	var dsErr *DatasetError
	if err := r.Read(datPath); !errors.As(err, &dsErr) {
		t.Fatalf("expected a DatasetError for a missing raw file; got %v", err)
	}

	// A failed reload must drop the previously loaded dataset.
	okPath := writeTestDataset(t,
		"ObjectFileName: ok.raw\nResolution: 2 2 2\nFormat: UCHAR\n",
		map[string][]byte{"ok.raw": make([]byte, 8)},
	)
	if err := r.Read(okPath); err != nil {
		t.Fatal(err)
	}
	shortPath := writeTestDataset(t,
		"ObjectFileName: short.raw\nResolution: 4 4 4\nFormat: USHORT\n",
		map[string][]byte{"short.raw": make([]byte, 64)},
	)
	if err := r.Read(shortPath); !errors.Is(err, ErrPayloadTooSmall) {
		t.Fatalf("expected ErrPayloadTooSmall; got %v", err)
	}
	if r.HasData() {
		t.Fatal("expected failed reload to clear the dataset")
	}
}
