package tfunc

import (
	"bytes"
	"testing"
)

func TestSampleIsIdempotent(t *testing.T) {
	points := []ControlPoint{
		{Position: 0, Color: [4]uint8{0, 0, 255, 0}},
		{Position: 0.3, Color: [4]uint8{255, 0, 0, 40}},
		{Position: 1, Color: [4]uint8{255, 255, 0, 255}},
	}

	for _, mode := range []Interpolation{Linear, EaseInOutQuad, EaseInOutCubic} {
		a, err := Sample(points, mode)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Sample(points, mode)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a.RGBA, b.RGBA) {
			t.Fatalf("[%s] expected identical tables for identical inputs", mode)
		}
	}
}

func TestBlackToWhiteRamp(t *testing.T) {
	table, err := Sample([]ControlPoint{
		{Position: 0, Color: [4]uint8{0, 0, 0, 255}},
		{Position: 1, Color: [4]uint8{255, 255, 255, 255}},
	}, Linear)
	if err != nil {
		t.Fatal(err)
	}

	if len(table.RGBA) != Samples*4 || len(table.PrefixSum) != Samples {
		t.Fatalf("expected %d samples; got %d RGBA bytes and %d prefix sum entries", Samples, len(table.RGBA), len(table.PrefixSum))
	}

	var alphaSum uint32
	for i := 0; i < Samples; i++ {
		alpha := table.RGBA[i*4+3]
		if i > 0 && alpha < table.RGBA[(i-1)*4+3] {
			t.Fatalf("expected alpha to be non-decreasing; sample %d has %d after %d", i, alpha, table.RGBA[(i-1)*4+3])
		}
		if i > 0 && table.RGBA[i*4] < table.RGBA[(i-1)*4] {
			t.Fatalf("expected red to be non-decreasing at sample %d", i)
		}
		alphaSum += uint32(alpha)
	}
	if last := table.PrefixSum[Samples-1]; last != alphaSum {
		t.Fatalf("expected last prefix sum entry %d; got %d", alphaSum, last)
	}

	// Opaque alpha is biased by 3.
	if table.RGBA[3] != 252 {
		t.Fatalf("expected biased alpha 252; got %d", table.RGBA[3])
	}
	// First sample clamps at zero after the bias.
	if table.RGBA[0] != 0 {
		t.Fatalf("expected first red sample to be 0; got %d", table.RGBA[0])
	}
}

func TestSampleLinearValues(t *testing.T) {
	table, err := Sample(DefaultRamp(), Linear)
	if err != nil {
		t.Fatal(err)
	}

	// Sample 512 sits at progress 0.5: int(255*0.5)-3 = 124.
	if got := table.RGBA[512*4]; got != 124 {
		t.Fatalf("expected sample 512 to be 124; got %d", got)
	}
	// Last sample at progress 1023/1024: int(255*0.999)-3 = 251.
	if got := table.RGBA[1023*4+3]; got != 251 {
		t.Fatalf("expected last alpha sample to be 251; got %d", got)
	}
}

func TestEasingCurves(t *testing.T) {
	for _, mode := range []Interpolation{Linear, EaseInOutQuad, EaseInOutCubic} {
		if v := mode.ease(0); v != 0 {
			t.Fatalf("[%s] expected ease(0) = 0; got %f", mode, v)
		}
		if v := mode.ease(1); v != 1 {
			t.Fatalf("[%s] expected ease(1) = 1; got %f", mode, v)
		}
		if v := mode.ease(0.5); v != 0.5 {
			t.Fatalf("[%s] expected ease(0.5) = 0.5; got %f", mode, v)
		}
	}
	if v := EaseInOutQuad.ease(0.25); v != 0.125 {
		t.Fatalf("expected quad ease(0.25) = 0.125; got %f", v)
	}
	if v := EaseInOutCubic.ease(0.25); v != 0.0625 {
		t.Fatalf("expected cubic ease(0.25) = 0.0625; got %f", v)
	}
}

func TestSampleErrors(t *testing.T) {
	if _, err := Sample(nil, Linear); err != ErrNoControlPoints {
		t.Fatalf("expected ErrNoControlPoints; got %v", err)
	}
	if _, err := Sample([]ControlPoint{{Position: 1.5}}, Linear); err == nil {
		t.Fatal("expected an error for a control point outside [0, 1]")
	}
}

func TestUnsortedAndDuplicatePoints(t *testing.T) {
	sorted, _ := Sample([]ControlPoint{
		{Position: 0, Color: [4]uint8{10, 10, 10, 10}},
		{Position: 1, Color: [4]uint8{200, 200, 200, 200}},
	}, Linear)
	shuffled, _ := Sample([]ControlPoint{
		{Position: 1, Color: [4]uint8{0, 0, 0, 0}},
		{Position: 0, Color: [4]uint8{10, 10, 10, 10}},
		{Position: 1, Color: [4]uint8{200, 200, 200, 200}},
	}, Linear)
	if !bytes.Equal(sorted.RGBA, shuffled.RGBA) {
		t.Fatal("expected point order not to matter and later duplicates to win")
	}
}
