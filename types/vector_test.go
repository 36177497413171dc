package types

import "testing"

func TestVec3Ops(t *testing.T) {
	v := XYZ(3, 0, 4)
	if v.Len() != 5 {
		t.Fatalf("expected len 5; got %f", v.Len())
	}

	n := v.Normalize()
	if n != XYZ(0.6, 0, 0.8) {
		t.Fatalf("expected normalized vector (0.6, 0, 0.8); got %v", n)
	}

	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Fatal("expected zero vector to normalize to zero")
	}

	c := XYZ(2, -3, 9).Clamp(Splat3(-1), Splat3(1))
	if c != XYZ(1, -1, 1) {
		t.Fatalf("expected clamped vector (1, -1, 1); got %v", c)
	}

	if XYZ(1, 0, 0).Cross(XYZ(0, 1, 0)) != XYZ(0, 0, 1) {
		t.Fatal("expected x cross y to be z")
	}
}

func TestMat4Transform(t *testing.T) {
	m := Ident4()
	m[12], m[13], m[14] = 1, 2, 3

	if p := m.MulPoint(XYZ(1, 1, 1)); p != XYZ(2, 3, 4) {
		t.Fatalf("expected translated point (2, 3, 4); got %v", p)
	}
	if d := m.MulDir(XYZ(1, 1, 1)); d != XYZ(1, 1, 1) {
		t.Fatalf("expected directions to ignore translation; got %v", d)
	}
}

func TestVec4Lerp(t *testing.T) {
	out := XYZW(0, 0, 0, 0).Lerp(XYZW(1, 2, 4, 8), 0.5)
	if out != XYZW(0.5, 1, 2, 4) {
		t.Fatalf("expected (0.5, 1, 2, 4); got %v", out)
	}
}
