package types

// A 4x4 matrix stored in column-major order; the layout matches both
// mgl32.Mat4 and the float16 the compute kernels receive.
type Mat4 [16]float32

// The identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Multiply matrix with a 4 component column vector.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2] + m[12]*v[3],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2] + m[13]*v[3],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2] + m[14]*v[3],
		m[3]*v[0] + m[7]*v[1] + m[11]*v[2] + m[15]*v[3],
	}
}

// Transform a point (w=1).
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return m.MulVec4(v.Vec4(1)).Vec3()
}

// Transform a direction (w=0).
func (m Mat4) MulDir(v Vec3) Vec3 {
	return m.MulVec4(v.Vec4(0)).Vec3()
}
