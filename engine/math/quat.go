package math

// Quaternion represents a rotation; W is the scalar part.
type Quaternion Vec4

func NewQuatIdentity() Quaternion { return Quaternion{0, 0, 0, 1} }

// NewQuatFromAxisAngle rotates angle radians around axis.
func NewQuatFromAxisAngle(axis Vec3, angle float32) Quaternion {
	a := axis.Normalized()
	s := sin(angle * 0.5)
	return Quaternion{a.X * s, a.Y * s, a.Z * s, cos(angle * 0.5)}
}

func (q Quaternion) Length() float32 {
	return sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalized() Quaternion {
	l := q.Length()
	if l == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

func (q Quaternion) Dot(o Quaternion) float32 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Mul returns the rotation q followed by o.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		X: o.W*q.X + o.X*q.W + o.Y*q.Z - o.Z*q.Y,
		Y: o.W*q.Y - o.X*q.Z + o.Y*q.W + o.Z*q.X,
		Z: o.W*q.Z + o.X*q.Y - o.Y*q.X + o.Z*q.W,
		W: o.W*q.W - o.X*q.X - o.Y*q.Y - o.Z*q.Z,
	}
}

// ToMat4 returns the rotation matrix of the normalized quaternion.
func (q Quaternion) ToMat4() Mat4 {
	n := q.Normalized()
	x, y, z, w := n.X, n.Y, n.Z, n.W

	out := NewMat4Identity()
	out.Data[0] = 1 - 2*(y*y+z*z)
	out.Data[1] = 2 * (x*y + z*w)
	out.Data[2] = 2 * (x*z - y*w)
	out.Data[4] = 2 * (x*y - z*w)
	out.Data[5] = 1 - 2*(x*x+z*z)
	out.Data[6] = 2 * (y*z + x*w)
	out.Data[8] = 2 * (x*z + y*w)
	out.Data[9] = 2 * (y*z - x*w)
	out.Data[10] = 1 - 2*(x*x+y*y)
	return out
}

// Slerp interpolates between q and o along the shortest arc.
func (q Quaternion) Slerp(o Quaternion, t float32) Quaternion {
	v0 := q.Normalized()
	v1 := o.Normalized()
	dot := v0.Dot(v1)
	if dot < 0 {
		v1 = Quaternion{-v1.X, -v1.Y, -v1.Z, -v1.W}
		dot = -dot
	}
	const threshold = 0.9995
	if dot > threshold {
		return Quaternion{
			v0.X + (v1.X-v0.X)*t,
			v0.Y + (v1.Y-v0.Y)*t,
			v0.Z + (v1.Z-v0.Z)*t,
			v0.W + (v1.W-v0.W)*t,
		}.Normalized()
	}
	theta0 := acos(dot)
	theta := theta0 * t
	sinTheta := sin(theta)
	sinTheta0 := sin(theta0)
	s0 := cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0
	return Quaternion{
		v0.X*s0 + v1.X*s1,
		v0.Y*s0 + v1.Y*s1,
		v0.Z*s0 + v1.Z*s1,
		v0.W*s0 + v1.W*s1,
	}
}
