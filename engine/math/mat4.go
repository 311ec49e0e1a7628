package math

// Mat4 is a 4x4 matrix stored so that Data can be copied into a GLSL mat4
// unchanged: Data[12..14] holds the translation. Points are treated as row
// vectors, so a.Mul(b) applies a first and then b.
type Mat4 struct {
	Data [16]float32
}

func NewMat4Identity() Mat4 {
	var out Mat4
	out.Data[0] = 1
	out.Data[5] = 1
	out.Data[10] = 1
	out.Data[15] = 1
	return out
}

// NewMat4FromSlice copies 16 column-major values, as found in glTF nodes.
func NewMat4FromSlice(values [16]float32) Mat4 {
	return Mat4{Data: values}
}

func (mt Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

func (mt Mat4) Transposed() Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out.Data[col*4+row] = mt.Data[row*4+col]
		}
	}
	return out
}

func (mt Mat4) Compare(other Mat4, tol float32) bool {
	for i := range mt.Data {
		if abs(mt.Data[i]-other.Data[i]) > tol {
			return false
		}
	}
	return true
}

// NewMat4Perspective builds a right-handed projection for Vulkan clip space:
// Y points down and depth maps near..far to 0..1.
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	f := 1 / tan(fovRadians*0.5)
	var out Mat4
	out.Data[0] = f / aspectRatio
	out.Data[5] = -f
	out.Data[10] = farClip / (nearClip - farClip)
	out.Data[11] = -1
	out.Data[14] = nearClip * farClip / (nearClip - farClip)
	return out
}

// NewMat4Orthographic maps the box to Vulkan clip space, depth 0..1.
func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = 2 / (right - left)
	out.Data[5] = 2 / (bottom - top)
	out.Data[10] = 1 / (nearClip - farClip)
	out.Data[12] = -(right + left) / (right - left)
	out.Data[13] = -(bottom + top) / (bottom - top)
	out.Data[14] = nearClip / (nearClip - farClip)
	return out
}

// NewMat4LookAt returns the view matrix of an eye at position looking at
// target.
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	f := target.Sub(position).Normalized()
	s := f.Cross(up).Normalized()
	u := s.Cross(f)

	var out Mat4
	out.Data[0] = s.X
	out.Data[4] = s.Y
	out.Data[8] = s.Z
	out.Data[1] = u.X
	out.Data[5] = u.Y
	out.Data[9] = u.Z
	out.Data[2] = -f.X
	out.Data[6] = -f.Y
	out.Data[10] = -f.Z
	out.Data[12] = -s.Dot(position)
	out.Data[13] = -u.Dot(position)
	out.Data[14] = f.Dot(position)
	out.Data[15] = 1
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

func NewMat4EulerX(angleRadians float32) Mat4 {
	c, s := cos(angleRadians), sin(angleRadians)
	out := NewMat4Identity()
	out.Data[5] = c
	out.Data[6] = s
	out.Data[9] = -s
	out.Data[10] = c
	return out
}

func NewMat4EulerY(angleRadians float32) Mat4 {
	c, s := cos(angleRadians), sin(angleRadians)
	out := NewMat4Identity()
	out.Data[0] = c
	out.Data[2] = -s
	out.Data[8] = s
	out.Data[10] = c
	return out
}

func NewMat4EulerZ(angleRadians float32) Mat4 {
	c, s := cos(angleRadians), sin(angleRadians)
	out := NewMat4Identity()
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}

// NewMat4EulerXYZ rotates around X, then Y, then Z.
func NewMat4EulerXYZ(x, y, z float32) Mat4 {
	return NewMat4EulerX(x).Mul(NewMat4EulerY(y)).Mul(NewMat4EulerZ(z))
}

// NewMat4TRS composes scale, then rotation, then translation.
func NewMat4TRS(translation Vec3, rotation Quaternion, scale Vec3) Mat4 {
	return NewMat4Scale(scale).Mul(rotation.ToMat4()).Mul(NewMat4Translation(translation))
}
