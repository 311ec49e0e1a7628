package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec2(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2          { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2          { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) MulScalar(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Length() float32          { return sqrt(v.X*v.X + v.Y*v.Y) }

func (v Vec2) Compare(o Vec2, tol float32) bool {
	return abs(v.X-o.X) <= tol && abs(v.Y-o.Y) <= tol
}

func NewVec3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func NewVec3Zero() Vec3 { return Vec3{} }
func NewVec3One() Vec3  { return Vec3{1, 1, 1} }
func NewVec3Up() Vec3   { return Vec3{0, 1, 0} }

// NewVec3Forward points down -Z, the direction a camera looks by default.
func NewVec3Forward() Vec3 { return Vec3{0, 0, -1} }

func (v Vec3) Add(o Vec3) Vec3          { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3          { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Mul(o Vec3) Vec3          { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }
func (v Vec3) MulScalar(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float32       { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LengthSquared() float32   { return v.Dot(v) }
func (v Vec3) Length() float32          { return sqrt(v.LengthSquared()) }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Normalized returns a unit-length copy; the zero vector is returned as is.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}

func (v Vec3) Compare(o Vec3, tol float32) bool {
	return abs(v.X-o.X) <= tol && abs(v.Y-o.Y) <= tol && abs(v.Z-o.Z) <= tol
}

func (v Vec3) Distance(o Vec3) float32 { return v.Sub(o).Length() }

func (v Vec3) ToVec4(w float32) Vec4 { return Vec4{v.X, v.Y, v.Z, w} }

// Transform multiplies the point v (w = 1) by m.
func (v Vec3) Transform(mt Mat4) Vec3 {
	d := &mt.Data
	return Vec3{
		X: v.X*d[0] + v.Y*d[4] + v.Z*d[8] + d[12],
		Y: v.X*d[1] + v.Y*d[5] + v.Z*d[9] + d[13],
		Z: v.X*d[2] + v.Y*d[6] + v.Z*d[10] + d[14],
	}
}

func NewVec4(x, y, z, w float32) Vec4 { return Vec4{X: x, Y: y, Z: z, W: w} }

func NewVec4One() Vec4 { return Vec4{1, 1, 1, 1} }

func (v Vec4) ToVec3() Vec3 { return Vec3{v.X, v.Y, v.Z} }

func (v Vec4) Compare(o Vec4, tol float32) bool {
	return abs(v.X-o.X) <= tol && abs(v.Y-o.Y) <= tol && abs(v.Z-o.Z) <= tol && abs(v.W-o.W) <= tol
}

// Transform multiplies v by m.
func (v Vec4) Transform(mt Mat4) Vec4 {
	d := &mt.Data
	return Vec4{
		X: v.X*d[0] + v.Y*d[4] + v.Z*d[8] + v.W*d[12],
		Y: v.X*d[1] + v.Y*d[5] + v.Z*d[9] + v.W*d[13],
		Z: v.X*d[2] + v.Y*d[6] + v.Z*d[10] + v.W*d[14],
		W: v.X*d[3] + v.Y*d[7] + v.Z*d[11] + v.W*d[15],
	}
}
