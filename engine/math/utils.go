package math

import (
	"math/bits"

	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any ordered type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG_MULTIPLIER
}

func Sin(x float32) float32 { return sin(x) }
func Cos(x float32) float32 { return cos(x) }

// MipLevels returns the number of levels of a full mip chain for an image of
// the given size.
func MipLevels(width, height uint32) uint32 {
	size := Max(width, height)
	if size == 0 {
		return 1
	}
	return uint32(bits.Len32(size))
}

func sin(x float32) float32  { return math32.Sin(x) }
func cos(x float32) float32  { return math32.Cos(x) }
func tan(x float32) float32  { return math32.Tan(x) }
func sqrt(x float32) float32 { return math32.Sqrt(x) }
func abs(x float32) float32  { return math32.Abs(x) }
func acos(x float32) float32 { return math32.Acos(Clamp(x, -1, 1)) }
