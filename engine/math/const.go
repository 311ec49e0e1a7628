package math

const (
	K_PI         float32 = 3.14159265358979323846
	K_PI_2       float32 = 2.0 * K_PI
	K_HALF_PI    float32 = 0.5 * K_PI
	K_QUARTER_PI float32 = 0.25 * K_PI

	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI

	// Smallest positive number where 1.0 + FLOAT_EPSILON != 1.0
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)
