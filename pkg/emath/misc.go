package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// The two branches meet at 0.0031308 (to about 1e-7).
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}

func Clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(n, hi))
}

// ToDisplayRange maps a linear radiance value onto an 8-bit sRGB channel
// value. Anything at or below zero is black, anything bright enough to
// go past 255 is clipped to 255.
//
// We round rather than truncate: 1.055 - 0.055 is one ulp short of 1.0,
// and truncation would send a radiance of exactly 1.0 to 254.
func ToDisplayRange(f float64) uint8 {
	return uint8(math.Round(Clamp(255.0*GammaExpand_F64(f), 0, 255)))
}
