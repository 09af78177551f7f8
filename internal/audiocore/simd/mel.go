package simd

import "math"

// HzToMel converts a frequency in Hz to the Mel perceptual pitch scale:
// mel = 2595*log10(1 + hz/700).
func HzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// MelToHz is HzToMel's inverse: hz = 700*(10^(mel/2595) - 1).
func MelToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}
