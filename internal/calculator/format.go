package calculator

import (
	"math"
	"strconv"
	"strings"
)

// Magnitudes outside [minPlain, maxPlain) switch to exponent notation.
const (
	minPlain = 1e-6
	maxPlain = 1e21
)

// FormatNumber renders f with the fewest digits that parse back to f.
// Values are written in plain decimal unless they are very small or very
// large, where the form is "1.5e-7" / "1e+21". Negative zero prints as "0".
// Binary floating-point artifacts are kept: 0.1+0.2 renders as
// "0.30000000000000004".
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	abs := math.Abs(f)
	if abs >= minPlain && abs < maxPlain {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// strconv pads the exponent to two digits ("1e-07"); drop the padding.
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}
