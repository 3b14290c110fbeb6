package glow

// Empirical coefficients of the rational approximation of exp(x) for
// x <= 0. The glow shape on the strip depends on these exact values.
const (
	expLinear    = 0.634
	expQuadratic = 1.344
)

// ApproxExp approximates exp(x) for x <= 0 without a transcendental
// call. The result lies in (0, 1] and does not increase as x decreases.
// Callers must not pass positive values, the denominator can reach zero
// there.
func ApproxExp(x float64) float64 {
	precondition(x <= 0, "ApproxExp called with positive argument %v", x)
	return 1 / (1 - (expLinear-expQuadratic*x)*x)
}
