package integrators

import "math"

// Yoshida's solution A for the eighth-order composition of seven
// symmetric weights around w0 = 1 - 2*(w1+...+w7).
const (
	y8w1 = 0.311790812418427
	y8w2 = -1.55946803821447
	y8w3 = -1.67896928259640
	y8w4 = 1.66335809963315
	y8w5 = -1.06458714789183
	y8w6 = 1.36934946416871
	y8w7 = 0.629030650210433
	y8w0 = 1.65899088454396
)

// NewYoshida8 returns the eighth-order composition of fifteen leapfrog
// stages: sixteen drifts and fifteen kicks per step.
func NewYoshida8() *Splitting {
	return fromKicks("yoshida8", []float64{
		y8w7, y8w6, y8w5, y8w4, y8w3, y8w2, y8w1,
		y8w0,
		y8w1, y8w2, y8w3, y8w4, y8w5, y8w6, y8w7,
	})
}

// NewYoshida4 returns the fourth-order triple-jump composition.
func NewYoshida4() *Splitting {
	cbrt2 := math.Cbrt(2)
	w1 := 1 / (2 - cbrt2)
	w0 := -cbrt2 / (2 - cbrt2)
	return fromKicks("yoshida4", []float64{w1, w0, w1})
}
