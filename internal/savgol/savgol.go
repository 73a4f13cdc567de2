// Package savgol implements a Savitzky-Golay smoothing and differentiation
// filter compatible with scipy.signal.savgol_filter in its default "interp" mode.
package savgol

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidWindow is returned for a window length that is not a positive odd integer
	ErrInvalidWindow = errors.New("window length must be a positive odd integer")

	// ErrPolyOrder is returned when the polynomial order is negative or not less than the window length
	ErrPolyOrder = errors.New("polyorder must be non-negative and less than window length")

	// ErrInvalidDeriv is returned for a negative derivative order
	ErrInvalidDeriv = errors.New("deriv must be non-negative")

	// ErrInputTooShort is returned when the input has fewer samples than the window
	ErrInputTooShort = errors.New("input is shorter than window length")
)

// Params configures the filter
type Params struct {
	// WindowLength is the number of samples in the centered fitting window
	WindowLength int

	// PolyOrder is the order of the polynomial fitted in each window
	PolyOrder int

	// Deriv is the derivative order to compute (0 smooths only)
	Deriv int

	// Delta is the sample spacing used to scale derivatives; zero means 1
	Delta float64
}

// DefaultParams returns the first-derivative filter used for mineral spectra:
// a 5-sample window with a quadratic fit
func DefaultParams() Params {
	return Params{
		WindowLength: 5,
		PolyOrder:    2,
		Deriv:        1,
		Delta:        1.0,
	}
}

// Validate checks the parameter preconditions
func (p Params) Validate() error {
	if p.WindowLength < 1 || p.WindowLength%2 == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWindow, p.WindowLength)
	}
	if p.PolyOrder < 0 || p.PolyOrder >= p.WindowLength {
		return fmt.Errorf("%w: polyorder %d, window %d", ErrPolyOrder, p.PolyOrder, p.WindowLength)
	}
	if p.Deriv < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDeriv, p.Deriv)
	}
	return nil
}

func (p Params) delta() float64 {
	if p.Delta == 0 {
		return 1.0
	}
	return p.Delta
}

// Derivative returns the smoothed first derivative of a reflectance series
// using DefaultParams. The derivative is taken per sample, not per micrometer.
func Derivative(x []float64) ([]float64, error) {
	return Filter(x, DefaultParams())
}

// Coefficients returns the interior filter kernel, ordered so that
// y[n] = sum_k c[k] * x[n-half+k]
func Coefficients(p Params) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	coeffs := make([]float64, p.WindowLength)
	if p.Deriv > p.PolyOrder {
		return coeffs, nil
	}

	half := p.WindowLength / 2
	positions := make([]float64, p.WindowLength)
	for i := range positions {
		positions[i] = float64(i - half)
	}

	pinv, err := pseudoInverse(vandermonde(positions, p.PolyOrder))
	if err != nil {
		return nil, err
	}

	scale := factorial(p.Deriv) / math.Pow(p.delta(), float64(p.Deriv))
	for i := range coeffs {
		coeffs[i] = scale * pinv.At(p.Deriv, i)
	}
	return coeffs, nil
}

// Filter applies the Savitzky-Golay filter to x. The output has the same
// length as x. The first and last WindowLength/2 samples are evaluated from
// a polynomial fitted to the first and last WindowLength samples.
func Filter(x []float64, p Params) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(x)
	if n < p.WindowLength {
		return nil, fmt.Errorf("%w: %d samples, window %d", ErrInputTooShort, n, p.WindowLength)
	}

	out := make([]float64, n)
	if p.Deriv > p.PolyOrder {
		return out, nil
	}

	coeffs, err := Coefficients(p)
	if err != nil {
		return nil, err
	}

	half := p.WindowLength / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		for k, c := range coeffs {
			sum += c * x[i-half+k]
		}
		out[i] = sum
	}

	if half == 0 {
		return out, nil
	}

	// Leading edge: fit the first window and evaluate at its first half positions
	if err := fitEdge(x[:p.WindowLength], out[:half], 0, p); err != nil {
		return nil, err
	}

	// Trailing edge: fit the last window and evaluate at its last half positions
	if err := fitEdge(x[n-p.WindowLength:], out[n-half:], p.WindowLength-half, p); err != nil {
		return nil, err
	}

	return out, nil
}

// fitEdge fits a polynomial to window (sampled at 0..len-1) and writes its
// p.Deriv-th derivative evaluated at positions start, start+1, ... into dst
func fitEdge(window, dst []float64, start int, p Params) error {
	positions := make([]float64, len(window))
	for i := range positions {
		positions[i] = float64(i)
	}

	poly, err := polyFit(positions, window, p.PolyOrder)
	if err != nil {
		return err
	}

	scale := math.Pow(p.delta(), float64(p.Deriv))
	for i := range dst {
		t := float64(start + i)
		dst[i] = evalDerivative(poly, p.Deriv, t) / scale
	}
	return nil
}

// vandermonde builds the len(positions) x (order+1) matrix with entries t^j
func vandermonde(positions []float64, order int) *mat.Dense {
	a := mat.NewDense(len(positions), order+1, nil)
	for i, t := range positions {
		for j := 0; j <= order; j++ {
			a.Set(i, j, math.Pow(t, float64(j)))
		}
	}
	return a
}

// pseudoInverse returns the least-squares inverse of a (rows >= cols) using QR decomposition
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	rows, cols := a.Dims()

	var qr mat.QR
	qr.Factorize(a)

	identity := mat.NewDense(rows, rows, nil)
	for i := 0; i < rows; i++ {
		identity.Set(i, i, 1)
	}

	pinv := mat.NewDense(cols, rows, nil)
	if err := qr.SolveTo(pinv, false, identity); err != nil {
		return nil, fmt.Errorf("failed to solve least squares system: %w", err)
	}
	return pinv, nil
}

// polyFit returns coefficients [c0, c1, ...] of the least-squares polynomial through (t, y)
func polyFit(t, y []float64, order int) ([]float64, error) {
	a := vandermonde(t, order)

	var qr mat.QR
	qr.Factorize(a)

	coeffs := mat.NewVecDense(order+1, nil)
	if err := qr.SolveVecTo(coeffs, false, mat.NewVecDense(len(y), y)); err != nil {
		return nil, fmt.Errorf("failed to fit edge polynomial: %w", err)
	}

	out := make([]float64, order+1)
	for i := range out {
		out[i] = coeffs.AtVec(i)
	}
	return out, nil
}

// evalDerivative evaluates the deriv-th derivative of the polynomial at t
func evalDerivative(coeffs []float64, deriv int, t float64) float64 {
	sum := 0.0
	for j := deriv; j < len(coeffs); j++ {
		// d^k/dt^k t^j = j!/(j-k)! t^(j-k)
		sum += coeffs[j] * factorial(j) / factorial(j-deriv) * math.Pow(t, float64(j-deriv))
	}
	return sum
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
