// Package calc holds the arithmetic behind the calculator tools.
package calc

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrDivideByZero = errors.New("cannot divide by zero")
	ErrNegativeSqrt = errors.New("cannot take the square root of a negative number")
)

func Add(a, b float64) float64 { return a + b }

func Subtract(a, b float64) float64 { return a - b }

func Multiply(a, b float64) float64 { return a * b }

// Divide returns ErrDivideByZero when b is zero (either sign).
func Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

func Power(base, exponent float64) float64 { return math.Pow(base, exponent) }

// Sqrt rejects negative inputs instead of returning NaN.
func Sqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, ErrNegativeSqrt
	}
	return math.Sqrt(x), nil
}

// Percentage returns percentage% of value.
func Percentage(value, percentage float64) float64 {
	return value * percentage / 100
}

// Format renders v as the shortest decimal that round-trips, switching to
// exponent notation outside [1e-6, 1e21).
func Format(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		return trimExponent(strconv.FormatFloat(v, 'e', -1, 64))
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// trimExponent drops leading zeros from the exponent: 1e-07 becomes 1e-7.
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	mantissa, sign, digits := s[:i+1], s[i+1:i+2], strings.TrimLeft(s[i+2:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + sign + digits
}
