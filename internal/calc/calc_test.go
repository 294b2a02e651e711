package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryOps(t *testing.T) {
	assert.Equal(t, 5.0, Add(2, 3))
	assert.Equal(t, -1.0, Subtract(2, 3))
	assert.Equal(t, 6.0, Multiply(2, 3))
	assert.Equal(t, 8.0, Power(2, 3))
	assert.Equal(t, 0.5, Power(4, -0.5))
	assert.Equal(t, 20.0, Percentage(200, 10))
}

func TestDivide(t *testing.T) {
	got, err := Divide(7, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)

	_, err = Divide(1, 0)
	assert.ErrorIs(t, err, ErrDivideByZero)

	_, err = Divide(1, math.Copysign(0, -1))
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestSqrt(t *testing.T) {
	got, err := Sqrt(16)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)

	got, err = Sqrt(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = Sqrt(-4)
	assert.ErrorIs(t, err, ErrNegativeSqrt)
}

func TestFormat(t *testing.T) {
	a, b := 0.1, 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{5, "5"},
		{-3, "-3"},
		{0, "0"},
		{3.5, "3.5"},
		{a + b, "0.30000000000000004"},
		{1e21, "1e+21"},
		{123456789012, "123456789012"},
		{1e-7, "1e-7"},
		{-2.5e-9, "-2.5e-9"},
		{1e-100, "1e-100"},
		{1.5e300, "1.5e+300"},
		{0.000001, "0.000001"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%v)", tt.in)
	}
}
