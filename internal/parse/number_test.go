package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecimal(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  float64
		expectErr error
	}{
		{name: "Plain decimal", raw: "3.5", expected: 3.5},
		{name: "Surrounding spaces", raw: "  120.00 ", expected: 120},
		{name: "Integer", raw: "7", expected: 7},
		{name: "Leading dot", raw: ".25", expected: 0.25},
		{name: "Trailing dot", raw: "4.", expected: 4},
		{name: "Thousands grouping", raw: "1,250.50", expected: 1250.5},
		{name: "Blank means zero", raw: "   ", expected: 0},
		{name: "Negative sign", raw: "-2", expected: -2},
		{name: "Words", raw: "three hours", expectErr: ErrNotNumeric},
		{name: "Trailing unit", raw: "3.5h", expectErr: ErrNotNumeric},
		{name: "Exponent", raw: "1e3", expectErr: ErrNotNumeric},
		{name: "NaN", raw: "NaN", expectErr: ErrNotNumeric},
		{name: "Infinity", raw: "Inf", expectErr: ErrNotNumeric},
		{name: "Hex", raw: "0x10", expectErr: ErrNotNumeric},
		{name: "Bad grouping", raw: "12,50", expectErr: ErrNotNumeric},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Decimal(tc.raw)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestNonNegativeDecimal(t *testing.T) {
	_, err := NonNegativeDecimal("-0.5")
	assert.ErrorIs(t, err, ErrNegative)

	v, err := NonNegativeDecimal("0")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestMoney(t *testing.T) {
	v, err := Money("$120.00")
	assert.NoError(t, err)
	assert.Equal(t, 120.0, v)

	v, err = Money("19.999")
	assert.NoError(t, err)
	assert.Equal(t, 20.0, v)

	_, err = Money("free")
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = Money("-$5")
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = Money("$-5")
	assert.ErrorIs(t, err, ErrNegative)
}
