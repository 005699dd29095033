// internal/models/amount_test.go
package models

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(1000)
	b := NewAmount(120)

	assert.Equal(t, "1120", a.Add(b).String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "880", diff.String())

	_, err = b.Sub(a)
	assert.Error(t, err, "subtraction below zero must fail")
}

func TestAmountMulFracTruncates(t *testing.T) {
	// Each fee is its own truncating division over the sale price.
	assert.Equal(t, "100", NewAmount(1000).MulFrac(10, 100).String())
	assert.Equal(t, "20", NewAmount(1000).MulFrac(2, 100).String())

	// 999 * 10 / 100 = 99.9 -> 99, 999 * 2 / 100 = 19.98 -> 19
	assert.Equal(t, "99", NewAmount(999).MulFrac(10, 100).String())
	assert.Equal(t, "19", NewAmount(999).MulFrac(2, 100).String())

	assert.True(t, NewAmount(0).MulFrac(10, 100).IsZero())
}

func TestAmountWideValues(t *testing.T) {
	// Values far beyond 64 bits must survive arithmetic and round trips.
	wide := new(big.Int).Lsh(big.NewInt(1), 300)
	a, err := AmountFromString(wide.String())
	require.NoError(t, err)

	doubled := a.Add(a)
	assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 301).String(), doubled.String())

	back, err := doubled.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Cmp(a))
}

func TestAmountFromStringRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-5", "1.5"} {
		_, err := AmountFromString(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestAmountJSON(t *testing.T) {
	a := NewAmount(12345)
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"12345"`, string(data))

	var decoded Amount
	require.NoError(t, json.Unmarshal([]byte(`"678"`), &decoded))
	assert.Equal(t, "678", decoded.String())

	// Bare numbers are accepted for convenience
	require.NoError(t, json.Unmarshal([]byte(`42`), &decoded))
	assert.Equal(t, "42", decoded.String())
}

func TestAmountScan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("500"))
	assert.Equal(t, "500", a.String())

	require.NoError(t, a.Scan([]byte("600")))
	assert.Equal(t, "600", a.String())

	require.NoError(t, a.Scan(int64(700)))
	assert.Equal(t, "700", a.String())

	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())
}
