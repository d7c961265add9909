package helpers

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseETH(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.01", "10000000000000000"},
		{"1", "1000000000000000000"},
		{"1.", "1000000000000000000"},
		{".5", "500000000000000000"},
		{" 2.25 ", "2250000000000000000"},
		{"0", "0"},
		{"0.000000000000000001", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			wei, err := ParseETH(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, wei.String())
		})
	}
}

func TestParseETHRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1e3", "1/2", "0x10", "1.2.3", "0.0000000000000000001"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseETH(in)
			assert.True(t, errors.Is(err, ErrInvalidAmount), "got %v", err)
		})
	}
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "0", FormatEther(big.NewInt(0)))
	assert.Equal(t, "0.01", FormatEther(big.NewInt(10000000000000000)))
	assert.Equal(t, "1", FormatEther(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress("0xABCDef0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000001"))
	assert.False(t, SameAddress("0xabcdef0000000000000000000000000000000001", "0xabcdef0000000000000000000000000000000002"))
	assert.False(t, SameAddress("", ""))
}

func TestShortenAddr(t *testing.T) {
	assert.Equal(t, "0xd8dA…6045", ShortenAddr("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
	assert.Equal(t, "0xABCD", ShortenAddr("0xABCD"))
}

func TestIsValidEthAddress(t *testing.T) {
	assert.True(t, IsValidEthAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
	assert.False(t, IsValidEthAddress("d8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
	assert.False(t, IsValidEthAddress("0x123"))
}
