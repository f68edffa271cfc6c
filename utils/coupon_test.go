package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCouponCodeShape(t *testing.T) {
	for i := 0; i < 10000; i++ {
		code, err := GenerateCouponCode()
		require.NoError(t, err)
		require.Len(t, code, CouponLength)
		require.True(t, ValidCouponCode(code), "code %q", code)
		require.False(t, strings.ContainsAny(code, "01IO"), "code %q", code)
	}
}

func TestCouponAlphabet(t *testing.T) {
	assert.Len(t, CouponAlphabet, 32)
	assert.False(t, strings.ContainsAny(CouponAlphabet, "01IO"))
	assert.Equal(t, strings.ToUpper(CouponAlphabet), CouponAlphabet)
}

func TestValidCouponCode(t *testing.T) {
	assert.True(t, ValidCouponCode("ABCD2345"))
	assert.False(t, ValidCouponCode("ABCD234"))
	assert.False(t, ValidCouponCode("ABCD2340"))
	assert.False(t, ValidCouponCode("abcd2345"))
}
