// utils/coupon.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CouponAlphabet is uppercase letters and digits without 0, 1, I and O.
const CouponAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CouponLength is the length of every generated coupon code.
const CouponLength = 8

// GenerateCouponCode draws CouponLength characters uniformly, with
// replacement, from CouponAlphabet.
func GenerateCouponCode() (string, error) {
	max := big.NewInt(int64(len(CouponAlphabet)))
	code := make([]byte, CouponLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw coupon character: %w", err)
		}
		code[i] = CouponAlphabet[n.Int64()]
	}
	return string(code), nil
}

// ValidCouponCode reports whether code has the generated shape.
func ValidCouponCode(code string) bool {
	if len(code) != CouponLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !containsByte(CouponAlphabet, code[i]) {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
