// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// # One-Time Codes

const (
	// otpMin is the smallest issuable OTP. Codes are always six digits,
	// so the range never produces a leading zero.
	otpMin = 100000

	// otpSpan is the number of distinct codes, covering [100000, 999999].
	otpSpan = 900000
)

// GenerateOTP returns a 6-digit numeric one-time code drawn uniformly
// from [100000, 999999] using a cryptographic source of randomness.
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return 0, fmt.Errorf("sec: failed to generate OTP: %w", err)
	}
	return int(n.Int64()) + otpMin, nil
}
