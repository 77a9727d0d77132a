// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// It matches the accessToken cookie's Max-Age exactly.
	AccessTokenTTL = 1 * time.Hour

	// RefreshTokenTTL is the duration a refresh token remains valid.
	// Long-lived (7 days) to provide a good user experience.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// PendingRegistrationTTL is how long an unverified registration waits
	// in the cache for its OTP. Generous (6 hours) as users might not
	// check email immediately.
	PendingRegistrationTTL = 6 * time.Hour

	// PendingResetTTL is how long a password-reset OTP remains valid.
	// Short-lived (10 minutes) for security.
	PendingResetTTL = 10 * time.Minute
)
