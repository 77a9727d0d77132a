// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlanbek/sabaq/internal/platform/sec"
)

func newTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService("test-access-secret", "test-refresh-secret", "sabaq.app")
	require.NoError(t, err)
	return service
}

func testIdentity() sec.Identity {
	return sec.Identity{
		UserID:    "0192aaaa-bbbb-7ccc-8ddd-eeeeffff0000",
		Email:     "jane@x.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      "student",
	}
}

func TestNewTokenService_RejectsEmptySecrets(t *testing.T) {
	_, err := sec.NewTokenService("", "refresh", "sabaq.app")
	assert.Error(t, err)

	_, err = sec.NewTokenService("access", "", "sabaq.app")
	assert.Error(t, err)
}

/*
TestTokenService_AccessTokenRoundTrip verifies that a generated access token
carries the full identity claim set back through verification.
*/
func TestTokenService_AccessTokenRoundTrip(t *testing.T) {
	service := newTokenService(t)

	token, err := service.GenerateAccessToken(testIdentity(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.VerifyAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "0192aaaa-bbbb-7ccc-8ddd-eeeeffff0000", claims.UserID)
	assert.Equal(t, "jane@x.com", claims.Email)
	assert.Equal(t, "Jane", claims.FirstName)
	assert.Equal(t, "Doe", claims.LastName)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "sabaq.app", claims.Issuer)
}

/*
TestTokenService_SecretsAreNotInterchangeable pins the dual-secret design:
an access token never verifies as a refresh token, and vice versa.
*/
func TestTokenService_SecretsAreNotInterchangeable(t *testing.T) {
	service := newTokenService(t)

	accessToken, err := service.GenerateAccessToken(testIdentity(), time.Hour)
	require.NoError(t, err)

	refreshToken, err := service.GenerateRefreshToken(testIdentity(), time.Hour)
	require.NoError(t, err)

	_, err = service.VerifyRefreshToken(accessToken)
	assert.Error(t, err)

	_, err = service.VerifyAccessToken(refreshToken)
	assert.Error(t, err)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	service := newTokenService(t)

	token, err := service.GenerateAccessToken(testIdentity(), -time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	service := newTokenService(t)

	foreign, err := sec.NewTokenService("other-access-secret", "other-refresh-secret", "sabaq.app")
	require.NoError(t, err)

	token, err := foreign.GenerateAccessToken(testIdentity(), time.Hour)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.Error(t, err)
}

/*
TestGenerateOTP checks that generated codes always land in the six-digit
range. A hundred draws keeps the check cheap while still catching an
off-by-one in the span.
*/
func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		otp, err := sec.GenerateOTP()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, otp, 100000)
		assert.LessOrEqual(t, otp, 999999)
	}
}
