// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nurlanbek/sabaq/internal/platform/apperr"
	"github.com/nurlanbek/sabaq/internal/platform/constants"
)

// # Pending Registration Repository

// RedisPendingRegistrationRepository implements PendingRegistrationRepository using Redis.
//
// # Key Layout
//
// Pending registrations are keyed by the raw email address (legacy contract),
// while reset OTPs live under the "forgot:" prefix. The two flows therefore
// never collide even when a user runs both at once.
type RedisPendingRegistrationRepository struct {
	client *redis.Client
}

// NewPendingRegistrationRepository creates a new Redis-backed PendingRegistrationRepository.
func NewPendingRegistrationRepository(client *redis.Client) *RedisPendingRegistrationRepository {
	return &RedisPendingRegistrationRepository{client: client}
}

/*
Set serializes the pending record as JSON under the email key with a TTL.

Description: Overwrites any prior pending registration for the address, so a
re-register always invalidates the previous OTP.

Parameters:
  - context: context.Context
  - pending: *PendingRegistration
  - ttl: time.Duration

Returns:
  - error: Serialization or execution errors
*/
func (repository *RedisPendingRegistrationRepository) Set(context context.Context, pending *PendingRegistration, ttl time.Duration) error {

	// Serialize the full pending record, OTP included
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("redis_pending_registration_marshal_failed: %w", err)
	}

	// Set the record with TTL
	if err := repository.client.Set(context, pending.Email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_pending_registration_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves and deserializes the pending registration for an email.

Description: Returns apperr.OtpExpired if the key is absent — either the TTL
fired or no registration was ever staged; the caller cannot tell the
difference and neither can we.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *PendingRegistration: Staged record
  - error: apperr.OtpExpired or connectivity errors
*/
func (repository *RedisPendingRegistrationRepository) Get(context context.Context, email string) (*PendingRegistration, error) {

	payload, err := repository.client.Get(context, email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.OtpExpired()
		}
		return nil, fmt.Errorf("redis_pending_registration_get_failed: %w", err)
	}

	pending := &PendingRegistration{}
	if err := json.Unmarshal(payload, pending); err != nil {
		return nil, fmt.Errorf("redis_pending_registration_unmarshal_failed: %w", err)
	}

	return pending, nil
}

/*
Delete removes the pending registration after successful verification.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisPendingRegistrationRepository) Delete(context context.Context, email string) error {
	if err := repository.client.Del(context, email).Err(); err != nil {
		return fmt.Errorf("redis_pending_registration_delete_failed: %w", err)
	}
	return nil
}

// # Pending Reset Repository

// RedisPendingResetRepository implements PendingResetRepository using Redis.
type RedisPendingResetRepository struct {
	client *redis.Client
}

// NewPendingResetRepository creates a new Redis-backed PendingResetRepository.
func NewPendingResetRepository(client *redis.Client) *RedisPendingResetRepository {
	return &RedisPendingResetRepository{client: client}
}

/*
Set stores the reset OTP as a plain string under "forgot:<email>" with a TTL.

Parameters:
  - context: context.Context
  - email: string
  - otp: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisPendingResetRepository) Set(context context.Context, email, otp string, ttl time.Duration) error {
	key := constants.RedisPrefixForgot + email

	if err := repository.client.Set(context, key, otp, ttl).Err(); err != nil {
		return fmt.Errorf("redis_pending_reset_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the stored reset OTP for an email.

Description: Returns apperr.OtpExpired if the key is absent or expired.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: The stored OTP
  - error: apperr.OtpExpired or connectivity errors
*/
func (repository *RedisPendingResetRepository) Get(context context.Context, email string) (string, error) {
	key := constants.RedisPrefixForgot + email

	otp, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.OtpExpired()
		}
		return "", fmt.Errorf("redis_pending_reset_get_failed: %w", err)
	}

	return otp, nil
}

/*
Delete removes the reset OTP after successful verification.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisPendingResetRepository) Delete(context context.Context, email string) error {
	key := constants.RedisPrefixForgot + email

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_pending_reset_delete_failed: %w", err)
	}

	return nil
}
