// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package auth

import (
	"context"
	"time"
)

// # Account Data Access

// AccountRepository defines the data access contract for verified accounts.
type AccountRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the account with the given unique email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		Create persists a freshly verified account.

		Description: The unique-email constraint is enforced here; a
		violation surfaces as apperr.Conflict and is the only guard against
		two concurrent verifications materializing the same email.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: apperr.Conflict or persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		UpdateRefreshToken replaces the account's current refresh token.

		Description: Rotation by overwrite — the previous token becomes
		invalid the moment this call succeeds.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - refreshToken: string

		Returns:
		  - error: Persistence failures
	*/
	UpdateRefreshToken(context context.Context, accountID, refreshToken string) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, accountID, newHash string) error
}

// # Volatile Data Access

// PendingRegistrationRepository defines the contract for staging
// not-yet-verified registrations in the Verification Cache.
type PendingRegistrationRepository interface {

	/*
		Set stores the pending record under the raw email key, overwriting
		any prior pending registration for that address.

		Parameters:
		  - context: context.Context
		  - pending: *PendingRegistration
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, pending *PendingRegistration, ttl time.Duration) error

	/*
		Get retrieves the pending registration for an email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *PendingRegistration: Staged record
		  - error: apperr.OtpExpired if absent or expired
	*/
	Get(context context.Context, email string) (*PendingRegistration, error)

	/*
		Delete removes the pending registration after successful verification.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - error: Deletion failures
	*/
	Delete(context context.Context, email string) error
}

// PendingResetRepository defines the contract for the short-lived
// password-reset OTPs, namespaced under "forgot:".
type PendingResetRepository interface {

	/*
		Set stores the reset OTP as a plain string.

		Parameters:
		  - context: context.Context
		  - email: string
		  - otp: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, email, otp string, ttl time.Duration) error

	/*
		Get retrieves the stored reset OTP for an email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - string: The stored OTP
		  - error: apperr.OtpExpired if absent or expired
	*/
	Get(context context.Context, email string) (string, error)

	/*
		Delete removes the reset OTP after successful verification.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - error: Deletion failures
	*/
	Delete(context context.Context, email string) error
}
