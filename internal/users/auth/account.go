// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

/*
Package auth implements the user identity lifecycle for the Sabaq platform.

It defines the core domain entities (Account, PendingRegistration) and the
logic for OTP-verified registration, login, token refresh, and password reset.

# Architecture

This layer is the "Truth" of the system. An Account row only ever comes into
existence through a successful OTP verification; everything before that lives
as a transient PendingRegistration in the Verification Cache.
*/
package auth

import (
	"time"

	"github.com/nurlanbek/sabaq/internal/platform/sec"
)

// # Domain Entities

// Account represents a verified member of the Sabaq platform.
//
// A single table backs every account kind; the Role field discriminates
// between students and staff instead of the legacy pattern of parallel
// Student/Admin collections with duplicated lookups.
type Account struct {
	ID           string       `json:"id"`
	FirstName    string       `json:"firstname"`
	LastName     string       `json:"lastname"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	Cohort       string       `json:"cohort,omitempty"` // Set for students only.
	IsVerified   bool         `json:"is_verified"`
	RefreshToken string       `json:"-"` // Current refresh token; empty means none issued.
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Profile is the public projection of an Account returned by the
// login-family endpoints.
type Profile struct {
	ID        string       `json:"id"`
	FirstName string       `json:"firstname"`
	LastName  string       `json:"lastname"`
	Email     string       `json:"email"`
	Role      sec.UserRole `json:"role"`
	Cohort    string       `json:"cohort,omitempty"`
}

// Profile returns the client-safe projection of the account.
func (account *Account) Profile() Profile {
	return Profile{
		ID:        account.ID,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Email:     account.Email,
		Role:      account.Role,
		Cohort:    account.Cohort,
	}
}

// Identity returns the claim set embedded into this account's tokens.
func (account *Account) Identity() sec.Identity {
	return sec.Identity{
		UserID:    account.ID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      string(account.Role),
	}
}

// PendingRegistration is the transient record staged in the Verification
// Cache between register and a successful verify-otp. It holds everything
// needed to materialize the Account, including the OTP itself.
//
// The JSON field names mirror the legacy cache payload so that entries
// written before a deploy remain readable after it.
type PendingRegistration struct {
	FirstName    string       `json:"firstname"`
	LastName     string       `json:"lastname"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"password"`
	Otp          int          `json:"otp"`
	Role         sec.UserRole `json:"role"`
	Cohort       string       `json:"cohort,omitempty"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldFirstName    = "firstname"
	FieldLastName     = "lastname"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldNewPassword  = "newPassword"
	FieldOtp          = "otp"
	FieldRole         = "role"
	FieldCohort       = "cohort"
	FieldRefreshToken = "refreshToken"
	FieldMessage      = "message"
	FieldCode         = "code"
	FieldUser         = "user"
	FieldSuccess      = "success"
	FieldRedirect     = "redirect"
)
