// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

/*
Service orchestration for the OTP registration and token lifecycle.

Architecture:

  - Service: Orchestrates business logic (Register, VerifyOtp, Login, Refresh,
    password recovery).
  - Repository: Abstracted interfaces for Postgres (Accounts) and Redis
    (pending registrations / reset OTPs).
  - Security: Leverages Bcrypt hashing and HS256-signed JWTs with
    rotation-by-overwrite refresh tokens.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nurlanbek/sabaq/internal/notify"
	"github.com/nurlanbek/sabaq/internal/platform/apperr"
	"github.com/nurlanbek/sabaq/internal/platform/ctxutil"
	"github.com/nurlanbek/sabaq/internal/platform/sec"
	"github.com/nurlanbek/sabaq/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating and verifying security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a short-lived signed JWT for the identity.
	GenerateAccessToken(identity sec.Identity, timeToLive time.Duration) (string, error)

	// GenerateRefreshToken creates a long-lived signed JWT for the identity.
	GenerateRefreshToken(identity sec.Identity, timeToLive time.Duration) (string, error)

	// VerifyRefreshToken checks signature and expiry of a refresh token.
	VerifyRefreshToken(tokenString string) (*sec.AuthClaims, error)
}

// LinkBuilder holds the public URLs embedded in OTP mails and reset redirects.
type LinkBuilder struct {
	// BackendURL is the base for the emailed verification link.
	BackendURL string
	// FrontendURL is the base for the post-verification reset redirect.
	FrontendURL string
}

// VerificationLink builds the link mailed alongside a reset OTP.
func (builder LinkBuilder) VerificationLink(email string) string {
	return builder.BackendURL + "/verify-otp?email=" + url.QueryEscape(email)
}

// ResetRedirect builds the client redirect returned after a successful
// reset-OTP verification.
func (builder LinkBuilder) ResetRedirect(email string) string {
	return builder.FrontendURL + "?email=" + url.QueryEscape(email)
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, OTP
// comparison, or token rotation logic must be reviewed by the security team.
type Service struct {
	accountRepository AccountRepository
	pendingRepository PendingRegistrationRepository
	resetRepository   PendingResetRepository
	tokenProvider     TokenProvider
	notifier          notify.Sender
	links             LinkBuilder
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	accountRepo AccountRepository,
	pendingRepo PendingRegistrationRepository,
	resetRepo PendingResetRepository,
	tokenProv TokenProvider,
	notifier notify.Sender,
	links LinkBuilder,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		pendingRepository: pendingRepo,
		resetRepository:   resetRepo,
		tokenProvider:     tokenProv,
		notifier:          notifier,
		links:             links,
	}
}

// # Registration Flow

// RegisterInput holds the data required to stage a new registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      sec.UserRole // Defaults to student when empty.
	Cohort    string       // Required for students.
}

/*
Register stages a new registration in the Verification Cache and mails the OTP.

Description: No Account row is created here — the pending record (password
already hashed, OTP included) waits in Redis for up to six hours. A repeated
register for the same email overwrites the previous pending record.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - err: Conflict (if the email is already registered) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) error {

	// Verify email uniqueness against verified accounts. Return a
	// client-safe Conflict err. Only a definite "no such account" may
	// proceed — a store outage must surface as a server error, not stage
	// a registration the database could not be asked about.
	_, err := service.accountRepository.FindByEmail(context, input.Email)
	if err == nil {
		return apperr.Conflict("User already exists")
	}
	if appError := apperr.As(err); appError == nil || appError.HTTPStatus != http.StatusNotFound {
		return fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	// Prevent storing plain-text passwords, even transiently in the cache.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Generate the 6-digit one-time code
	otp, err := sec.GenerateOTP()
	if err != nil {
		return fmt.Errorf("auth_service_otp_failed: %w", err)
	}

	role := input.Role
	if role == "" {
		role = sec.RoleStudent
	}

	pending := &PendingRegistration{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Otp:          otp,
		Role:         role,
		Cohort:       input.Cohort,
	}

	// Stage the pending record with the registration TTL
	if err := service.pendingRepository.Set(context, pending, PendingRegistrationTTL); err != nil {
		return fmt.Errorf("auth_service_register_stage_failed: %w", err)
	}

	// Fire-and-forget delivery: a mail failure is logged, never returned.
	// The pending record stays staged either way; the user can re-register
	// to trigger a fresh code.
	service.sendOtp(context, input.Email, otp, "")

	return nil
}

/*
VerifyOtp confirms a staged registration and materializes the Account.

Description: This is the only point in the system where an Account is
created. The submitted OTP is compared NUMERICALLY against the staged value
(legacy contract: whitespace and leading zeros are erased by the integer
parse — do not "fix" this without confirming intent with the frontend).

Parameters:
  - context: context.Context
  - email: string
  - otp: string

Returns:
  - *Account: The newly created, verified account
  - err: OtpExpired, InvalidOtp, Conflict (double-verify race), or storage errors
*/
func (service *Service) VerifyOtp(context context.Context, email, otp string) (*Account, error) {

	// Fetch the staged record; absence and expiry are indistinguishable
	pending, err := service.pendingRepository.Get(context, email)
	if err != nil {
		return nil, err
	}

	// Numeric-equality comparison
	submitted, parseErr := strconv.Atoi(strings.TrimSpace(otp))
	if parseErr != nil || submitted != pending.Otp {
		return nil, apperr.InvalidOtp()
	}

	account := &Account{
		ID:           uuid.New(),
		FirstName:    pending.FirstName,
		LastName:     pending.LastName,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         pending.Role,
		Cohort:       pending.Cohort,
		IsVerified:   true,
	}

	// Materialize the account. A concurrent verification for the same email
	// loses here with a Conflict from the unique-email constraint.
	if err := service.accountRepository.Create(context, account); err != nil {
		return nil, err
	}

	// Consume the pending record. Not transactional with the INSERT above:
	// if this delete is lost, the leftover entry simply expires, and a
	// replayed verify fails on the unique-email constraint.
	if err := service.pendingRepository.Delete(context, email); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "auth_pending_delete_failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	return account, nil
}

// # Authentication Flow

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken  string
	RefreshToken string
	Account      *Account
}

/*
Login validates credentials and issues a fresh token pair.

Description: Verifies identity with a constant-time bcrypt comparison, then
persists the new refresh token onto the account — overwriting (and thereby
revoking) whatever refresh token was active before.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *LoginSession: Transport-ready session credentials
  - err: InvalidCredentials or internal failures
*/
func (service *Service) Login(context context.Context, email, password string) (*LoginSession, error) {

	account, err := service.accountRepository.FindByEmail(context, email)

	// Unknown email and wrong password return the IDENTICAL error shape
	// to prevent account enumeration.
	if err != nil {
		return nil, apperr.InvalidCredentials()
	}

	if !sec.CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	return service.issueSession(context, account)
}

// # Token Rotation

/*
Refresh implements the refresh-token rotation mechanism.

Description: Verifies signature and expiry, then requires the presented token
to equal the account's CURRENTLY stored refresh token — a superseded token
fails this check and is rejected. On success a new pair is issued and the new
refresh token overwrites the old one (strict single-active-token policy).

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *LoginSession: Rotated session credentials
  - err: Forbidden (invalid, expired, or superseded token) or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*LoginSession, error) {

	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Forbidden("Invalid or expired refresh token")
	}

	account, err := service.accountRepository.FindByID(context, claims.UserID)
	if err != nil {
		return nil, apperr.Forbidden("Invalid refresh token")
	}

	// Detect use of a superseded token: only the value currently stored on
	// the account is live. Two concurrent refreshes race benignly here —
	// whichever rotation persists last wins.
	if account.RefreshToken == "" || account.RefreshToken != refreshToken {
		return nil, apperr.Forbidden("Invalid refresh token")
	}

	return service.issueSession(context, account)
}

// issueSession generates a token pair for the account and persists the new
// refresh token, rotating out any predecessor.
func (service *Service) issueSession(context context.Context, account *Account) (*LoginSession, error) {
	identity := account.Identity()

	accessToken, err := service.tokenProvider.GenerateAccessToken(identity, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.GenerateRefreshToken(identity, RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	if err := service.accountRepository.UpdateRefreshToken(context, account.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("auth_service_rotate_refresh_token_failed: %w", err)
	}
	account.RefreshToken = refreshToken

	return &LoginSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      account,
	}, nil
}

// # Password Recovery

/*
ForgotPassword initiates the reset flow for an existing account.

Description: Stages a 10-minute OTP under "forgot:<email>" and mails it with
a verification link. Unlike registration, the account must already exist.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: NotFound or storage errors
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {

	if _, err := service.accountRepository.FindByEmail(context, email); err != nil {
		return err
	}

	otp, err := sec.GenerateOTP()
	if err != nil {
		return fmt.Errorf("auth_service_reset_otp_failed: %w", err)
	}

	// Plain string storage, separately namespaced from registration blobs
	if err := service.resetRepository.Set(context, email, strconv.Itoa(otp), PendingResetTTL); err != nil {
		return fmt.Errorf("auth_service_reset_stage_failed: %w", err)
	}

	service.sendOtp(context, email, otp, service.links.VerificationLink(email))

	return nil
}

/*
VerifyResetOtp checks a reset OTP and licenses the final reset step.

Description: The comparison here is a TRIMMED STRING equality — intentionally
different from the registration path's numeric parse. Both rules are
inherited from the legacy API and kept separate on purpose.

On success the OTP is consumed and the caller receives a frontend redirect
embedding the email. This step does NOT change the password.

Parameters:
  - context: context.Context
  - email: string
  - otp: string

Returns:
  - string: Redirect target for the client
  - err: OtpExpired, InvalidOtp, or storage errors
*/
func (service *Service) VerifyResetOtp(context context.Context, email, otp string) (string, error) {

	storedOtp, err := service.resetRepository.Get(context, email)
	if err != nil {
		return "", err
	}

	if storedOtp != strings.TrimSpace(otp) {
		return "", apperr.InvalidOtp()
	}

	if err := service.resetRepository.Delete(context, email); err != nil {
		return "", fmt.Errorf("auth_service_reset_consume_failed: %w", err)
	}

	return service.links.ResetRedirect(email), nil
}

/*
ResetPassword replaces the account's password hash.

Description: Trusts that the caller passed VerifyResetOtp first — no
server-side ticket binds the two steps together. Known weakness of the
inherited contract; tracked as an open question, deliberately not hardened
here.

Parameters:
  - context: context.Context
  - email: string
  - newPassword: string

Returns:
  - err: NotFound or storage errors
*/
func (service *Service) ResetPassword(context context.Context, email, newPassword string) error {

	account, err := service.accountRepository.FindByEmail(context, email)
	if err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.accountRepository.UpdatePassword(context, account.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	return nil
}

// sendOtp delivers the code without letting a provider failure reach the
// caller. The success response must not depend on the mail actually landing.
func (service *Service) sendOtp(context context.Context, email string, otp int, link string) {
	if err := service.notifier.Send(context, email, otp, link); err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_otp_delivery_failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}
}
