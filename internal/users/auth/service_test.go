// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package auth_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlanbek/sabaq/internal/platform/apperr"
	"github.com/nurlanbek/sabaq/internal/platform/sec"
	"github.com/nurlanbek/sabaq/internal/users/auth"
)

// # Test Doubles

// memoryAccountRepository is an in-memory AccountRepository for service tests.
type memoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account // keyed by ID
}

func newMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{accounts: make(map[string]*auth.Account)}
}

func (repository *memoryAccountRepository) FindByID(_ context.Context, id string) (*auth.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if account, ok := repository.accounts[id]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryAccountRepository) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, account := range repository.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryAccountRepository) Create(_ context.Context, account *auth.Account) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	for _, existing := range repository.accounts {
		if existing.Email == account.Email {
			return apperr.Conflict("User already exists")
		}
	}
	clone := *account
	repository.accounts[account.ID] = &clone
	return nil
}

func (repository *memoryAccountRepository) UpdateRefreshToken(_ context.Context, accountID, refreshToken string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if account, ok := repository.accounts[accountID]; ok {
		account.RefreshToken = refreshToken
	}
	return nil
}

func (repository *memoryAccountRepository) UpdatePassword(_ context.Context, accountID, newHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if account, ok := repository.accounts[accountID]; ok {
		account.PasswordHash = newHash
	}
	return nil
}

// unavailableAccountRepository simulates a store outage on every lookup.
type unavailableAccountRepository struct {
	*memoryAccountRepository
}

func (repository *unavailableAccountRepository) FindByEmail(_ context.Context, _ string) (*auth.Account, error) {
	return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

// recordingNotifier captures outbound OTP mails instead of sending them.
type recordingNotifier struct {
	mu    sync.Mutex
	sends []sentMail
}

type sentMail struct {
	To   string
	Otp  int
	Link string
}

func (notifier *recordingNotifier) Send(_ context.Context, toEmail string, otp int, link string) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.sends = append(notifier.sends, sentMail{To: toEmail, Otp: otp, Link: link})
	return nil
}

func (notifier *recordingNotifier) last(t *testing.T) sentMail {
	t.Helper()
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.NotEmpty(t, notifier.sends, "expected at least one OTP mail")
	return notifier.sends[len(notifier.sends)-1]
}

// testEnv bundles a fully wired Service with inspectable internals.
type testEnv struct {
	service  *auth.Service
	accounts *memoryAccountRepository
	pending  auth.PendingRegistrationRepository
	resets   auth.PendingResetRepository
	notifier *recordingNotifier
	tokens   *sec.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	_, client := newTestRedis(t)
	accounts := newMemoryAccountRepository()
	pending := auth.NewPendingRegistrationRepository(client)
	resets := auth.NewPendingResetRepository(client)
	notifier := &recordingNotifier{}

	tokens, err := sec.NewTokenService("access-secret-for-tests", "refresh-secret-for-tests", "sabaq.app")
	require.NoError(t, err)

	service := auth.NewService(accounts, pending, resets, tokens, notifier, auth.LinkBuilder{
		BackendURL:  "http://localhost:8080",
		FrontendURL: "http://localhost:3000",
	})

	return &testEnv{
		service:  service,
		accounts: accounts,
		pending:  pending,
		resets:   resets,
		notifier: notifier,
		tokens:   tokens,
	}
}

func registerInput() auth.RegisterInput {
	return auth.RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Password:  "s3cret-password",
		Role:      sec.RoleStudent,
		Cohort:    "C1",
	}
}

// registerAndVerify walks the happy registration path and returns the account.
func registerAndVerify(t *testing.T, env *testEnv) *auth.Account {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput()))
	otp := env.notifier.last(t).Otp

	account, err := env.service.VerifyOtp(ctx, "jane@x.com", strconv.Itoa(otp))
	require.NoError(t, err)
	return account
}

// # Registration

/*
TestService_Register_StagesWithoutCreatingAccount asserts the core
invariant: register never creates an account row, only a staged record.
*/
func TestService_Register_StagesWithoutCreatingAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput()))

	// The OTP mail went out with the staged code.
	mail := env.notifier.last(t)
	assert.Equal(t, "jane@x.com", mail.To)
	assert.GreaterOrEqual(t, mail.Otp, 100000)
	assert.LessOrEqual(t, mail.Otp, 999999)

	// No account exists yet.
	_, err := env.accounts.FindByEmail(ctx, "jane@x.com")
	require.Error(t, err)

	// But the pending record does, password already hashed.
	staged, err := env.pending.Get(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, mail.Otp, staged.Otp)
	assert.NotEqual(t, "s3cret-password", staged.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("s3cret-password", staged.PasswordHash))
}

/*
TestService_Register_StoreOutageFailsTheRequest guards against a dark path:
if the uniqueness lookup cannot reach the database, register must fail
loudly instead of treating the email as free. Nothing may be staged and no
mail may go out.
*/
func TestService_Register_StoreOutageFailsTheRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	broken := &unavailableAccountRepository{memoryAccountRepository: env.accounts}
	service := auth.NewService(broken, env.pending, env.resets, env.tokens, env.notifier, auth.LinkBuilder{
		BackendURL:  "http://localhost:8080",
		FrontendURL: "http://localhost:3000",
	})

	err := service.Register(ctx, registerInput())
	require.Error(t, err, "Register must fail when the account store is unreachable")

	// The failure is an internal one, not a client-facing taxonomy code.
	assert.Nil(t, apperr.As(err))

	// No pending record was staged and no OTP mail left the building.
	_, err = env.pending.Get(ctx, "jane@x.com")
	require.Error(t, err)

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	assert.Empty(t, env.notifier.sends)
}

func TestService_Register_ConflictOnExistingEmail(t *testing.T) {
	env := newTestEnv(t)
	registerAndVerify(t, env)

	err := env.service.Register(context.Background(), registerInput())
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus)
}

/*
TestService_Register_RepeatOverwritesPending verifies that a second register
invalidates the first OTP entirely.
*/
func TestService_Register_RepeatOverwritesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput()))
	firstOtp := env.notifier.last(t).Otp

	require.NoError(t, env.service.Register(ctx, registerInput()))
	secondOtp := env.notifier.last(t).Otp

	staged, err := env.pending.Get(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, secondOtp, staged.Otp)

	if firstOtp != secondOtp {
		_, err := env.service.VerifyOtp(ctx, "jane@x.com", strconv.Itoa(firstOtp))
		require.Error(t, err, "superseded OTP must not verify")
	}
}

// # OTP Verification

func TestService_VerifyOtp_CreatesVerifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := registerAndVerify(t, env)

	assert.NotEmpty(t, account.ID)
	assert.True(t, account.IsVerified)
	assert.Equal(t, sec.RoleStudent, account.Role)
	assert.Equal(t, "C1", account.Cohort)

	// The staged record is consumed: a replayed verify reports expiry.
	_, err := env.service.VerifyOtp(ctx, "jane@x.com", "000000")
	require.Error(t, err)
	assert.Equal(t, "OTP_EXPIRED", apperr.As(err).Code)
}

func TestService_VerifyOtp_WrongCodeLeavesPendingIntact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput()))
	correctOtp := env.notifier.last(t).Otp

	wrongOtp := correctOtp + 1
	if wrongOtp > 999999 {
		wrongOtp = 100000
	}

	_, err := env.service.VerifyOtp(ctx, "jane@x.com", strconv.Itoa(wrongOtp))
	require.Error(t, err)
	assert.Equal(t, "INVALID_OTP", apperr.As(err).Code)

	// A wrong guess must not consume the staged record.
	account, err := env.service.VerifyOtp(ctx, "jane@x.com", strconv.Itoa(correctOtp))
	require.NoError(t, err)
	assert.True(t, account.IsVerified)
}

/*
TestService_VerifyOtp_NumericComparison pins the legacy parsing rule:
surrounding whitespace is tolerated, non-numeric input is INVALID_OTP.
*/
func TestService_VerifyOtp_NumericComparison(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.service.Register(ctx, registerInput()))
	otp := env.notifier.last(t).Otp

	_, err := env.service.VerifyOtp(ctx, "jane@x.com", "not-a-number")
	require.Error(t, err)
	assert.Equal(t, "INVALID_OTP", apperr.As(err).Code)

	account, err := env.service.VerifyOtp(ctx, "jane@x.com", "  "+strconv.Itoa(otp)+" ")
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", account.Email)
}

func TestService_VerifyOtp_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.VerifyOtp(context.Background(), "nobody@x.com", "123456")
	require.Error(t, err)
	assert.Equal(t, "OTP_EXPIRED", apperr.As(err).Code)
}

// # Login

func TestService_Login_IssuesSessionAndStoresRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	session, err := env.service.Login(ctx, "jane@x.com", "s3cret-password")
	require.NoError(t, err)

	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "jane@x.com", session.Account.Email)

	// The refresh token is persisted on the account for rotation checks.
	stored, err := env.accounts.FindByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, session.RefreshToken, stored.RefreshToken)

	// Both tokens verify against their respective secrets.
	accessClaims, err := env.tokens.VerifyAccessToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", accessClaims.Email)
	assert.Equal(t, string(sec.RoleStudent), accessClaims.Role)

	refreshClaims, err := env.tokens.VerifyRefreshToken(session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, refreshClaims.UserID)
}

/*
TestService_Login_InvalidCredentials asserts the anti-enumeration rule:
unknown email and wrong password produce the identical error.
*/
func TestService_Login_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	_, unknownErr := env.service.Login(ctx, "nobody@x.com", "whatever")
	_, wrongErr := env.service.Login(ctx, "jane@x.com", "wrong-password")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)

	unknownAe, wrongAe := apperr.As(unknownErr), apperr.As(wrongErr)
	require.NotNil(t, unknownAe)
	require.NotNil(t, wrongAe)

	assert.Equal(t, unknownAe.Code, wrongAe.Code)
	assert.Equal(t, unknownAe.Message, wrongAe.Message)
	assert.Equal(t, http.StatusBadRequest, wrongAe.HTTPStatus)
}

// # Token Rotation

func TestService_Refresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	session, err := env.service.Login(ctx, "jane@x.com", "s3cret-password")
	require.NoError(t, err)

	rotated, err := env.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	// The rotated token is now the only live one.
	stored, err := env.accounts.FindByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, rotated.RefreshToken, stored.RefreshToken)
}

/*
TestService_Refresh_RejectsSupersededToken replays the pre-rotation token
and expects a 403: only the currently stored refresh token is valid.
*/
func TestService_Refresh_RejectsSupersededToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	session, err := env.service.Login(ctx, "jane@x.com", "s3cret-password")
	require.NoError(t, err)

	_, err = env.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)

	// Replay of the superseded token.
	_, err = env.service.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusForbidden, ae.HTTPStatus)
}

func TestService_Refresh_RejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Refresh(context.Background(), "not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.As(err).HTTPStatus)
}

/*
TestService_Refresh_RejectsAccessTokenAsRefresh ensures the separate
signing secrets keep the token kinds from being interchangeable.
*/
func TestService_Refresh_RejectsAccessTokenAsRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	session, err := env.service.Login(ctx, "jane@x.com", "s3cret-password")
	require.NoError(t, err)

	_, err = env.service.Refresh(ctx, session.AccessToken)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.As(err).HTTPStatus)
}

// # Password Recovery

func TestService_ForgotPassword_StagesOtpWithLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	require.NoError(t, env.service.ForgotPassword(ctx, "jane@x.com"))

	mail := env.notifier.last(t)
	assert.Equal(t, "jane@x.com", mail.To)
	assert.Equal(t, "http://localhost:8080/verify-otp?email=jane%40x.com", mail.Link)

	stored, err := env.resets.Get(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(mail.Otp), stored)
}

func TestService_ForgotPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.ForgotPassword(context.Background(), "nobody@x.com")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}

func TestService_VerifyResetOtp_ConsumesAndRedirects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	require.NoError(t, env.service.ForgotPassword(ctx, "jane@x.com"))
	otp := env.notifier.last(t).Otp

	// Trimmed string comparison: surrounding whitespace is tolerated.
	redirect, err := env.service.VerifyResetOtp(ctx, "jane@x.com", " "+strconv.Itoa(otp)+" ")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000?email=jane%40x.com", redirect)

	// The OTP is single-use.
	_, err = env.service.VerifyResetOtp(ctx, "jane@x.com", strconv.Itoa(otp))
	require.Error(t, err)
	assert.Equal(t, "OTP_EXPIRED", apperr.As(err).Code)
}

func TestService_VerifyResetOtp_WrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	require.NoError(t, env.service.ForgotPassword(ctx, "jane@x.com"))

	_, err := env.service.VerifyResetOtp(ctx, "jane@x.com", "000000")
	require.Error(t, err)
	assert.Equal(t, "INVALID_OTP", apperr.As(err).Code)

	// A wrong guess does not consume the staged OTP.
	otp := env.notifier.last(t).Otp
	_, err = env.service.VerifyResetOtp(ctx, "jane@x.com", strconv.Itoa(otp))
	require.NoError(t, err)
}

func TestService_ResetPassword_ReplacesHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerAndVerify(t, env)

	require.NoError(t, env.service.ResetPassword(ctx, "jane@x.com", "brand-new-password"))

	// Old password is dead, new one works.
	_, err := env.service.Login(ctx, "jane@x.com", "s3cret-password")
	require.Error(t, err)

	session, err := env.service.Login(ctx, "jane@x.com", "brand-new-password")
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", session.Account.Email)
}

func TestService_ResetPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.ResetPassword(context.Background(), "nobody@x.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}
