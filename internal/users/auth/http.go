// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nurlanbek/sabaq/internal/platform/apperr"
	"github.com/nurlanbek/sabaq/internal/platform/constants"
	requestutil "github.com/nurlanbek/sabaq/internal/platform/request"
	"github.com/nurlanbek/sabaq/internal/platform/respond"
	"github.com/nurlanbek/sabaq/internal/platform/sec"
	"github.com/nurlanbek/sabaq/internal/platform/validate"
)

// Handler exposes the authentication use cases over HTTP.
//
// The response bodies and status codes below are a published contract with
// the Sabaq frontend; changing a message string or a status is a breaking
// change and needs a coordinated client release.
type Handler struct {
	authService   *Service
	secureCookies bool
}

// NewHandler constructs a new [Handler].
//
// secureCookies must be true in production so the access token cookie is
// only ever sent over TLS.
func NewHandler(authService *Service, secureCookies bool) *Handler {
	return &Handler{
		authService:   authService,
		secureCookies: secureCookies,
	}
}

// Routes returns the router for the authentication endpoints.
func (handler *Handler) Routes() http.Handler {
	router := chi.NewRouter()

	router.Post("/register", handler.handleRegister)
	router.Post("/verify-otp", handler.handleVerifyOtp)
	router.Post("/login", handler.handleLogin)
	router.Post("/refresh-token", handler.handleRefreshToken)
	router.Post("/forgot-password", handler.handleForgotPassword)
	router.Post("/verify-otp-reset", handler.handleVerifyResetOtp)
	router.Post("/reset-password", handler.handleResetPassword)

	return router
}

// # Request Payloads

type registerRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Cohort    string `json:"cohort"`
}

type verifyOtpRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// # Session Payload

// sessionResponse is the body shared by login and refresh-token.
type sessionResponse struct {
	Message      string  `json:"message"`
	RefreshToken string  `json:"refreshToken"`
	User         Profile `json:"user"`
}

// # Endpoints

/*
handleRegister stages a registration and triggers OTP delivery.

	POST /register
	Success: 200 {"message": "OTP sent to email"}
*/
func (handler *Handler) handleRegister(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role := payload.Role
	if role == "" {
		role = string(sec.RoleStudent)
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldFirstName, payload.FirstName).
		Required(FieldLastName, payload.LastName).
		Required(FieldEmail, payload.Email).
		Email(FieldEmail, payload.Email).
		Required(FieldPassword, payload.Password).
		OneOf(FieldRole, role,
			string(sec.RoleStudent), string(sec.RoleAdmin), string(sec.RoleInstructor)).
		Custom(FieldCohort,
			role == string(sec.RoleStudent) && payload.Cohort == "",
			"Cohort is required for students")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.Register(request.Context(), RegisterInput{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
		Role:      sec.UserRole(role),
		Cohort:    payload.Cohort,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "OTP sent to email",
	})
}

/*
handleVerifyOtp confirms the OTP and creates the account.

	POST /verify-otp
	Success: 201 {"message": "User verified and registered successfully"}
*/
func (handler *Handler) handleVerifyOtp(writer http.ResponseWriter, request *http.Request) {
	var payload verifyOtpRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, payload.Email).
		Required(FieldOtp, payload.Otp)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.authService.VerifyOtp(request.Context(), payload.Email, payload.Otp); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]string{
		FieldMessage: "User verified and registered successfully",
	})
}

/*
handleLogin authenticates credentials and establishes a session.

	POST /login
	Success: 200 {"message": "Login successful", "refreshToken": ..., "user": ...}
	plus the httpOnly accessToken cookie.
*/
func (handler *Handler) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, payload.Email).
		Required(FieldPassword, payload.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), payload.Email, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAccessTokenCookie(writer, session.AccessToken)
	respond.OK(writer, sessionResponse{
		Message:      "Login successful",
		RefreshToken: session.RefreshToken,
		User:         session.Account.Profile(),
	})
}

/*
handleRefreshToken rotates the refresh token and re-issues the session.

	POST /refresh-token
	Success: 200 {"message": "Access token refreshed successfully", ...}
	Missing token: 401. Invalid or superseded token: 403.
*/
func (handler *Handler) handleRefreshToken(writer http.ResponseWriter, request *http.Request) {
	var payload refreshTokenRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if payload.RefreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Refresh token missing"))
		return
	}

	session, err := handler.authService.Refresh(request.Context(), payload.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAccessTokenCookie(writer, session.AccessToken)
	respond.OK(writer, sessionResponse{
		Message:      "Access token refreshed successfully",
		RefreshToken: session.RefreshToken,
		User:         session.Account.Profile(),
	})
}

/*
handleForgotPassword stages a reset OTP for an existing account.

	POST /forgot-password
	Success: 200 {"message": "OTP and verification link sent to your email", "code": "OTP_SENT"}
	Unknown email: 404.
*/
func (handler *Handler) handleForgotPassword(writer http.ResponseWriter, request *http.Request) {
	var payload forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if payload.Email == "" {
		respond.Error(writer, request, apperr.MissingFields("Email is required"))
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), payload.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "OTP and verification link sent to your email",
		FieldCode:    "OTP_SENT",
	})
}

/*
handleVerifyResetOtp checks the reset OTP and hands back the redirect.

	POST /verify-otp-reset
	Success: 200 {"success": true, "redirect": "<frontend>?email=..."}
*/
func (handler *Handler) handleVerifyResetOtp(writer http.ResponseWriter, request *http.Request) {
	var payload verifyOtpRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if payload.Email == "" || payload.Otp == "" {
		respond.Error(writer, request, apperr.MissingFields("Email and OTP are required"))
		return
	}

	redirect, err := handler.authService.VerifyResetOtp(request.Context(), payload.Email, payload.Otp)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{
		FieldSuccess:  true,
		FieldRedirect: redirect,
	})
}

/*
handleResetPassword finalizes the reset with the new password.

	POST /reset-password
	Success: 200 {"message": "Password reset successful"}
*/
func (handler *Handler) handleResetPassword(writer http.ResponseWriter, request *http.Request) {
	var payload resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, payload.Email).
		Required(FieldNewPassword, payload.NewPassword)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), payload.Email, payload.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password reset successful",
	})
}

// setAccessTokenCookie attaches the httpOnly access token cookie.
//
// MaxAge tracks [AccessTokenTTL] so the browser drops the cookie when the
// token inside it expires.
func (handler *Handler) setAccessTokenCookie(writer http.ResponseWriter, accessToken string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    accessToken,
		Path:     constants.AccessTokenCookiePath,
		MaxAge:   int(AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
