// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlanbek/sabaq/internal/platform/middleware"
	requestutil "github.com/nurlanbek/sabaq/internal/platform/request"
	"github.com/nurlanbek/sabaq/internal/platform/respond"
	"github.com/nurlanbek/sabaq/internal/platform/sec"
)

func newTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService("test-access-secret", "test-refresh-secret", "sabaq.app")
	require.NoError(t, err)
	return service
}

func accessTokenFor(t *testing.T, tokens *sec.TokenService, role string) string {
	t.Helper()
	token, err := tokens.GenerateAccessToken(sec.Identity{
		UserID:    "0192aaaa-bbbb-7ccc-8ddd-eeeeffff0000",
		Email:     "jane@x.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      role,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

// whoami echoes the authenticated email so tests can see the injected claims.
func whoami(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"email": claims.Email})
}

/*
TestAuthenticate_Transports covers the two token transports and the
anonymous passthrough.
*/
func TestAuthenticate_Transports(t *testing.T) {
	tokens := newTokenService(t)
	handler := middleware.Authenticate(tokens)(http.HandlerFunc(whoami))

	t.Run("cookie_transport", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		request.AddCookie(&http.Cookie{Name: "accessToken", Value: accessTokenFor(t, tokens, "student")})
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "jane@x.com")
	})

	t.Run("bearer_transport", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		request.Header.Set("Authorization", "Bearer "+accessTokenFor(t, tokens, "student"))
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	// The cookie wins when both transports are present.
	t.Run("cookie_takes_precedence", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		request.AddCookie(&http.Cookie{Name: "accessToken", Value: accessTokenFor(t, tokens, "student")})
		request.Header.Set("Authorization", "Bearer garbage")
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("anonymous_passthrough", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		// Reaches the handler unauthenticated; RequiredClaims turns it into 401.
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("malformed_header", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		request.Header.Set("Authorization", "Token abc")
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("invalid_token", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		request.Header.Set("Authorization", "Bearer not-a-jwt")
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	tokens := newTokenService(t)
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})
	handler := middleware.Authenticate(tokens)(middleware.RequireAuth(next))

	t.Run("authenticated", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer "+accessTokenFor(t, tokens, "student"))
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusNoContent, recorder.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

/*
TestRequireRole exercises the staff guards: admin-only and the wider
admin-or-instructor set.
*/
func TestRequireRole(t *testing.T) {
	tokens := newTokenService(t)
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		allowed    []sec.UserRole
		role       string
		wantStatus int
	}{
		{"admin_passes_admin_guard", []sec.UserRole{sec.RoleAdmin}, "admin", http.StatusNoContent},
		{"student_fails_admin_guard", []sec.UserRole{sec.RoleAdmin}, "student", http.StatusForbidden},
		{"instructor_passes_staff_guard", []sec.UserRole{sec.RoleAdmin, sec.RoleInstructor}, "instructor", http.StatusNoContent},
		{"student_fails_staff_guard", []sec.UserRole{sec.RoleAdmin, sec.RoleInstructor}, "student", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Authenticate(tokens)(middleware.RequireRole(tt.allowed...)(next))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.Header.Set("Authorization", "Bearer "+accessTokenFor(t, tokens, tt.role))
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}

	t.Run("anonymous_gets_401_not_403", func(t *testing.T) {
		handler := middleware.Authenticate(tokens)(middleware.RequireRole(sec.RoleAdmin)(next))

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
