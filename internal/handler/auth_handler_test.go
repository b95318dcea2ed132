package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bitable-auth/internal/bitable"
	"bitable-auth/internal/middleware"
	"bitable-auth/internal/model"
	"bitable-auth/internal/service"
	"bitable-auth/internal/token"
	"bitable-auth/internal/util"
)

// stubStore serves a single fixed user.
type stubStore struct {
	alice *model.UserRecord
}

func (s *stubStore) FindUserByUsername(_ context.Context, username string) (*model.UserRecord, error) {
	if s.alice != nil && username == s.alice.Username {
		return s.alice, nil
	}
	return nil, nil
}

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (*model.UserRecord, error) {
	if s.alice != nil && email == s.alice.Email {
		return s.alice, nil
	}
	return nil, nil
}

func (s *stubStore) CreateUser(_ context.Context, params bitable.CreateUserParams) (*model.UserRecord, error) {
	return &model.UserRecord{
		User: model.User{
			RecordID:    "rec-new",
			Username:    params.Username,
			Email:       params.Email,
			Status:      bitable.StatusActive,
			CreatedTime: time.Now().UnixMilli(),
		},
		PasswordHash: params.PasswordHash,
	}, nil
}

func (s *stubStore) UpdateLastLogin(context.Context, string) error { return nil }

func newTestHandler(t *testing.T) (*AuthHandler, *token.Service) {
	t.Helper()

	hash, err := util.HashPassword("abc12345")
	require.NoError(t, err)

	store := &stubStore{alice: &model.UserRecord{
		User: model.User{
			RecordID: "rec-1",
			Username: "alice",
			Email:    "a@x.com",
			Status:   "active",
		},
		PasswordHash: hash,
	}}

	tokens := token.NewService("test-secret", time.Hour)
	return NewAuthHandler(service.NewAuthService(store, tokens), tokens, false), tokens
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var parsed model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed
}

func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == token.CookieName {
			return cookie
		}
	}
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("success sets the auth cookie", func(t *testing.T) {
		h, tokens := newTestHandler(t)

		body := strings.NewReader(`{"identifier":"alice","password":"abc12345"}`)
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		rec := httptest.NewRecorder()

		h.Login(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		parsed := decodeResponse(t, rec)
		require.True(t, parsed.Success)

		cookie := authCookie(rec)
		require.NotNil(t, cookie)
		require.True(t, cookie.HttpOnly)
		require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		require.Equal(t, int(tokens.TTL().Seconds()), cookie.MaxAge)

		claims, err := tokens.Verify(cookie.Value)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.User.Username)
	})

	t.Run("wrong password is 401 without a cookie", func(t *testing.T) {
		h, _ := newTestHandler(t)

		body := strings.NewReader(`{"identifier":"alice","password":"nope12345"}`)
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		parsed := decodeResponse(t, rec)
		require.False(t, parsed.Success)
		require.Equal(t, "UNAUTHORIZED", parsed.Error)
		require.Nil(t, authCookie(rec))
	})

	t.Run("malformed body is a validation error", func(t *testing.T) {
		h, _ := newTestHandler(t)

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{")))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "VALIDATION_ERROR", decodeResponse(t, rec).Error)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("created without a session", func(t *testing.T) {
		h, _ := newTestHandler(t)

		body := strings.NewReader(`{"username":"bob","email":"b@x.com","password":"abc12345"}`)
		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", body))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.True(t, decodeResponse(t, rec).Success)
		require.Nil(t, authCookie(rec))
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		h, _ := newTestHandler(t)

		body := strings.NewReader(`{"username":"alice","email":"other@x.com","password":"abc12345"}`)
		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", body))

		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "DUPLICATE_USER", decodeResponse(t, rec).Error)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := authCookie(rec)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	t.Parallel()

	h, tokens := newTestHandler(t)
	guard := middleware.NewAuthMiddleware(tokens)
	protected := guard.RequireAuth(http.HandlerFunc(h.Me))

	t.Run("returns the token identity", func(t *testing.T) {
		signed, err := tokens.Issue(model.User{RecordID: "rec-1", Username: "alice", Email: "a@x.com"})
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: token.CookieName, Value: signed})
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		parsed := decodeResponse(t, rec)
		require.True(t, parsed.Success)

		raw, err := json.Marshal(parsed.Data)
		require.NoError(t, err)
		var user model.User
		require.NoError(t, json.Unmarshal(raw, &user))
		require.Equal(t, "alice", user.Username)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "UNAUTHORIZED", decodeResponse(t, rec).Error)
	})

	t.Run("invalid token is distinguished from missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: token.CookieName, Value: "bogus"})
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, r)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "INVALID_TOKEN", decodeResponse(t, rec).Error)
	})
}
