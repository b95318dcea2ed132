package handler

import (
	"encoding/json"
	"net/http"

	"bitable-auth/internal/middleware"
	"bitable-auth/internal/model"
	"bitable-auth/internal/service"
	"bitable-auth/internal/token"
	"bitable-auth/pkg/apierror"
)

type AuthHandler struct {
	service       *service.AuthService
	tokens        *token.Service
	secureCookies bool
}

func NewAuthHandler(service *service.AuthService, tokens *token.Service, secureCookies bool) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens, secureCookies: secureCookies}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.Validation("invalid JSON body"))
		return
	}

	result, err := h.service.Login(r.Context(), payload.Identifier, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookie(w, result.Token)
	writeSuccess(w, http.StatusOK, "login successful", result)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.Validation("invalid JSON body"))
		return
	}

	user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	// Registration never starts a session; the client logs in separately.
	writeSuccess(w, http.StatusCreated, "registration successful", user)
}

// Logout clears the auth cookie. Sessions are stateless server-side, so there
// is nothing else to revoke; the handler cannot fail.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.clearAuthCookie(w)
	writeSuccess(w, http.StatusOK, "logged out", nil)
}

// Me returns the identity embedded in the verified token. The store is not
// consulted; profile changes become visible on the next login.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	writeSuccess(w, http.StatusOK, "ok", claims.User)
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     token.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     token.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
