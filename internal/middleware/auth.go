package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"bitable-auth/internal/model"
	"bitable-auth/internal/token"
)

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	tokens *token.Service
}

func NewAuthMiddleware(tokens *token.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth verifies the session token from the cookie or bearer header and
// puts the claims on the request context. A missing token and an invalid one
// get distinct messages so clients can tell "log in" from "log in again".
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.tokens.FromRequest(r)
		if err != nil {
			if errors.Is(err, model.ErrNoToken) {
				writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			} else {
				writeUnauthorized(w, "INVALID_TOKEN", "invalid or expired token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*token.Claims)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Message: message,
		Error:   code,
	})
}
