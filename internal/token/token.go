// Package token issues and verifies the signed session tokens that identify
// authenticated users, and extracts them from incoming requests.
package token

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bitable-auth/internal/model"
	"bitable-auth/pkg/apierror"
)

// CookieName is the cookie the session token travels in.
const CookieName = "auth-token"

// Claims wraps the public user identity in a standard JWT claim set.
type Claims struct {
	User model.User `json:"user"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Service{secret: []byte(secret), ttl: ttl}
}

// TTL is the fixed lifetime of issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session token carrying the user identity, expiring after TTL.
func (s *Service) Issue(user model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.RecordID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a session token. Any failure -- wrong signature,
// wrong algorithm, malformed structure, expiry -- yields an INVALID_TOKEN error;
// there is no partial success.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.InvalidToken("unexpected token signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.InvalidToken("invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.User.RecordID == "" {
		return nil, apierror.InvalidToken("invalid token claims")
	}

	return claims, nil
}

// FromRequest reads the session token from the auth cookie, falling back to a
// bearer Authorization header. A request with no token at all yields
// model.ErrNoToken so callers can treat it as anonymous rather than rejected.
func (s *Service) FromRequest(r *http.Request) (*Claims, error) {
	raw := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		raw = strings.TrimSpace(cookie.Value)
	}

	if raw == "" {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			raw = strings.TrimSpace(header[7:])
		}
	}

	if raw == "" {
		return nil, model.ErrNoToken
	}

	return s.Verify(raw)
}
