package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "balangay/pkg/domain"
	"balangay/pkg/requestcontext"
)

// TokenValidator validates a bearer token and yields the acting principal ID.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.PrincipalID, error)
}

// JWTValidator validates HS256 tokens whose subject is the principal ID.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (id.PrincipalID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return id.PrincipalID{}, fmt.Errorf("parse token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return id.PrincipalID{}, fmt.Errorf("token subject: %w", err)
	}
	pid, err := id.ParsePrincipalID(sub)
	if err != nil {
		return id.PrincipalID{}, fmt.Errorf("token subject: %w", err)
	}
	return pid, nil
}

// RequireAuth rejects requests without a valid bearer token and injects the
// acting principal ID into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			pid, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Debug("token rejected", "err", err)
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := requestcontext.WithPrincipalID(r.Context(), pid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
