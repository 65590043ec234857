package core

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"invoicestudio/internal/types"
)

// sessionClaims is the claim set monday attaches to action callbacks and
// client session tokens, signed HS256 with the app's signing secret.
type sessionClaims struct {
	AccountID string `json:"accountId"`
	UserID    string `json:"userId"`
	jwt.RegisteredClaims
}

// VerifySessionToken parses and verifies a monday session token, returning
// the Actor it authenticates.
func VerifySessionToken(token string, secret types.SecretString) (types.Actor, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret.Unmask()), nil
	})
	if err != nil {
		return types.Actor{}, err
	}
	if claims.AccountID == "" {
		return types.Actor{}, jwt.ErrTokenInvalidClaims
	}
	return types.Actor{AccountID: claims.AccountID, UserID: claims.UserID}, nil
}

// AuthMiddleware verifies the Authorization header monday sends with action
// callbacks and stores the resulting Actor in the request context. A missing
// or unverifiable token is a recoverable misconfiguration (401): the user can
// reinstall or fix the app's signing secret and retry.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			s.Responder.Error(w, r, types.Recoverable(
				"Missing credentials",
				"the request did not carry a monday session token",
			).WithStatus(http.StatusUnauthorized))
			return
		}

		actor, err := VerifySessionToken(token, s.Config.Monday.SigningSecret)
		if err != nil {
			s.Responder.Error(w, r, types.Recoverable(
				"Invalid credentials",
				"the monday session token could not be verified",
			).WithStatus(http.StatusUnauthorized).WithCause(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), actor)))
	})
}
