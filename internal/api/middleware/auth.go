package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/shared"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/logger"
)

// AccessTokenParam is accepted in place of the Authorization header on GET
// requests, for clients such as EventSource that cannot set headers.
const AccessTokenParam = "access_token"

// AuthMiddleware provides bearer token authentication for routes.
type AuthMiddleware struct {
	tokens auth.TokenService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(tokens auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token and adds its subject to the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, message := bearerToken(r)
		if token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, message)
			return
		}

		claims, err := m.tokens.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			}
			return
		}

		ctx := shared.WithSubject(r.Context(), claims.Subject)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("subject", claims.Subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token, or returns the message explaining why
// there is none.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if r.Method == http.MethodGet {
			if token := r.URL.Query().Get(AccessTokenParam); token != "" {
				return token, ""
			}
		}
		return "", "Authorization header required"
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "Invalid authorization format"
	}
	return token, ""
}
