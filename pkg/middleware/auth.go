package middleware

import (
	"net/http"
	"strings"

	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// GuestIDHeader carries the authenticated guest's user id, set by the upstream
// session layer.
const GuestIDHeader = "X-Guest-ID"

// Operator admits requests whose bearer token matches the bcrypt tokenHash.
func Operator(tokenHash string, logger *zap.Logger) func(http.Handler) http.Handler {
	hash := []byte(tokenHash)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				utils.ResponseUnauthorized(w, "Operator access is not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			if err := bcrypt.CompareHashAndPassword(hash, []byte(strings.TrimSpace(token))); err != nil {
				logger.Warn("Rejected operator token",
					zap.String("path", r.URL.Path),
					zap.String("ip", r.RemoteAddr))
				utils.ResponseUnauthorized(w, "Invalid operator token")
				return
			}

			ctx := utils.SetRoleContext(r.Context(), utils.RoleOperator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuestIdentity puts a guest id from GuestIDHeader into the context. Requests
// without the header pass through anonymously.
func GuestIdentity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(GuestIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(raw)
			if err != nil {
				logger.Warn("Malformed guest identity header", zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid guest identity")
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID, utils.RoleGuest)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireGuest rejects requests that carry no guest identity.
func RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
