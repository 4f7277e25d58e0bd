package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/pkg/jwtutil"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/response"
)

const sessionExpiredMsg = "Tu sesión ha expirado o es inválida. Por favor, inicia sesión nuevamente."

type AuthMiddleware struct {
	verifier *jwtutil.Verifier
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier *jwtutil.Verifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Middleware rejects requests without a valid bearer token and stores the
// operator id and token on the request context.
func (am *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			response.Error(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := am.verifier.ParseAndValidate(token)
		if err != nil {
			am.logger.Debug("token rejected",
				zap.String("path", r.URL.Path),
				zap.Bool("expired", errors.Is(err, jwtutil.ErrExpiredToken)))
			w.Header().Set("WWW-Authenticate", "Bearer")
			response.Error(w, http.StatusUnauthorized, sessionExpiredMsg)
			return
		}

		next.ServeHTTP(w, setContextValues(r, claims, token))
	})
}

// RequireRoles allows the request only if the token's role is listed.
func (am *AuthMiddleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(ContextRole).(string)
			if role == "" {
				response.Error(w, http.StatusForbidden, "role not found in token")
				return
			}
			if !contains(roles, role) {
				response.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
