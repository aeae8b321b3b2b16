package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/obs"
)

// Middleware scopes requests to the authenticated user.
type Middleware struct {
	Verifier *Verifier
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject as the request's user id.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.WriteError(w, common.NewDependencyError("auth not configured", errors.New("auth: verifier missing")))
			return
		}
		token := bearerToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		userID, err := m.Verifier.ParseAccessToken(token)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		obs.AnnotateUser(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
