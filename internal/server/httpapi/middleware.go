package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// userIDFrom returns the authenticated user ID placed by the auth middleware.
func userIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// withAuth verifies the Bearer token and injects the user ID into the
// request context. Requests without a valid token get 401.
func (h *handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}
