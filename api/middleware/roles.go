package middleware

import (
	"net/http"

	"github.com/koepon-app/koepon-backend/api/responses"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

// RequireAdmin rejects requests whose authenticated role is not admin.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(string(enums.UserRoleAdmin), logg)
}

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
