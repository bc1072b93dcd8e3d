package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
	"github.com/go-chi/jwtauth/v5"
)

// RequireCompany copies the company_id claim onto the request context. Requests
// from users without a company are rejected.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claimsMap, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, user.ErrCompanyIDRequired)
			return
		}

		claims, err := jwt.ClaimsFromMap(claimsMap)
		if err != nil || claims.CompanyID == nil || claims.Role == user.RolePending {
			response.HandleError(w, user.ErrCompanyIDRequired)
			return
		}

		ctx := requestctx.WithCompanyID(r.Context(), *claims.CompanyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
