package middleware

import (
	"net/http"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

// PharmacyContext rejects requests whose token carries no pharmacy tax id.
func PharmacyContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PharmacyTaxIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
