package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/catalog"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type productView struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	UnitPrice  string   `json:"unit_price"`
	Controlled bool     `json:"controlled"`
	Substances []string `json:"substances,omitempty"`
}

func toProductView(p *models.Product) productView {
	view := productView{
		ID:         p.ID,
		Name:       p.Name,
		Kind:       string(p.Kind),
		UnitPrice:  p.UnitPrice.StringFixed(2),
		Controlled: p.Controlled,
	}
	for _, substance := range p.Substances {
		view.Substances = append(view.Substances, substance.Name)
	}
	return view
}

type registerMedicineRequest struct {
	Name       string   `json:"name" validate:"required"`
	UnitPrice  string   `json:"unit_price" validate:"required"`
	Controlled bool     `json:"controlled"`
	Substances []string `json:"substances" validate:"required,min=1,dive,required"`
}

type registerParapharmaceuticalRequest struct {
	Name      string `json:"name" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	return price, nil
}

// RegisterMedicine handles medicine catalog registration.
func RegisterMedicine(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerMedicineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(payload.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.RegisterMedicine(r.Context(), catalog.RegisterMedicineInput{
			Name:       payload.Name,
			UnitPrice:  price,
			Controlled: payload.Controlled,
			Substances: payload.Substances,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toProductView(product))
	}
}

// RegisterParapharmaceutical handles non-medicine catalog registration.
func RegisterParapharmaceutical(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerParapharmaceuticalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(payload.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.RegisterParapharmaceutical(r.Context(), catalog.RegisterParapharmaceuticalInput{
			Name:      payload.Name,
			UnitPrice: price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toProductView(product))
	}
}

// GetProduct returns one catalog entry by id.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductView(product))
	}
}

// ListProducts pages through the catalog with optional kind/substance filters.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := catalog.ProductFilters{
			Substance: strings.TrimSpace(r.URL.Query().Get("substance")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, err := enums.ParseProductKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
				return
			}
			filters.Kind = &kind
		}
		controlled, err := validators.ParseQueryBool(r, "controlled")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Controlled = controlled

		list, err := svc.ListProducts(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]productView, 0, len(list.Products))
		for i := range list.Products {
			views = append(views, toProductView(&list.Products[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"products":    views,
			"next_cursor": list.NextCursor,
		})
	}
}

// ListSubstances returns every registered active substance.
func ListSubstances(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		substances, err := svc.ListSubstances(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		names := make([]string, 0, len(substances))
		for _, substance := range substances {
			names = append(names, substance.Name)
		}
		responses.WriteSuccess(w, map[string]any{"substances": names})
	}
}
