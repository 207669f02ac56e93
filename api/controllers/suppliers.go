package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/backorders"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type supplierProductView struct {
	ProductID int64  `json:"product_id"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

type supplierView struct {
	ID       int64                 `json:"id"`
	Name     string                `json:"name"`
	Products []supplierProductView `json:"products,omitempty"`
}

func toSupplierView(s *models.Supplier) supplierView {
	view := supplierView{ID: s.ID, Name: s.Name}
	for _, product := range s.Products {
		view.Products = append(view.Products, supplierProductView{
			ProductID: product.ProductID,
			ValidFrom: product.ValidFrom.Format("2006-01-02"),
			ValidTo:   product.ValidTo.Format("2006-01-02"),
		})
	}
	return view
}

type registerSupplierRequest struct {
	Name string `json:"name" validate:"required"`
}

// RegisterSupplier creates an upstream vendor record.
func RegisterSupplier(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerSupplierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.RegisterSupplier(r.Context(), backorders.RegisterSupplierInput{Name: payload.Name})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toSupplierView(supplier))
	}
}

// ListSuppliers returns every registered supplier with its product windows.
func ListSuppliers(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListSuppliers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]supplierView, 0, len(records))
		for i := range records {
			views = append(views, toSupplierView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"suppliers": views})
	}
}

type addSupplierProductRequest struct {
	ProductID int64  `json:"product_id" validate:"required,min=1"`
	ValidFrom string `json:"valid_from" validate:"required"`
	ValidTo   string `json:"valid_to" validate:"required"`
}

// AddSupplierProduct opens a validity window for a supplier/product pairing.
func AddSupplierProduct(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := validators.ParsePathID(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addSupplierProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validFrom, err := time.Parse("2006-01-02", strings.TrimSpace(payload.ValidFrom))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid valid_from date"))
			return
		}
		validTo, err := time.Parse("2006-01-02", strings.TrimSpace(payload.ValidTo))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid valid_to date"))
			return
		}

		window, err := svc.AddSupplierProduct(r.Context(), backorders.SupplierProductInput{
			SupplierID: supplierID,
			ProductID:  payload.ProductID,
			ValidFrom:  validFrom,
			ValidTo:    validTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, supplierProductView{
			ProductID: window.ProductID,
			ValidFrom: window.ValidFrom.Format("2006-01-02"),
			ValidTo:   window.ValidTo.Format("2006-01-02"),
		})
	}
}
