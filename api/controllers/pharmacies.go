package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/contracts"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type pharmacyView struct {
	TaxID      string  `json:"tax_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
}

func toPharmacyView(p *models.Pharmacy) pharmacyView {
	return pharmacyView{
		TaxID:      p.TaxID,
		Name:       p.Name,
		Address:    p.Address,
		City:       p.City,
		PostalCode: p.PostalCode,
		Phone:      p.Phone,
		Email:      p.Email,
	}
}

type contractView struct {
	ID                int64      `json:"id"`
	PharmacyTaxID     string     `json:"pharmacy_tax_id"`
	StartDate         string     `json:"start_date"`
	EndDate           string     `json:"end_date"`
	DurationMonths    int        `json:"duration_months"`
	PaymentMethod     string     `json:"payment_method"`
	DeliveryFrequency string     `json:"delivery_frequency"`
	DiscountRate      string     `json:"discount_rate"`
	SignedAt          time.Time  `json:"signed_at"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}

func toContractView(c *models.Contract) contractView {
	return contractView{
		ID:                c.ID,
		PharmacyTaxID:     c.PharmacyTaxID,
		StartDate:         c.StartDate.Format("2006-01-02"),
		EndDate:           c.EndDate.Format("2006-01-02"),
		DurationMonths:    c.DurationMonths,
		PaymentMethod:     string(c.PaymentMethod),
		DeliveryFrequency: string(c.DeliveryFrequency),
		DiscountRate:      c.DiscountRate.String(),
		SignedAt:          c.SignedAt,
		CancelledAt:       c.CancelledAt,
	}
}

type registerPharmacyRequest struct {
	TaxID      string  `json:"tax_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Address    string  `json:"address" validate:"required"`
	City       string  `json:"city" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
}

// RegisterPharmacy creates a pharmacy customer record.
func RegisterPharmacy(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerPharmacyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pharmacy, err := svc.RegisterPharmacy(r.Context(), contracts.RegisterPharmacyInput{
			TaxID:      payload.TaxID,
			Name:       payload.Name,
			Address:    payload.Address,
			City:       payload.City,
			PostalCode: payload.PostalCode,
			Phone:      payload.Phone,
			Email:      payload.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPharmacyView(pharmacy))
	}
}

// GetPharmacy returns one pharmacy by tax id.
func GetPharmacy(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taxID := strings.TrimSpace(chi.URLParam(r, "taxId"))
		if taxID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tax id required"))
			return
		}

		pharmacy, err := svc.GetPharmacy(r.Context(), taxID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPharmacyView(pharmacy))
	}
}

// ListPharmacyContracts returns the contract history of one pharmacy.
func ListPharmacyContracts(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taxID := strings.TrimSpace(chi.URLParam(r, "taxId"))
		if taxID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tax id required"))
			return
		}

		records, err := svc.ListForPharmacy(r.Context(), taxID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]contractView, 0, len(records))
		for i := range records {
			views = append(views, toContractView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"contracts": views})
	}
}

// ActivePharmacyContract returns the contract in force for a pharmacy, if any.
func ActivePharmacyContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taxID := strings.TrimSpace(chi.URLParam(r, "taxId"))
		if taxID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tax id required"))
			return
		}

		at, err := validators.ParseQueryDate(r, "at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		effective := time.Now().UTC()
		if at != nil {
			effective = *at
		}

		contract, err := svc.ActiveContract(r.Context(), taxID, effective)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toContractView(contract))
	}
}
