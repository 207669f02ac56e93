package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/contracts"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type signContractRequest struct {
	PharmacyTaxID     string `json:"pharmacy_tax_id" validate:"required"`
	StartDate         string `json:"start_date" validate:"required"`
	DurationMonths    int    `json:"duration_months" validate:"required,min=1"`
	PaymentMethod     string `json:"payment_method" validate:"required"`
	DeliveryFrequency string `json:"delivery_frequency" validate:"required"`
}

// SignContract signs a new delivery contract for a pharmacy.
func SignContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload signContractRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		startDate, err := time.Parse("2006-01-02", strings.TrimSpace(payload.StartDate))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start date"))
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		frequency, err := enums.ParseDeliveryFrequency(strings.TrimSpace(payload.DeliveryFrequency))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery frequency"))
			return
		}

		contract, err := svc.Sign(r.Context(), contracts.SignInput{
			PharmacyTaxID:     payload.PharmacyTaxID,
			StartDate:         startDate,
			DurationMonths:    payload.DurationMonths,
			PaymentMethod:     method,
			DeliveryFrequency: frequency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toContractView(contract))
	}
}

// GetContract returns one contract by id.
func GetContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.GetContract(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toContractView(contract))
	}
}

// CancelContract voids a contract so it no longer satisfies order placement.
func CancelContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"contract_id": id, "cancelled": true})
	}
}
