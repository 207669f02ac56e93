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

type backorderLineView struct {
	ProductID  int64 `json:"product_id"`
	SupplierID int64 `json:"supplier_id"`
	Quantity   int   `json:"quantity"`
}

type backorderView struct {
	ID           int64               `json:"id"`
	WarehouseID  int64               `json:"warehouse_id"`
	Completed    bool                `json:"completed"`
	OpenedAt     time.Time           `json:"opened_at"`
	DispatchDate *string             `json:"dispatch_date,omitempty"`
	Lines        []backorderLineView `json:"lines"`
}

func toBackorderView(b *models.Backorder) backorderView {
	view := backorderView{
		ID:          b.ID,
		WarehouseID: b.WarehouseID,
		Completed:   b.Completed,
		OpenedAt:    b.OpenedAt,
		Lines:       make([]backorderLineView, 0, len(b.Lines)),
	}
	if b.DispatchDate != nil {
		formatted := b.DispatchDate.Format("2006-01-02")
		view.DispatchDate = &formatted
	}
	for _, line := range b.Lines {
		view.Lines = append(view.Lines, backorderLineView{
			ProductID:  line.ProductID,
			SupplierID: line.SupplierID,
			Quantity:   line.Quantity,
		})
	}
	return view
}

// ListBackorders returns supplier restock requests, optionally by state.
func ListBackorders(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		completed, err := validators.ParseQueryBool(r, "completed")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListBackorders(r.Context(), completed)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]backorderView, 0, len(records))
		for i := range records {
			views = append(views, toBackorderView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"backorders": views})
	}
}

// GetBackorder returns one backorder with its lines.
func GetBackorder(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "backorderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		backorder, err := svc.GetBackorder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBackorderView(backorder))
	}
}

type completeBackorderRequest struct {
	DispatchDate string `json:"dispatch_date" validate:"required"`
}

// CompleteBackorder marks a supplier delivery received and restocks every line.
func CompleteBackorder(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "backorderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeBackorderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispatchDate, err := time.Parse("2006-01-02", strings.TrimSpace(payload.DispatchDate))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispatch date"))
			return
		}

		backorder, err := svc.Complete(r.Context(), id, dispatchDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBackorderView(backorder))
	}
}
