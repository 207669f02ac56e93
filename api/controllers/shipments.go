package controllers

import (
	"net/http"
	"time"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/shipments"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type shipmentLineView struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type shipmentView struct {
	ID           int64              `json:"id"`
	OrderID      int64              `json:"order_id"`
	Completeness string             `json:"completeness"`
	DiscountRate string             `json:"discount_rate"`
	TotalCost    string             `json:"total_cost"`
	ShippedAt    time.Time          `json:"shipped_at"`
	Lines        []shipmentLineView `json:"lines"`
}

func toShipmentView(s *models.Shipment) shipmentView {
	view := shipmentView{
		ID:           s.ID,
		OrderID:      s.OrderID,
		Completeness: string(s.Completeness),
		DiscountRate: s.DiscountRate.String(),
		TotalCost:    s.TotalCost.StringFixed(2),
		ShippedAt:    s.ShippedAt,
		Lines:        make([]shipmentLineView, 0, len(s.Lines)),
	}
	for _, line := range s.Lines {
		view.Lines = append(view.Lines, shipmentLineView{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}
	return view
}

// GetShipment returns one dispatch record.
func GetShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.GetShipment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toShipmentView(shipment))
	}
}

// ListOrderShipments returns every dispatch cut from one order.
func ListOrderShipments(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]shipmentView, 0, len(records))
		for i := range records {
			views = append(views, toShipmentView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"shipments": views})
	}
}
