package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pharmanet-gr/pharmanet-backend/api/middleware"
	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/orders"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type orderLineView struct {
	ProductID    int64  `json:"product_id"`
	RequestedQty int    `json:"requested_qty"`
	ReservedQty  int    `json:"reserved_qty"`
	ShippedQty   int    `json:"shipped_qty"`
	UnitPrice    string `json:"unit_price"`
}

type orderView struct {
	ID                    int64           `json:"id"`
	PharmacyTaxID         string          `json:"pharmacy_tax_id"`
	ContractID            int64           `json:"contract_id"`
	Status                string          `json:"status"`
	InitialCost           string          `json:"initial_cost"`
	DiscountRate          string          `json:"discount_rate"`
	EstimatedDeliveryDays int             `json:"estimated_delivery_days"`
	PlacedAt              time.Time       `json:"placed_at"`
	ProcessedAt           *time.Time      `json:"processed_at,omitempty"`
	ShippedAt             *time.Time      `json:"shipped_at,omitempty"`
	CancelledAt           *time.Time      `json:"cancelled_at,omitempty"`
	Lines                 []orderLineView `json:"lines"`
}

func toOrderView(o *models.Order) orderView {
	view := orderView{
		ID:                    o.ID,
		PharmacyTaxID:         o.PharmacyTaxID,
		ContractID:            o.ContractID,
		Status:                string(o.Status),
		InitialCost:           o.InitialCost.StringFixed(2),
		DiscountRate:          o.DiscountRate.String(),
		EstimatedDeliveryDays: o.EstimatedDeliveryDays,
		PlacedAt:              o.PlacedAt,
		ProcessedAt:           o.ProcessedAt,
		ShippedAt:             o.ShippedAt,
		CancelledAt:           o.CancelledAt,
		Lines:                 make([]orderLineView, 0, len(o.Lines)),
	}
	for _, line := range o.Lines {
		view.Lines = append(view.Lines, orderLineView{
			ProductID:    line.ProductID,
			RequestedQty: line.RequestedQty,
			ReservedQty:  line.ReservedQty,
			ShippedQty:   line.ShippedQty,
			UnitPrice:    line.UnitPrice.StringFixed(2),
		})
	}
	return view
}

type placeOrderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type placeOrderRequest struct {
	Lines []placeOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// PlaceOrder records a new order for the authenticated pharmacy.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taxID := middleware.PharmacyTaxIDFromContext(r.Context())
		if taxID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing"))
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceInput{PharmacyTaxID: taxID}
		for _, line := range payload.Lines {
			input.Lines = append(input.Lines, orders.LineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}

		order, err := svc.Place(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderView(order))
	}
}

// ProcessOrder reserves stock for an order and raises backorders for shortfall.
func ProcessOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Process(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderView(order))
	}
}

// ShipOrder cuts a shipment from the order's reserved quantities.
func ShipOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Ship(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toShipmentView(shipment))
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// CancelOrder voids an order and releases anything reserved for it.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := guardOrderAccess(r, order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), id, payload.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order_id": id, "cancelled": true})
	}
}

// GetOrder returns one order with its lines. Pharmacists only see their own.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := guardOrderAccess(r, order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderView(order))
	}
}

// guardOrderAccess hides other pharmacies' orders from pharmacy accounts.
func guardOrderAccess(r *http.Request, order *models.Order) error {
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	if role.IsStaff() {
		return nil
	}
	if order.PharmacyTaxID != middleware.PharmacyTaxIDFromContext(r.Context()) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

// OrderHistory pages through the authenticated pharmacy's orders.
func OrderHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taxID := middleware.PharmacyTaxIDFromContext(r.Context())
		if taxID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing"))
			return
		}

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := orders.OrderFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.History(r.Context(), taxID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeOrderPage(w, list)
	}
}

// OrderQueue pages through orders in one status for back-office processing.
func OrderQueue(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.OrderStatusPending
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err = enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
		}

		list, err := svc.Queue(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeOrderPage(w, list)
	}
}

// PendingShortfall reports the outstanding unreserved demand for a product.
func PendingShortfall(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shortfall, err := svc.PendingShortfallFor(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"shortfall":  shortfall,
		})
	}
}

func writeOrderPage(w http.ResponseWriter, list *orders.OrderList) {
	views := make([]orderView, 0, len(list.Orders))
	for i := range list.Orders {
		views = append(views, toOrderView(&list.Orders[i]))
	}
	responses.WriteSuccess(w, map[string]any{
		"orders":      views,
		"next_cursor": list.NextCursor,
	})
}
