package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
)

// OrderLinePayload carries the per-product quantities on order events.
type OrderLinePayload struct {
	ProductID    int64 `json:"product_id"`
	RequestedQty int   `json:"requested_qty"`
	ReservedQty  int   `json:"reserved_qty"`
	ShortfallQty int   `json:"shortfall_qty"`
}

// OrderPlacedEvent signals a newly placed order under an active contract.
type OrderPlacedEvent struct {
	OrderID       int64              `json:"order_id"`
	PharmacyTaxID string             `json:"pharmacy_tax_id"`
	ContractID    int64              `json:"contract_id"`
	Lines         []OrderLinePayload `json:"lines"`
	PlacedAt      time.Time          `json:"placed_at"`
}

// OrderProcessedEvent reports reservation results after processing.
type OrderProcessedEvent struct {
	OrderID       int64              `json:"order_id"`
	PharmacyTaxID string             `json:"pharmacy_tax_id"`
	Lines         []OrderLinePayload `json:"lines"`
	BackorderID   *int64             `json:"backorder_id,omitempty"`
	ProcessedAt   time.Time          `json:"processed_at"`
}

// OrderShippedEvent is emitted when the dispatch record is cut.
type OrderShippedEvent struct {
	OrderID       int64                      `json:"order_id"`
	PharmacyTaxID string                     `json:"pharmacy_tax_id"`
	ShipmentID    int64                      `json:"shipment_id"`
	Completeness  enums.ShipmentCompleteness `json:"completeness"`
	TotalCost     decimal.Decimal            `json:"total_cost"`
	ShippedAt     time.Time                  `json:"shipped_at"`
}

// OrderCancelledEvent is emitted whenever a pre-shipment order is cancelled.
type OrderCancelledEvent struct {
	OrderID       int64     `json:"order_id"`
	PharmacyTaxID string    `json:"pharmacy_tax_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
	Reason        string    `json:"reason,omitempty"`
}

// BackorderLinePayload is one product/supplier pairing on a backorder event.
type BackorderLinePayload struct {
	ProductID  int64 `json:"product_id"`
	SupplierID int64 `json:"supplier_id"`
	Quantity   int   `json:"quantity"`
}

// BackorderOpenedEvent reports a new or extended backorder at a warehouse.
type BackorderOpenedEvent struct {
	BackorderID int64                  `json:"backorder_id"`
	WarehouseID int64                  `json:"warehouse_id"`
	Lines       []BackorderLinePayload `json:"lines"`
	OpenedAt    time.Time              `json:"opened_at"`
}

// BackorderCompletedEvent is emitted once per backorder when supplier stock lands.
type BackorderCompletedEvent struct {
	BackorderID  int64                  `json:"backorder_id"`
	WarehouseID  int64                  `json:"warehouse_id"`
	Lines        []BackorderLinePayload `json:"lines"`
	DispatchDate time.Time              `json:"dispatch_date"`
}

// StockReplenishedEvent describes an inbound quantity landed at a position.
type StockReplenishedEvent struct {
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
	PositionID  int64 `json:"position_id"`
	Quantity    int   `json:"quantity"`
}

// ContractSignedEvent is emitted when a pharmacy signs a new contract.
type ContractSignedEvent struct {
	ContractID     int64           `json:"contract_id"`
	PharmacyTaxID  string          `json:"pharmacy_tax_id"`
	DurationMonths int             `json:"duration_months"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
}

// ContractCancelledEvent is emitted when a contract is terminated early.
type ContractCancelledEvent struct {
	ContractID    int64     `json:"contract_id"`
	PharmacyTaxID string    `json:"pharmacy_tax_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
}
