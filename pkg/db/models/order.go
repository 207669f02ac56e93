package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
)

// Order is a pharmacy procurement order placed under an active contract.
type Order struct {
	ID                    int64             `gorm:"column:id;primaryKey;autoIncrement"`
	PharmacyTaxID         string            `gorm:"column:pharmacy_tax_id;not null;index"`
	ContractID            int64             `gorm:"column:contract_id;not null"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	InitialCost           decimal.Decimal   `gorm:"column:initial_cost;type:numeric(12,2);not null"`
	DiscountRate          decimal.Decimal   `gorm:"column:discount_rate;type:numeric(5,4);not null"`
	EstimatedDeliveryDays int               `gorm:"column:estimated_delivery_days;not null;default:0"`
	PlacedAt              time.Time         `gorm:"column:placed_at;not null"`
	ProcessedAt           *time.Time        `gorm:"column:processed_at"`
	ShippedAt             *time.Time        `gorm:"column:shipped_at"`
	CancelledAt           *time.Time        `gorm:"column:cancelled_at"`
	Lines                 []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine tracks one product on an order through its requested, reserved and
// shipped quantities.
type OrderLine struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID      int64           `gorm:"column:order_id;not null;uniqueIndex:uq_order_product"`
	ProductID    int64           `gorm:"column:product_id;not null;uniqueIndex:uq_order_product"`
	RequestedQty int             `gorm:"column:requested_qty;not null"`
	ReservedQty  int             `gorm:"column:reserved_qty;not null;default:0"`
	ShippedQty   int             `gorm:"column:shipped_qty;not null;default:0"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
