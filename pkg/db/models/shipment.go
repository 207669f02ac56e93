package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
)

// Shipment is the dispatch record produced when an order ships. The final cost
// is priced from shipped quantities net of the contract discount.
type Shipment struct {
	ID           int64                      `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID      int64                      `gorm:"column:order_id;not null;index"`
	Completeness enums.ShipmentCompleteness `gorm:"column:completeness;type:text;not null"`
	DiscountRate decimal.Decimal            `gorm:"column:discount_rate;type:numeric(5,4);not null"`
	TotalCost    decimal.Decimal            `gorm:"column:total_cost;type:numeric(12,2);not null"`
	ShippedAt    time.Time                  `gorm:"column:shipped_at;not null"`
	Lines        []ShipmentLine             `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// ShipmentLine is the shipped quantity of one product, priced at order time.
type ShipmentLine struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ShipmentID int64           `gorm:"column:shipment_id;not null;uniqueIndex:uq_shipment_product"`
	ProductID  int64           `gorm:"column:product_id;not null;uniqueIndex:uq_shipment_product"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
