package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
)

// Contract binds a pharmacy to the distributor for a fixed duration.
// Orders may only be placed against a contract that is currently in force.
type Contract struct {
	ID                int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	PharmacyTaxID     string                  `gorm:"column:pharmacy_tax_id;not null;index"`
	StartDate         time.Time               `gorm:"column:start_date;not null"`
	EndDate           time.Time               `gorm:"column:end_date;not null"`
	DurationMonths    int                     `gorm:"column:duration_months;not null"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	DeliveryFrequency enums.DeliveryFrequency `gorm:"column:delivery_frequency;type:text;not null"`
	DiscountRate      decimal.Decimal         `gorm:"column:discount_rate;type:numeric(5,4);not null"`
	SignedAt          time.Time               `gorm:"column:signed_at;not null"`
	CancelledAt       *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
