package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
)

// ActiveSubstance is a pharmacologically active ingredient shared across medicines.
type ActiveSubstance struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Product is a catalog entry. Medicines carry active substances and may be
// controlled; parapharmaceuticals carry neither.
type Product struct {
	ID         int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string            `gorm:"column:name;not null;uniqueIndex"`
	Kind       enums.ProductKind `gorm:"column:kind;type:text;not null"`
	UnitPrice  decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Controlled bool              `gorm:"column:controlled;not null;default:false"`
	Substances []ActiveSubstance `gorm:"many2many:product_substances"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
