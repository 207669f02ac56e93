package models

import "time"

// Supplier is an upstream vendor the distributor sources backordered stock from.
type Supplier struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string            `gorm:"column:name;not null;uniqueIndex"`
	Products  []SupplierProduct `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// SupplierProduct records the window during which a supplier can deliver a product.
type SupplierProduct struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SupplierID int64     `gorm:"column:supplier_id;not null;uniqueIndex:uq_supplier_product"`
	ProductID  int64     `gorm:"column:product_id;not null;uniqueIndex:uq_supplier_product"`
	ValidFrom  time.Time `gorm:"column:valid_from;not null"`
	ValidTo    time.Time `gorm:"column:valid_to;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
