package models

import "time"

// Backorder accumulates supplier restock requests for one warehouse. At most
// one incomplete backorder exists per warehouse; completion replenishes every
// line and flips the flag exactly once.
type Backorder struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	WarehouseID  int64           `gorm:"column:warehouse_id;not null;index"`
	Completed    bool            `gorm:"column:completed;not null;default:false"`
	OpenedAt     time.Time       `gorm:"column:opened_at;not null"`
	DispatchDate *time.Time      `gorm:"column:dispatch_date"`
	Lines        []BackorderLine `gorm:"foreignKey:BackorderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BackorderLine is the outstanding quantity of one product requested from a
// supplier. Appending the same product to an open backorder tops up the
// quantity instead of adding a second row.
type BackorderLine struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BackorderID int64     `gorm:"column:backorder_id;not null;uniqueIndex:uq_backorder_product"`
	ProductID   int64     `gorm:"column:product_id;not null;uniqueIndex:uq_backorder_product"`
	SupplierID  int64     `gorm:"column:supplier_id;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
