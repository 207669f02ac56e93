package models

import "time"

// Warehouse is a physical distribution site holding storage positions.
type Warehouse struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string            `gorm:"column:name;not null;uniqueIndex"`
	Location  string            `gorm:"column:location;not null"`
	Positions []StoragePosition `gorm:"foreignKey:WarehouseID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// StoragePosition addresses a single shelf slot inside a warehouse.
type StoragePosition struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	WarehouseID int64     `gorm:"column:warehouse_id;not null;uniqueIndex:uq_position_slot"`
	Aisle       int       `gorm:"column:aisle;not null;uniqueIndex:uq_position_slot"`
	Shelf       int       `gorm:"column:shelf;not null;uniqueIndex:uq_position_slot"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// StockRecord tracks the on-hand quantity of one product at one position.
type StockRecord struct {
	ProductID  int64     `gorm:"column:product_id;primaryKey"`
	PositionID int64     `gorm:"column:position_id;primaryKey"`
	Quantity   int       `gorm:"column:quantity;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
