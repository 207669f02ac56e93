package inventory

import (
	"context"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

// ReservationResult reports how much of a requested quantity the ledger could
// satisfy. Fulfilled plus Shortfall always equals Requested.
type ReservationResult struct {
	Requested int
	Fulfilled int
	Shortfall int
}

// PositionStock pairs a storage position with the on-hand quantity of one
// product at that position.
type PositionStock struct {
	PositionID  int64
	WarehouseID int64
	Aisle       int
	Shelf       int
	Quantity    int
}

// Repository defines persistence operations for warehouses, positions and
// stock records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) (*models.Warehouse, error)
	FindWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	CreatePosition(ctx context.Context, position *models.StoragePosition) (*models.StoragePosition, error)
	NextPositionSlot(ctx context.Context, warehouseID int64) (aisle int, shelf int, err error)

	TotalStock(ctx context.Context, productID int64) (int, error)
	PositionsWithStock(ctx context.Context, productID int64) ([]PositionStock, error)
	BestStockedPosition(ctx context.Context, productID, warehouseID int64) (*PositionStock, error)
	FreePosition(ctx context.Context, warehouseID int64) (*models.StoragePosition, error)
	FindPositionWarehouse(ctx context.Context, positionID int64) (int64, error)
	PositionQuantity(ctx context.Context, productID, positionID int64) (int, error)

	DecrementStock(ctx context.Context, productID, positionID int64, quantity int) (int64, error)
	IncrementStock(ctx context.Context, productID, positionID int64, quantity int) error
}
