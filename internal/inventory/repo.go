package inventory

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) (*models.Warehouse, error) {
	if err := r.db.WithContext(ctx).Create(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func (r *repository) FindWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := r.db.WithContext(ctx).
		Preload("Positions").
		Where("id = ?", id).
		First(&warehouse).Error
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&warehouses).Error
	if err != nil {
		return nil, err
	}
	return warehouses, nil
}

func (r *repository) CreatePosition(ctx context.Context, position *models.StoragePosition) (*models.StoragePosition, error) {
	if err := r.db.WithContext(ctx).Create(position).Error; err != nil {
		return nil, err
	}
	return position, nil
}

// NextPositionSlot returns an unused (aisle, shelf) slot by opening a fresh
// aisle past the highest one in use.
func (r *repository) NextPositionSlot(ctx context.Context, warehouseID int64) (int, int, error) {
	var maxAisle int
	err := r.db.WithContext(ctx).
		Model(&models.StoragePosition{}).
		Where("warehouse_id = ?", warehouseID).
		Select("COALESCE(MAX(aisle), 0)").
		Scan(&maxAisle).Error
	if err != nil {
		return 0, 0, err
	}
	return maxAisle + 1, 1, nil
}

func (r *repository) TotalStock(ctx context.Context, productID int64) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// PositionsWithStock returns the product's stocked positions ordered highest
// quantity first, position id as the deterministic tie-break.
func (r *repository) PositionsWithStock(ctx context.Context, productID int64) ([]PositionStock, error) {
	var rows []PositionStock
	err := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Select("stock_records.position_id, storage_positions.warehouse_id, storage_positions.aisle, storage_positions.shelf, stock_records.quantity").
		Joins("JOIN storage_positions ON storage_positions.id = stock_records.position_id").
		Where("stock_records.product_id = ? AND stock_records.quantity > 0", productID).
		Order("stock_records.quantity DESC, stock_records.position_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) BestStockedPosition(ctx context.Context, productID, warehouseID int64) (*PositionStock, error) {
	var row PositionStock
	err := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Select("stock_records.position_id, storage_positions.warehouse_id, storage_positions.aisle, storage_positions.shelf, stock_records.quantity").
		Joins("JOIN storage_positions ON storage_positions.id = stock_records.position_id").
		Where("stock_records.product_id = ? AND storage_positions.warehouse_id = ?", productID, warehouseID).
		Order("stock_records.quantity DESC, stock_records.position_id ASC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.PositionID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// FreePosition returns the first position in the warehouse holding no stock of
// any product, walking aisles and shelves in order.
func (r *repository) FreePosition(ctx context.Context, warehouseID int64) (*models.StoragePosition, error) {
	var position models.StoragePosition
	err := r.db.WithContext(ctx).
		Model(&models.StoragePosition{}).
		Joins("LEFT JOIN stock_records ON stock_records.position_id = storage_positions.id AND stock_records.quantity > 0").
		Where("storage_positions.warehouse_id = ? AND stock_records.position_id IS NULL", warehouseID).
		Order("storage_positions.aisle ASC, storage_positions.shelf ASC").
		First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *repository) FindPositionWarehouse(ctx context.Context, positionID int64) (int64, error) {
	var position models.StoragePosition
	err := r.db.WithContext(ctx).
		Where("id = ?", positionID).
		First(&position).Error
	if err != nil {
		return 0, err
	}
	return position.WarehouseID, nil
}

func (r *repository) PositionQuantity(ctx context.Context, productID, positionID int64) (int, error) {
	var quantity int
	err := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ? AND position_id = ?", productID, positionID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&quantity).Error
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// DecrementStock subtracts quantity only when the row still holds at least
// that much; callers inspect the affected count to detect a lost race.
func (r *repository) DecrementStock(ctx context.Context, productID, positionID int64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ? AND position_id = ? AND quantity >= ?", productID, positionID, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	return res.RowsAffected, res.Error
}

func (r *repository) IncrementStock(ctx context.Context, productID, positionID int64, quantity int) error {
	record := models.StockRecord{
		ProductID:  productID,
		PositionID: positionID,
		Quantity:   quantity,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "position_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("stock_records.quantity + ?", quantity),
			}),
		}).
		Create(&record).Error
}
