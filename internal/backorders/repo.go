package backorders

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a backorders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func (r *repository) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := r.db.WithContext(ctx).
		Preload("Products").
		Order("id ASC").
		Find(&suppliers).Error
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) AddSupplierProduct(ctx context.Context, link *models.SupplierProduct) (*models.SupplierProduct, error) {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

// SelectSupplierFor picks the supplier whose validity window covers the
// moment, earliest window start first, lowest supplier id as tie-break.
func (r *repository) SelectSupplierFor(ctx context.Context, productID int64, at time.Time) (int64, error) {
	var link models.SupplierProduct
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("valid_from <= ? AND valid_to >= ?", at, at).
		Order("valid_from ASC, supplier_id ASC").
		First(&link).Error
	if err != nil {
		return 0, err
	}
	return link.SupplierID, nil
}

func (r *repository) CreateBackorder(ctx context.Context, backorder *models.Backorder) (*models.Backorder, error) {
	if err := r.db.WithContext(ctx).Create(backorder).Error; err != nil {
		return nil, err
	}
	return backorder, nil
}

func (r *repository) FindBackorderByID(ctx context.Context, id int64) (*models.Backorder, error) {
	var backorder models.Backorder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&backorder).Error
	if err != nil {
		return nil, err
	}
	return &backorder, nil
}

func (r *repository) FindOpenByWarehouse(ctx context.Context, warehouseID int64) (*models.Backorder, error) {
	var backorder models.Backorder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("warehouse_id = ? AND completed = ?", warehouseID, false).
		First(&backorder).Error
	if err != nil {
		return nil, err
	}
	return &backorder, nil
}

func (r *repository) ListBackorders(ctx context.Context, completed *bool) ([]models.Backorder, error) {
	q := r.db.WithContext(ctx).Preload("Lines").Order("id DESC")
	if completed != nil {
		q = q.Where("completed = ?", *completed)
	}
	var backorders []models.Backorder
	if err := q.Find(&backorders).Error; err != nil {
		return nil, err
	}
	return backorders, nil
}

// UpsertLine appends a line, topping up the quantity when the product is
// already on the backorder.
func (r *repository) UpsertLine(ctx context.Context, backorderID, productID, supplierID int64, quantity int) error {
	line := models.BackorderLine{
		BackorderID: backorderID,
		ProductID:   productID,
		SupplierID:  supplierID,
		Quantity:    quantity,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "backorder_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("backorder_lines.quantity + ?", quantity),
			}),
		}).
		Create(&line).Error
}

// MarkCompleted flips the flag only when it is still clear; the affected
// count tells the caller whether this call won the flip.
func (r *repository) MarkCompleted(ctx context.Context, id int64, dispatchDate time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Backorder{}).
		Where("id = ?", id).
		Where("completed = ?", false).
		Updates(map[string]any{
			"completed":     true,
			"dispatch_date": dispatchDate,
		})
	return res.RowsAffected, res.Error
}
