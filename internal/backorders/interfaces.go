package backorders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

// Repository defines persistence operations for backorders and suppliers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSupplier(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	AddSupplierProduct(ctx context.Context, link *models.SupplierProduct) (*models.SupplierProduct, error)
	SelectSupplierFor(ctx context.Context, productID int64, at time.Time) (int64, error)

	CreateBackorder(ctx context.Context, backorder *models.Backorder) (*models.Backorder, error)
	FindBackorderByID(ctx context.Context, id int64) (*models.Backorder, error)
	FindOpenByWarehouse(ctx context.Context, warehouseID int64) (*models.Backorder, error)
	ListBackorders(ctx context.Context, completed *bool) ([]models.Backorder, error)
	UpsertLine(ctx context.Context, backorderID, productID, supplierID int64, quantity int) error
	MarkCompleted(ctx context.Context, id int64, dispatchDate time.Time) (int64, error)
}
