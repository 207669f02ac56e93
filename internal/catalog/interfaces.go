package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

// ProductFilters narrows catalog listings.
type ProductFilters struct {
	Kind       *enums.ProductKind
	Controlled *bool
	Substance  string
}

// ProductList is a cursor page of catalog entries.
type ProductList struct {
	Products   []models.Product
	NextCursor string
}

// Repository defines persistence operations for catalog tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindProductByID(ctx context.Context, id int64) (*models.Product, error)
	FindProductByName(ctx context.Context, name string) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	FindOrCreateSubstance(ctx context.Context, name string) (*models.ActiveSubstance, error)
	ListSubstances(ctx context.Context) ([]models.ActiveSubstance, error)
}
