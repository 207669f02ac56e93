package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Substances").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Substances").
		Where("name = ?", name).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Substances")
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.Controlled != nil {
		query = query.Where("controlled = ?", *filters.Controlled)
	}
	if filters.Substance != "" {
		query = query.
			Joins("JOIN product_substances ps ON ps.product_id = products.id").
			Joins("JOIN active_substances s ON s.id = ps.active_substance_id").
			Where("s.name = ?", filters.Substance)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(products.created_at, products.id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var products []models.Product
	if err := query.
		Order("products.created_at DESC").
		Order("products.id DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}

	list := &ProductList{Products: products}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(products) > pageSize {
		last := products[pageSize-1]
		list.Products = products[:pageSize]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) FindOrCreateSubstance(ctx context.Context, name string) (*models.ActiveSubstance, error) {
	var substance models.ActiveSubstance
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&substance).Error
	if err == nil {
		return &substance, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	substance = models.ActiveSubstance{Name: name}
	if err := r.db.WithContext(ctx).Create(&substance).Error; err != nil {
		return nil, err
	}
	return &substance, nil
}

func (r *repository) ListSubstances(ctx context.Context) ([]models.ActiveSubstance, error) {
	var substances []models.ActiveSubstance
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&substances).Error
	if err != nil {
		return nil, err
	}
	return substances, nil
}
