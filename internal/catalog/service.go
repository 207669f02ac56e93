package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterMedicineInput carries the fields needed to add a medicine.
type RegisterMedicineInput struct {
	Name       string
	UnitPrice  decimal.Decimal
	Controlled bool
	Substances []string
}

// RegisterParapharmaceuticalInput carries the fields for non-medicine products.
type RegisterParapharmaceuticalInput struct {
	Name      string
	UnitPrice decimal.Decimal
}

// Service defines catalog-level operations.
type Service interface {
	RegisterMedicine(ctx context.Context, input RegisterMedicineInput) (*models.Product, error)
	RegisterParapharmaceutical(ctx context.Context, input RegisterParapharmaceuticalInput) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	Classify(ctx context.Context, id int64) (enums.ProductKind, error)
	IsControlledSubstance(ctx context.Context, id int64) (bool, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	ListSubstances(ctx context.Context) ([]models.ActiveSubstance, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the catalog service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) RegisterMedicine(ctx context.Context, input RegisterMedicineInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	if len(input.Substances) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a medicine requires at least one active substance")
	}

	var created *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		substances := make([]models.ActiveSubstance, 0, len(input.Substances))
		seen := map[string]bool{}
		for _, raw := range input.Substances {
			substanceName := strings.TrimSpace(raw)
			if substanceName == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "active substance name required")
			}
			if seen[substanceName] {
				continue
			}
			seen[substanceName] = true
			substance, err := repo.FindOrCreateSubstance(ctx, substanceName)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve active substance")
			}
			substances = append(substances, *substance)
		}

		product := &models.Product{
			Name:       name,
			Kind:       enums.ProductKindMedicine,
			UnitPrice:  input.UnitPrice,
			Controlled: input.Controlled,
			Substances: substances,
		}
		out, err := repo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "uq_products_name") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product name already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		created = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) RegisterParapharmaceutical(ctx context.Context, input RegisterParapharmaceuticalInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}

	var created *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product := &models.Product{
			Name:      name,
			Kind:      enums.ProductKindParapharmaceutical,
			UnitPrice: input.UnitPrice,
		}
		out, err := repo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "uq_products_name") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product name already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		created = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) Classify(ctx context.Context, id int64) (enums.ProductKind, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	return product.Kind, nil
}

// IsControlledSubstance reports whether the product is a medicine flagged as
// regulated. Parapharmaceuticals are never controlled.
func (s *service) IsControlledSubstance(ctx context.Context, id int64) (bool, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return false, err
	}
	return product.Kind == enums.ProductKindMedicine && product.Controlled, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	list, err := s.repo.ListProducts(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) ListSubstances(ctx context.Context) ([]models.ActiveSubstance, error) {
	substances, err := s.repo.ListSubstances(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list substances")
	}
	return substances, nil
}
