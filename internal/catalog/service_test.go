package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newCatalog(t *testing.T) Service {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.ActiveSubstance{}, &models.Product{}))

	svc, err := NewService(NewRepository(conn), gormTxRunner{db: conn})
	require.NoError(t, err)
	return svc
}

func TestRegisterMedicine(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	product, err := svc.RegisterMedicine(ctx, RegisterMedicineInput{
		Name:       "Depon 500mg",
		UnitPrice:  decimal.NewFromFloat(1.90),
		Controlled: false,
		Substances: []string{"paracetamol", "paracetamol", " paracetamol "},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductKindMedicine, product.Kind)
	require.Len(t, product.Substances, 1, "duplicate substances collapse")

	kind, err := svc.Classify(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductKindMedicine, kind)

	controlled, err := svc.IsControlledSubstance(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, controlled)
}

func TestRegisterMedicine_RequiresSubstance(t *testing.T) {
	svc := newCatalog(t)

	_, err := svc.RegisterMedicine(context.Background(), RegisterMedicineInput{
		Name:      "Lonarid",
		UnitPrice: decimal.NewFromFloat(2.40),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRegisterControlledMedicine(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	product, err := svc.RegisterMedicine(ctx, RegisterMedicineInput{
		Name:       "Morphine Sulfate 10mg",
		UnitPrice:  decimal.NewFromFloat(14.00),
		Controlled: true,
		Substances: []string{"morphine"},
	})
	require.NoError(t, err)

	controlled, err := svc.IsControlledSubstance(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, controlled)
}

func TestRegisterParapharmaceutical(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	product, err := svc.RegisterParapharmaceutical(ctx, RegisterParapharmaceuticalInput{
		Name:      "Sunscreen SPF50",
		UnitPrice: decimal.NewFromFloat(11.30),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductKindParapharmaceutical, product.Kind)

	controlled, err := svc.IsControlledSubstance(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, controlled)
}

func TestRegisterProduct_DuplicateName(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	_, err := svc.RegisterParapharmaceutical(ctx, RegisterParapharmaceuticalInput{
		Name:      "Vitamin D3 2000IU",
		UnitPrice: decimal.NewFromFloat(6.80),
	})
	require.NoError(t, err)

	_, err = svc.RegisterParapharmaceutical(ctx, RegisterParapharmaceuticalInput{
		Name:      "Vitamin D3 2000IU",
		UnitPrice: decimal.NewFromFloat(7.10),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestListProducts_Filters(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	_, err := svc.RegisterMedicine(ctx, RegisterMedicineInput{
		Name:       "Augmentin 625mg",
		UnitPrice:  decimal.NewFromFloat(8.90),
		Substances: []string{"amoxicillin", "clavulanic acid"},
	})
	require.NoError(t, err)
	_, err = svc.RegisterParapharmaceutical(ctx, RegisterParapharmaceuticalInput{
		Name:      "Hand Cream",
		UnitPrice: decimal.NewFromFloat(4.50),
	})
	require.NoError(t, err)

	medicine := enums.ProductKindMedicine
	list, err := svc.ListProducts(ctx, pagination.Params{}, ProductFilters{Kind: &medicine})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Augmentin 625mg", list.Products[0].Name)

	bySubstance, err := svc.ListProducts(ctx, pagination.Params{}, ProductFilters{Substance: "amoxicillin"})
	require.NoError(t, err)
	require.Len(t, bySubstance.Products, 1)

	substances, err := svc.ListSubstances(ctx)
	require.NoError(t, err)
	assert.Len(t, substances, 2)
}
