package contracts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:contracts_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Pharmacy{}, &models.Contract{}))
	return conn
}

func seedPharmacy(t *testing.T, db *gorm.DB, taxID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Pharmacy{
		TaxID:      taxID,
		Name:       "Central Pharmacy",
		Address:    "Ermou 12",
		City:       "Athens",
		PostalCode: "10563",
	}).Error)
}

func seedContract(t *testing.T, repo Repository, taxID string, start time.Time, months int) *models.Contract {
	t.Helper()
	rate, ok := DiscountRateFor(months)
	require.True(t, ok)
	contract, err := repo.CreateContract(context.Background(), &models.Contract{
		PharmacyTaxID:     taxID,
		StartDate:         start,
		EndDate:           AddMonths(start, months),
		DurationMonths:    months,
		PaymentMethod:     enums.PaymentMethodBankTransfer,
		DeliveryFrequency: enums.DeliveryWeekly,
		DiscountRate:      rate,
		SignedAt:          start,
	})
	require.NoError(t, err)
	return contract
}

func TestFindActiveContract(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	const taxID = "EL123456789"
	seedPharmacy(t, db, taxID)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	contract := seedContract(t, repo, taxID, start, 6)

	found, err := repo.FindActiveContract(ctx, taxID, start.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, contract.ID, found.ID)

	_, err = repo.FindActiveContract(ctx, taxID, start.AddDate(0, 7, 0))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindActiveContract(ctx, taxID, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindActiveContract(ctx, "EL999999999", start)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindActiveContract_SkipsCancelled(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	const taxID = "EL123456789"
	seedPharmacy(t, db, taxID)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	contract := seedContract(t, repo, taxID, start, 12)

	affected, err := repo.MarkCancelled(ctx, contract.ID, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	_, err = repo.FindActiveContract(ctx, taxID, start.AddDate(0, 2, 0))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkCancelled_Idempotent(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	const taxID = "EL123456789"
	seedPharmacy(t, db, taxID)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	contract := seedContract(t, repo, taxID, start, 3)

	affected, err := repo.MarkCancelled(ctx, contract.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.MarkCancelled(ctx, contract.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestListContractsForPharmacy(t *testing.T) {
	db := newRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	const taxID = "EL123456789"
	seedPharmacy(t, db, taxID)

	first := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	seedContract(t, repo, taxID, first, 12)
	latest := seedContract(t, repo, taxID, second, 6)

	contracts, err := repo.ListContractsForPharmacy(ctx, taxID)
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, latest.ID, contracts[0].ID)
}
