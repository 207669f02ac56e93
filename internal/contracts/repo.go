package contracts

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a contracts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePharmacy(ctx context.Context, pharmacy *models.Pharmacy) (*models.Pharmacy, error) {
	if err := r.db.WithContext(ctx).Create(pharmacy).Error; err != nil {
		return nil, err
	}
	return pharmacy, nil
}

func (r *repository) FindPharmacy(ctx context.Context, taxID string) (*models.Pharmacy, error) {
	var pharmacy models.Pharmacy
	err := r.db.WithContext(ctx).
		Where("tax_id = ?", taxID).
		First(&pharmacy).Error
	if err != nil {
		return nil, err
	}
	return &pharmacy, nil
}

func (r *repository) CreateContract(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
	if err := r.db.WithContext(ctx).Create(contract).Error; err != nil {
		return nil, err
	}
	return contract, nil
}

func (r *repository) FindContractByID(ctx context.Context, id int64) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) FindActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Where("pharmacy_tax_id = ?", taxID).
		Where("cancelled_at IS NULL").
		Where("start_date <= ? AND end_date >= ?", at, at).
		Order("end_date DESC").
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) ListContractsForPharmacy(ctx context.Context, taxID string) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("pharmacy_tax_id = ?", taxID).
		Order("start_date DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// MarkCancelled stamps cancelled_at only when the contract is still open; the
// returned count tells the caller whether the guard matched.
func (r *repository) MarkCancelled(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ?", id).
		Where("cancelled_at IS NULL").
		Updates(map[string]any{"cancelled_at": at})
	return res.RowsAffected, res.Error
}
