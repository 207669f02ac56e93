package contracts

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

// Repository defines persistence operations for pharmacies and contracts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePharmacy(ctx context.Context, pharmacy *models.Pharmacy) (*models.Pharmacy, error)
	FindPharmacy(ctx context.Context, taxID string) (*models.Pharmacy, error)
	CreateContract(ctx context.Context, contract *models.Contract) (*models.Contract, error)
	FindContractByID(ctx context.Context, id int64) (*models.Contract, error)
	FindActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error)
	ListContractsForPharmacy(ctx context.Context, taxID string) ([]models.Contract, error)
	MarkCancelled(ctx context.Context, id int64, at time.Time) (int64, error)
}
