package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
)

type stubRepo struct {
	createPharmacyFn     func(ctx context.Context, pharmacy *models.Pharmacy) (*models.Pharmacy, error)
	findPharmacyFn       func(ctx context.Context, taxID string) (*models.Pharmacy, error)
	createContractFn     func(ctx context.Context, contract *models.Contract) (*models.Contract, error)
	findContractByIDFn   func(ctx context.Context, id int64) (*models.Contract, error)
	findActiveContractFn func(ctx context.Context, taxID string, at time.Time) (*models.Contract, error)
	listContractsFn      func(ctx context.Context, taxID string) ([]models.Contract, error)
	markCancelledFn      func(ctx context.Context, id int64, at time.Time) (int64, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreatePharmacy(ctx context.Context, pharmacy *models.Pharmacy) (*models.Pharmacy, error) {
	return s.createPharmacyFn(ctx, pharmacy)
}

func (s *stubRepo) FindPharmacy(ctx context.Context, taxID string) (*models.Pharmacy, error) {
	if s.findPharmacyFn == nil {
		return &models.Pharmacy{TaxID: taxID}, nil
	}
	return s.findPharmacyFn(ctx, taxID)
}

func (s *stubRepo) CreateContract(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
	return s.createContractFn(ctx, contract)
}

func (s *stubRepo) FindContractByID(ctx context.Context, id int64) (*models.Contract, error) {
	return s.findContractByIDFn(ctx, id)
}

func (s *stubRepo) FindActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error) {
	if s.findActiveContractFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findActiveContractFn(ctx, taxID, at)
}

func (s *stubRepo) ListContractsForPharmacy(ctx context.Context, taxID string) ([]models.Contract, error) {
	return s.listContractsFn(ctx, taxID)
}

func (s *stubRepo) MarkCancelled(ctx context.Context, id int64, at time.Time) (int64, error) {
	return s.markCancelledFn(ctx, id, at)
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository) (Service, *stubOutbox) {
	t.Helper()
	ob := &stubOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, ob)
	require.NoError(t, err)
	return svc, ob
}

func TestSign_Success(t *testing.T) {
	repo := &stubRepo{
		createContractFn: func(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
			out := *contract
			out.ID = 42
			return &out, nil
		},
	}
	svc, ob := newTestService(t, repo)

	start := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	contract, err := svc.Sign(context.Background(), SignInput{
		PharmacyTaxID:     "EL123456789",
		StartDate:         start,
		DurationMonths:    6,
		PaymentMethod:     enums.PaymentMethodBankTransfer,
		DeliveryFrequency: enums.DeliveryWeekly,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), contract.ID)
	assert.Equal(t, time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC), contract.EndDate)
	assert.True(t, contract.DiscountRate.Equal(decimal.NewFromFloat(0.10)), "got %s", contract.DiscountRate)

	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventContractSigned, ob.events[0].EventType)
	assert.Equal(t, "42", ob.events[0].AggregateID)
}

func TestSign_UnsupportedDuration(t *testing.T) {
	svc, ob := newTestService(t, &stubRepo{})

	_, err := svc.Sign(context.Background(), SignInput{
		PharmacyTaxID:     "EL123456789",
		StartDate:         time.Now(),
		DurationMonths:    4,
		PaymentMethod:     enums.PaymentMethodBankTransfer,
		DeliveryFrequency: enums.DeliveryWeekly,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, ob.events)
}

func TestSign_OverlappingActiveContract(t *testing.T) {
	repo := &stubRepo{
		findActiveContractFn: func(ctx context.Context, taxID string, at time.Time) (*models.Contract, error) {
			return &models.Contract{ID: 7, PharmacyTaxID: taxID}, nil
		},
	}
	svc, ob := newTestService(t, repo)

	_, err := svc.Sign(context.Background(), SignInput{
		PharmacyTaxID:     "EL123456789",
		StartDate:         time.Now(),
		DurationMonths:    3,
		PaymentMethod:     enums.PaymentMethodCard,
		DeliveryFrequency: enums.DeliveryBiweekly,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Empty(t, ob.events)
}

func TestSign_UnknownPharmacy(t *testing.T) {
	repo := &stubRepo{
		findPharmacyFn: func(ctx context.Context, taxID string) (*models.Pharmacy, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Sign(context.Background(), SignInput{
		PharmacyTaxID:     "EL000000000",
		StartDate:         time.Now(),
		DurationMonths:    1,
		PaymentMethod:     enums.PaymentMethodCard,
		DeliveryFrequency: enums.DeliveryMonthly,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCancel_Success(t *testing.T) {
	repo := &stubRepo{
		findContractByIDFn: func(ctx context.Context, id int64) (*models.Contract, error) {
			return &models.Contract{ID: id, PharmacyTaxID: "EL123456789"}, nil
		},
		markCancelledFn: func(ctx context.Context, id int64, at time.Time) (int64, error) {
			return 1, nil
		},
	}
	svc, ob := newTestService(t, repo)

	require.NoError(t, svc.Cancel(context.Background(), 9))
	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventContractCancelled, ob.events[0].EventType)
	assert.Equal(t, "9", ob.events[0].AggregateID)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	cancelledAt := time.Now().Add(-time.Hour)
	repo := &stubRepo{
		findContractByIDFn: func(ctx context.Context, id int64) (*models.Contract, error) {
			return &models.Contract{ID: id, CancelledAt: &cancelledAt}, nil
		},
	}
	svc, ob := newTestService(t, repo)

	err := svc.Cancel(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, ob.events)
}

func TestCancel_RaceLosesGuardedUpdate(t *testing.T) {
	repo := &stubRepo{
		findContractByIDFn: func(ctx context.Context, id int64) (*models.Contract, error) {
			return &models.Contract{ID: id}, nil
		},
		markCancelledFn: func(ctx context.Context, id int64, at time.Time) (int64, error) {
			return 0, nil
		},
	}
	svc, _ := newTestService(t, repo)

	err := svc.Cancel(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestActiveContract_NoneFound(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	_, err := svc.ActiveContract(context.Background(), "EL123456789", time.Now())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeContractRequired))
}

func TestActiveContract_Found(t *testing.T) {
	repo := &stubRepo{
		findActiveContractFn: func(ctx context.Context, taxID string, at time.Time) (*models.Contract, error) {
			return &models.Contract{ID: 3, PharmacyTaxID: taxID}, nil
		},
	}
	svc, _ := newTestService(t, repo)

	contract, err := svc.ActiveContract(context.Background(), "EL123456789", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), contract.ID)
}

func TestRegisterPharmacy_Validation(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	_, err := svc.RegisterPharmacy(context.Background(), RegisterPharmacyInput{Name: "Central Pharmacy"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.RegisterPharmacy(context.Background(), RegisterPharmacyInput{TaxID: "EL123456789"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
