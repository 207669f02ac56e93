package contracts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RegisterPharmacyInput captures the fields needed to enroll a pharmacy.
type RegisterPharmacyInput struct {
	TaxID      string
	Name       string
	Address    string
	City       string
	PostalCode string
	Phone      *string
	Email      *string
}

// SignInput captures the fields needed to sign a new contract.
type SignInput struct {
	PharmacyTaxID     string
	StartDate         time.Time
	DurationMonths    int
	PaymentMethod     enums.PaymentMethod
	DeliveryFrequency enums.DeliveryFrequency
}

// Service defines contract registry operations.
type Service interface {
	RegisterPharmacy(ctx context.Context, input RegisterPharmacyInput) (*models.Pharmacy, error)
	GetPharmacy(ctx context.Context, taxID string) (*models.Pharmacy, error)
	Sign(ctx context.Context, input SignInput) (*models.Contract, error)
	Cancel(ctx context.Context, contractID int64) error
	ActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error)
	GetContract(ctx context.Context, contractID int64) (*models.Contract, error)
	ListForPharmacy(ctx context.Context, taxID string) ([]models.Contract, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the contract registry service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		now:    time.Now,
	}, nil
}

func (s *service) RegisterPharmacy(ctx context.Context, input RegisterPharmacyInput) (*models.Pharmacy, error) {
	taxID := strings.TrimSpace(input.TaxID)
	if taxID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy name required")
	}

	pharmacy := &models.Pharmacy{
		TaxID:      taxID,
		Name:       strings.TrimSpace(input.Name),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Phone:      input.Phone,
		Email:      input.Email,
	}

	out, err := s.repo.CreatePharmacy(ctx, pharmacy)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "pharmacy already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pharmacy")
	}
	return out, nil
}

func (s *service) GetPharmacy(ctx context.Context, taxID string) (*models.Pharmacy, error) {
	if strings.TrimSpace(taxID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	pharmacy, err := s.repo.FindPharmacy(ctx, taxID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pharmacy not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pharmacy")
	}
	return pharmacy, nil
}

func (s *service) Sign(ctx context.Context, input SignInput) (*models.Contract, error) {
	taxID := strings.TrimSpace(input.PharmacyTaxID)
	if taxID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract start date required")
	}
	rate, ok := DiscountRateFor(input.DurationMonths)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported contract duration").
			WithDetails(map[string]any{"allowed_months": AllowedDurations()})
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.DeliveryFrequency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery frequency")
	}

	endDate := AddMonths(input.StartDate, input.DurationMonths)

	var created *models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindPharmacy(ctx, taxID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "pharmacy not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pharmacy")
		}

		if existing, err := repo.FindActiveContract(ctx, taxID, input.StartDate); err == nil && existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active contract already covers this period").
				WithDetails(map[string]any{"contract_id": existing.ID})
		} else if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active contract")
		}

		contract := &models.Contract{
			PharmacyTaxID:     taxID,
			StartDate:         input.StartDate,
			EndDate:           endDate,
			DurationMonths:    input.DurationMonths,
			PaymentMethod:     input.PaymentMethod,
			DeliveryFrequency: input.DeliveryFrequency,
			DiscountRate:      rate,
			SignedAt:          s.now(),
		}
		out, err := repo.CreateContract(ctx, contract)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
		}
		created = out

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContractSigned,
			AggregateType: enums.AggregateContract,
			AggregateID:   strconv.FormatInt(out.ID, 10),
			Version:       1,
			Data: payloads.ContractSignedEvent{
				ContractID:     out.ID,
				PharmacyTaxID:  out.PharmacyTaxID,
				DurationMonths: out.DurationMonths,
				DiscountRate:   out.DiscountRate,
				StartDate:      out.StartDate,
				EndDate:        out.EndDate,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Cancel(ctx context.Context, contractID int64) error {
	if contractID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		contract, err := repo.FindContractByID(ctx, contractID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
		}
		if contract.CancelledAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "contract already cancelled")
		}

		cancelledAt := s.now()
		affected, err := repo.MarkCancelled(ctx, contractID, cancelledAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel contract")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "contract already cancelled")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContractCancelled,
			AggregateType: enums.AggregateContract,
			AggregateID:   strconv.FormatInt(contract.ID, 10),
			Version:       1,
			Data: payloads.ContractCancelledEvent{
				ContractID:    contract.ID,
				PharmacyTaxID: contract.PharmacyTaxID,
				CancelledAt:   cancelledAt,
			},
		})
	})
}

func (s *service) ActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error) {
	if strings.TrimSpace(taxID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	contract, err := s.repo.FindActiveContract(ctx, taxID, at)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeContractRequired, "no active contract for pharmacy").
				WithDetails(map[string]any{"pharmacy_tax_id": taxID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active contract")
	}
	return contract, nil
}

func (s *service) GetContract(ctx context.Context, contractID int64) (*models.Contract, error) {
	if contractID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	contract, err := s.repo.FindContractByID(ctx, contractID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	return contract, nil
}

func (s *service) ListForPharmacy(ctx context.Context, taxID string) ([]models.Contract, error) {
	if strings.TrimSpace(taxID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	contracts, err := s.repo.ListContractsForPharmacy(ctx, taxID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	return contracts, nil
}
