package backorders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/metrics"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RegisterSupplierInput captures a supplier and the products it can deliver.
type RegisterSupplierInput struct {
	Name string
}

// SupplierProductInput opens a validity window for a supplier/product pairing.
type SupplierProductInput struct {
	SupplierID int64
	ProductID  int64
	ValidFrom  time.Time
	ValidTo    time.Time
}

// Service defines backorder engine operations.
type Service interface {
	RegisterSupplier(ctx context.Context, input RegisterSupplierInput) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	AddSupplierProduct(ctx context.Context, input SupplierProductInput) (*models.SupplierProduct, error)

	// OpenOrAppendTx runs inside the caller's transaction: it finds the
	// warehouse's open backorder or creates one, then adds the shortfall.
	OpenOrAppendTx(ctx context.Context, tx *gorm.DB, warehouseID, productID int64, quantity int) (*models.Backorder, error)

	GetBackorder(ctx context.Context, id int64) (*models.Backorder, error)
	ListBackorders(ctx context.Context, completed *bool) ([]models.Backorder, error)
	Complete(ctx context.Context, backorderID int64, dispatchDate time.Time) (*models.Backorder, error)
}

type service struct {
	repo    Repository
	ledger  *inventory.Ledger
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.ProcurementMetrics
	now     func() time.Time
}

// NewService builds the backorder engine with the required dependencies.
func NewService(repo Repository, ledger *inventory.Ledger, tx txRunner, outbox outboxPublisher, procMetrics *metrics.ProcurementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("backorders repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		ledger:  ledger,
		tx:      tx,
		outbox:  outbox,
		metrics: procMetrics,
		now:     time.Now,
	}, nil
}

func (s *service) RegisterSupplier(ctx context.Context, input RegisterSupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name required")
	}
	supplier, err := s.repo.CreateSupplier(ctx, &models.Supplier{Name: name})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier name already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return supplier, nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return suppliers, nil
}

func (s *service) AddSupplierProduct(ctx context.Context, input SupplierProductInput) (*models.SupplierProduct, error) {
	if input.SupplierID <= 0 || input.ProductID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier and product ids required")
	}
	if input.ValidFrom.IsZero() || input.ValidTo.IsZero() || input.ValidTo.Before(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid validity window")
	}
	link, err := s.repo.AddSupplierProduct(ctx, &models.SupplierProduct{
		SupplierID: input.SupplierID,
		ProductID:  input.ProductID,
		ValidFrom:  input.ValidFrom,
		ValidTo:    input.ValidTo,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_supplier_product") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier already linked to product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link supplier product")
	}
	return link, nil
}

func (s *service) OpenOrAppendTx(ctx context.Context, tx *gorm.DB, warehouseID, productID int64, quantity int) (*models.Backorder, error) {
	if warehouseID <= 0 || productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse and product ids required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backorder quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	now := s.now()

	supplierID, err := repo.SelectSupplierFor(ctx, productID, now)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no supplier currently offers this product").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select supplier")
	}

	backorder, err := repo.FindOpenByWarehouse(ctx, warehouseID)
	opened := false
	if err == gorm.ErrRecordNotFound {
		backorder, err = repo.CreateBackorder(ctx, &models.Backorder{
			WarehouseID: warehouseID,
			OpenedAt:    now,
		})
		opened = true
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open backorder")
	}

	if err := repo.UpsertLine(ctx, backorder.ID, productID, supplierID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append backorder line")
	}

	if opened {
		s.metrics.IncBackorderOpened()
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBackorderOpened,
			AggregateType: enums.AggregateBackorder,
			AggregateID:   strconv.FormatInt(backorder.ID, 10),
			Version:       1,
			Data: payloads.BackorderOpenedEvent{
				BackorderID: backorder.ID,
				WarehouseID: backorder.WarehouseID,
				Lines: []payloads.BackorderLinePayload{{
					ProductID:  productID,
					SupplierID: supplierID,
					Quantity:   quantity,
				}},
				OpenedAt: now,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return repo.FindBackorderByID(ctx, backorder.ID)
}

func (s *service) GetBackorder(ctx context.Context, id int64) (*models.Backorder, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backorder id required")
	}
	backorder, err := s.repo.FindBackorderByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "backorder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load backorder")
	}
	return backorder, nil
}

func (s *service) ListBackorders(ctx context.Context, completed *bool) ([]models.Backorder, error) {
	backorders, err := s.repo.ListBackorders(ctx, completed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list backorders")
	}
	return backorders, nil
}

// Complete replenishes every line into the owning warehouse and flips the
// completed flag, all inside one transaction. A second call observes the flag
// already set and fails without touching stock.
func (s *service) Complete(ctx context.Context, backorderID int64, dispatchDate time.Time) (*models.Backorder, error) {
	if backorderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backorder id required")
	}
	if dispatchDate.IsZero() {
		dispatchDate = s.now()
	}

	var completed *models.Backorder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		backorder, err := repo.FindBackorderByID(ctx, backorderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "backorder not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load backorder")
		}
		if backorder.Completed {
			return pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "backorder already completed")
		}

		affected, err := repo.MarkCompleted(ctx, backorderID, dispatchDate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete backorder")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "backorder already completed")
		}

		linePayloads := make([]payloads.BackorderLinePayload, 0, len(backorder.Lines))
		for _, line := range backorder.Lines {
			if _, err := ledger.Replenish(ctx, line.ProductID, backorder.WarehouseID, line.Quantity); err != nil {
				return err
			}
			linePayloads = append(linePayloads, payloads.BackorderLinePayload{
				ProductID:  line.ProductID,
				SupplierID: line.SupplierID,
				Quantity:   line.Quantity,
			})
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBackorderCompleted,
			AggregateType: enums.AggregateBackorder,
			AggregateID:   strconv.FormatInt(backorder.ID, 10),
			Version:       1,
			Data: payloads.BackorderCompletedEvent{
				BackorderID:  backorder.ID,
				WarehouseID:  backorder.WarehouseID,
				Lines:        linePayloads,
				DispatchDate: dispatchDate,
			},
		})
		if err != nil {
			return err
		}

		backorder.Completed = true
		backorder.DispatchDate = &dispatchDate
		completed = backorder
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncBackorderCompleted()
	return completed, nil
}
