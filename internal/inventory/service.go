package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

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

// RegisterWarehouseInput captures the fields needed to open a warehouse with
// an initial grid of storage positions.
type RegisterWarehouseInput struct {
	Name     string
	Location string
	Aisles   int
	Shelves  int
}

// ReplenishInput lands inbound stock at an explicit position.
type ReplenishInput struct {
	ProductID  int64
	PositionID int64
	Quantity   int
}

// Service defines the warehouse-facing inventory operations.
type Service interface {
	RegisterWarehouse(ctx context.Context, input RegisterWarehouseInput) (*models.Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	TotalStock(ctx context.Context, productID int64) (int, error)
	StockByPosition(ctx context.Context, productID int64) ([]PositionStock, error)
	Replenish(ctx context.Context, input ReplenishInput) error
}

type service struct {
	repo   Repository
	ledger *Ledger
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the inventory service with the required dependencies.
func NewService(repo Repository, ledger *Ledger, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
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
	return &service{repo: repo, ledger: ledger, tx: tx, outbox: outbox}, nil
}

func (s *service) RegisterWarehouse(ctx context.Context, input RegisterWarehouseInput) (*models.Warehouse, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse name required")
	}
	if input.Aisles < 0 || input.Shelves < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "aisles and shelves cannot be negative")
	}

	var created *models.Warehouse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		warehouse, err := repo.CreateWarehouse(ctx, &models.Warehouse{
			Name:     strings.TrimSpace(input.Name),
			Location: strings.TrimSpace(input.Location),
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "warehouse name already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warehouse")
		}

		for aisle := 1; aisle <= input.Aisles; aisle++ {
			for shelf := 1; shelf <= input.Shelves; shelf++ {
				if _, err := repo.CreatePosition(ctx, &models.StoragePosition{
					WarehouseID: warehouse.ID,
					Aisle:       aisle,
					Shelf:       shelf,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create storage position")
				}
			}
		}
		created = warehouse
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id required")
	}
	warehouse, err := s.repo.FindWarehouse(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	return warehouse, nil
}

func (s *service) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	warehouses, err := s.repo.ListWarehouses(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
	}
	return warehouses, nil
}

func (s *service) TotalStock(ctx context.Context, productID int64) (int, error) {
	return s.ledger.TotalStock(ctx, productID)
}

func (s *service) StockByPosition(ctx context.Context, productID int64) ([]PositionStock, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	rows, err := s.repo.PositionsWithStock(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stocked positions")
	}
	return rows, nil
}

// Replenish is the manual stocking path: land quantity at an explicit
// position and record the movement on the outbox.
func (s *service) Replenish(ctx context.Context, input ReplenishInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		repo := s.repo.WithTx(tx)

		if err := ledger.ReplenishAt(ctx, input.ProductID, input.PositionID, input.Quantity); err != nil {
			return err
		}
		warehouseID, err := repo.FindPositionWarehouse(ctx, input.PositionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage position")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReplenished,
			AggregateType: enums.AggregateStock,
			AggregateID:   strconv.FormatInt(input.ProductID, 10),
			Version:       1,
			Data: payloads.StockReplenishedEvent{
				ProductID:   input.ProductID,
				WarehouseID: warehouseID,
				PositionID:  input.PositionID,
				Quantity:    input.Quantity,
			},
		})
	})
}
