package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
)

// Ledger implements the stock accounting rules: greedy reservation across
// positions, placement-aware replenishment and release. It carries no
// transaction of its own; callers rebind it with WithTx to run inside theirs.
type Ledger struct {
	repo Repository
}

// NewLedger builds a ledger over the inventory repository.
func NewLedger(repo Repository) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Ledger{repo: repo}, nil
}

// WithTx returns a ledger whose repository is bound to the given transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{repo: l.repo.WithTx(tx)}
}

// TotalStock sums the product's on-hand quantity across every position.
func (l *Ledger) TotalStock(ctx context.Context, productID int64) (int, error) {
	if productID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return l.repo.TotalStock(ctx, productID)
}

// Reserve drains stock for the product greedily, highest-quantity position
// first, until the requested quantity is satisfied or stock runs out. A guard
// on every decrement keeps concurrent reservations from driving a position
// negative. A position that shrank underneath us is retried once with its
// re-read quantity; if it shrinks again it is skipped for this reservation.
func (l *Ledger) Reserve(ctx context.Context, productID int64, quantity int) (ReservationResult, error) {
	result := ReservationResult{Requested: quantity}
	if productID <= 0 {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
	}

	positions, err := l.repo.PositionsWithStock(ctx, productID)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stocked positions")
	}

	remaining := quantity
	for _, pos := range positions {
		if remaining == 0 {
			break
		}
		take := remaining
		if pos.Quantity < take {
			take = pos.Quantity
		}
		affected, err := l.repo.DecrementStock(ctx, productID, pos.PositionID, take)
		if err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if affected == 0 {
			current, err := l.repo.PositionQuantity(ctx, productID, pos.PositionID)
			if err != nil {
				return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload position stock")
			}
			if current < take {
				take = current
			}
			if take <= 0 {
				continue
			}
			affected, err = l.repo.DecrementStock(ctx, productID, pos.PositionID, take)
			if err != nil {
				return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if affected == 0 {
				continue
			}
		}
		remaining -= take
	}

	result.Fulfilled = quantity - remaining
	result.Shortfall = remaining
	return result, nil
}

// ReplenishAt lands quantity at an explicit position, the manual stocking
// path.
func (l *Ledger) ReplenishAt(ctx context.Context, productID, positionID int64, quantity int) error {
	if productID <= 0 || positionID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product and position ids required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "replenish quantity must be positive")
	}
	if _, err := l.repo.FindPositionWarehouse(ctx, positionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "storage position not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage position")
	}
	if err := l.repo.IncrementStock(ctx, productID, positionID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment stock")
	}
	return nil
}

// Replenish lands quantity in the warehouse using the placement policy: top
// up the product's fullest position there, else take the first free position,
// else open a new slot. Returns the chosen position id.
func (l *Ledger) Replenish(ctx context.Context, productID, warehouseID int64, quantity int) (int64, error) {
	if productID <= 0 || warehouseID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product and warehouse ids required")
	}
	if quantity <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "replenish quantity must be positive")
	}

	positionID, err := l.placementFor(ctx, productID, warehouseID)
	if err != nil {
		return 0, err
	}
	if err := l.repo.IncrementStock(ctx, productID, positionID, quantity); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment stock")
	}
	return positionID, nil
}

// Release returns previously reserved quantity to stock, reusing the
// replenish placement policy.
func (l *Ledger) Release(ctx context.Context, productID, warehouseID int64, quantity int) (int64, error) {
	return l.Replenish(ctx, productID, warehouseID, quantity)
}

// PrimaryWarehouse picks the warehouse that stocks most of the product, or
// the lowest-id warehouse when the product is out of stock everywhere.
func (l *Ledger) PrimaryWarehouse(ctx context.Context, productID int64) (int64, error) {
	positions, err := l.repo.PositionsWithStock(ctx, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stocked positions")
	}
	if len(positions) > 0 {
		return positions[0].WarehouseID, nil
	}
	warehouses, err := l.repo.ListWarehouses(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
	}
	if len(warehouses) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "no warehouse registered")
	}
	return warehouses[0].ID, nil
}

func (l *Ledger) placementFor(ctx context.Context, productID, warehouseID int64) (int64, error) {
	best, err := l.repo.BestStockedPosition(ctx, productID, warehouseID)
	if err == nil {
		return best.PositionID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stocked position")
	}

	free, err := l.repo.FreePosition(ctx, warehouseID)
	if err == nil {
		return free.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load free position")
	}

	aisle, shelf, err := l.repo.NextPositionSlot(ctx, warehouseID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "next position slot")
	}
	created, err := l.repo.CreatePosition(ctx, &models.StoragePosition{
		WarehouseID: warehouseID,
		Aisle:       aisle,
		Shelf:       shelf,
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create storage position")
	}
	return created.ID, nil
}
