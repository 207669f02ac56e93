package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
)

// Service records dispatches and answers shipment lookups.
type Service interface {
	// RecordTx runs inside the caller's transaction: it prices everything
	// currently reserved on the order and persists the dispatch record.
	RecordTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Shipment, error)

	GetShipment(ctx context.Context, id int64) (*models.Shipment, error)
	ListForOrder(ctx context.Context, orderID int64) ([]models.Shipment, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the shipment recorder.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Shipment, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	var (
		lines    []models.ShipmentLine
		gross    = decimal.Zero
		full     = true
		anything bool
	)
	for _, line := range order.Lines {
		if line.ShippedQty+line.ReservedQty > line.RequestedQty {
			return nil, pkgerrors.New(pkgerrors.CodeOverShipment, "shipment exceeds requested quantity").
				WithDetails(map[string]any{
					"product_id":    line.ProductID,
					"requested_qty": line.RequestedQty,
				})
		}
		if line.ShippedQty+line.ReservedQty < line.RequestedQty {
			full = false
		}
		if line.ReservedQty == 0 {
			continue
		}
		anything = true
		gross = gross.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.ReservedQty))))
		lines = append(lines, models.ShipmentLine{
			ProductID: line.ProductID,
			Quantity:  line.ReservedQty,
			UnitPrice: line.UnitPrice,
		})
	}
	if !anything {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing reserved to ship")
	}

	completeness := enums.ShipmentPartial
	if full {
		completeness = enums.ShipmentFull
	}
	totalCost := gross.Mul(decimal.NewFromInt(1).Sub(order.DiscountRate)).Round(2)

	shipment, err := s.repo.WithTx(tx).CreateShipment(ctx, &models.Shipment{
		OrderID:      order.ID,
		Completeness: completeness,
		DiscountRate: order.DiscountRate,
		TotalCost:    totalCost,
		ShippedAt:    s.now(),
		Lines:        lines,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
	}
	return shipment, nil
}

func (s *service) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	shipment, err := s.repo.FindShipmentByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID int64) ([]models.Shipment, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	shipments, err := s.repo.ListShipmentsForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipments")
	}
	return shipments, nil
}
