package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/metrics"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox/payloads"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type contractGate interface {
	ActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error)
}

type productFinder interface {
	FindProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

type backorderOpener interface {
	OpenOrAppendTx(ctx context.Context, tx *gorm.DB, warehouseID, productID int64, quantity int) (*models.Backorder, error)
}

type shipmentRecorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Shipment, error)
}

// LineInput is one requested product on a new order.
type LineInput struct {
	ProductID int64
	Quantity  int
}

// PlaceInput captures a new order request.
type PlaceInput struct {
	PharmacyTaxID string
	Lines         []LineInput
}

// Service defines the order lifecycle operations.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*models.Order, error)
	Process(ctx context.Context, orderID int64) (*models.Order, error)
	Ship(ctx context.Context, orderID int64) (*models.Shipment, error)
	Cancel(ctx context.Context, orderID int64, reason string) error
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	History(ctx context.Context, taxID string, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Queue(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error)
	PendingShortfallFor(ctx context.Context, productID int64) (int, error)
}

type service struct {
	repo       Repository
	products   productFinder
	contracts  contractGate
	ledger     *inventory.Ledger
	backorders backorderOpener
	shipments  shipmentRecorder
	tx         txRunner
	outbox     outboxPublisher
	metrics    *metrics.ProcurementMetrics
	discount   DiscountPolicy

	maxDeliveryDays int
	now             func() time.Time
}

// Deps bundles the order engine's collaborators.
type Deps struct {
	Repo            Repository
	Products        productFinder
	Contracts       contractGate
	Ledger          *inventory.Ledger
	Backorders      backorderOpener
	Shipments       shipmentRecorder
	Tx              txRunner
	Outbox          outboxPublisher
	Metrics         *metrics.ProcurementMetrics
	Discount        DiscountPolicy
	MaxDeliveryDays int
}

// NewService builds the order engine with the required dependencies.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Products == nil:
		return nil, fmt.Errorf("product finder required")
	case deps.Contracts == nil:
		return nil, fmt.Errorf("contract gate required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case deps.Backorders == nil:
		return nil, fmt.Errorf("backorder opener required")
	case deps.Shipments == nil:
		return nil, fmt.Errorf("shipment recorder required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Discount == nil {
		deps.Discount = ContractDiscount
	}
	if deps.MaxDeliveryDays < 1 {
		deps.MaxDeliveryDays = 7
	}
	return &service{
		repo:            deps.Repo,
		products:        deps.Products,
		contracts:       deps.Contracts,
		ledger:          deps.Ledger,
		backorders:      deps.Backorders,
		shipments:       deps.Shipments,
		tx:              deps.Tx,
		outbox:          deps.Outbox,
		metrics:         deps.Metrics,
		discount:        deps.Discount,
		maxDeliveryDays: deps.MaxDeliveryDays,
		now:             time.Now,
	}, nil
}

func (s *service) Place(ctx context.Context, input PlaceInput) (*models.Order, error) {
	taxID := strings.TrimSpace(input.PharmacyTaxID)
	if taxID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one line")
	}

	productIDs := make([]int64, 0, len(input.Lines))
	seen := make(map[int64]bool, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if seen[line.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product on order").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		seen[line.ProductID] = true
		productIDs = append(productIDs, line.ProductID)
	}

	now := s.now()
	contract, err := s.contracts.ActiveContract(ctx, taxID, now)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeContractRequired) {
			s.metrics.IncOrderPlaced("contract_required")
		}
		return nil, err
	}

	products, err := s.products.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	priceByProduct := make(map[int64]decimal.Decimal, len(products))
	for _, p := range products {
		priceByProduct[p.ID] = p.UnitPrice
	}

	initialCost := decimal.Zero
	orderLines := make([]models.OrderLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		price, ok := priceByProduct[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		initialCost = initialCost.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		orderLines = append(orderLines, models.OrderLine{
			ProductID:    line.ProductID,
			RequestedQty: line.Quantity,
			UnitPrice:    price,
		})
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.CreateOrder(ctx, &models.Order{
			PharmacyTaxID: taxID,
			ContractID:    contract.ID,
			Status:        enums.OrderStatusPending,
			InitialCost:   initialCost,
			DiscountRate:  s.discount(contract),
			PlacedAt:      now,
			Lines:         orderLines,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		created = order

		linePayloads := make([]payloads.OrderLinePayload, 0, len(order.Lines))
		for _, line := range order.Lines {
			linePayloads = append(linePayloads, payloads.OrderLinePayload{
				ProductID:    line.ProductID,
				RequestedQty: line.RequestedQty,
			})
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(order.ID, 10),
			Version:       1,
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				PharmacyTaxID: order.PharmacyTaxID,
				ContractID:    order.ContractID,
				Lines:         linePayloads,
				PlacedAt:      order.PlacedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderPlaced("placed")
	return created, nil
}

// Process reserves stock for every outstanding line. Shortfalls are routed to
// the backorder engine and stretch the delivery estimate; the order lands in
// PROCESSING either way and never falls back to PENDING.
func (s *service) Process(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	started := s.now()
	var processed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusProcessing) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be processed").
				WithDetails(map[string]any{"status": order.Status})
		}

		var (
			totalRequested int
			totalMissing   int
			backorderID    *int64
			linePayloads   []payloads.OrderLinePayload
		)
		for _, line := range order.Lines {
			totalRequested += line.RequestedQty
			outstanding := line.RequestedQty - line.ReservedQty - line.ShippedQty
			payload := payloads.OrderLinePayload{
				ProductID:    line.ProductID,
				RequestedQty: line.RequestedQty,
				ReservedQty:  line.ReservedQty,
			}
			if outstanding <= 0 {
				linePayloads = append(linePayloads, payload)
				continue
			}

			result, err := ledger.Reserve(ctx, line.ProductID, outstanding)
			if err != nil {
				return err
			}
			if result.Fulfilled > 0 {
				affected, err := repo.AddReserved(ctx, line.ID, result.Fulfilled)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record reservation")
				}
				if affected == 0 {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "order line reserved concurrently").
						WithDetails(map[string]any{"line_id": line.ID})
				}
			}
			switch {
			case result.Shortfall == 0:
				s.metrics.IncReservation("full")
			case result.Fulfilled == 0:
				s.metrics.IncReservation("none")
			default:
				s.metrics.IncReservation("partial")
			}

			payload.ReservedQty = line.ReservedQty + result.Fulfilled
			payload.ShortfallQty = result.Shortfall
			linePayloads = append(linePayloads, payload)

			if result.Shortfall > 0 {
				totalMissing += result.Shortfall
				s.metrics.AddShortfall(result.Shortfall)

				warehouseID, err := ledger.PrimaryWarehouse(ctx, line.ProductID)
				if err != nil {
					return err
				}
				backorder, err := s.backorders.OpenOrAppendTx(ctx, tx, warehouseID, line.ProductID, result.Shortfall)
				if err != nil {
					return err
				}
				backorderID = &backorder.ID
			}
		}

		estimatedDays := estimateDeliveryDays(totalMissing, totalRequested, s.maxDeliveryDays)
		affected, err := repo.SetStatusProcessing(ctx, orderID, started, estimatedDays)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be processed")
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderProcessed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(order.ID, 10),
			Version:       1,
			Data: payloads.OrderProcessedEvent{
				OrderID:       order.ID,
				PharmacyTaxID: order.PharmacyTaxID,
				Lines:         linePayloads,
				BackorderID:   backorderID,
				ProcessedAt:   started,
			},
		})
		if err != nil {
			return err
		}

		processed, err = repo.FindOrderByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReservationDuration(s.now().Sub(started))
	return processed, nil
}

// Ship cuts a shipment for everything currently reserved. The order reaches
// SHIPPED only once every line is fully shipped; otherwise it stays in
// PROCESSING so a later backorder completion can drive a follow-up shipment.
func (s *service) Ship(ctx context.Context, orderID int64) (*models.Shipment, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	now := s.now()
	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusShipped) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only processing orders can ship").
				WithDetails(map[string]any{"status": order.Status})
		}

		shipment, err = s.shipments.RecordTx(ctx, tx, order)
		if err != nil {
			return err
		}

		fullyShipped := true
		for _, line := range order.Lines {
			if line.ReservedQty > 0 {
				if err := repo.MoveReservedToShipped(ctx, line.ID, line.ReservedQty); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move reserved to shipped")
				}
			}
			if line.ShippedQty+line.ReservedQty < line.RequestedQty {
				fullyShipped = false
			}
		}

		if fullyShipped {
			affected, err := repo.SetStatusShipped(ctx, orderID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer ship")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(order.ID, 10),
			Version:       1,
			Data: payloads.OrderShippedEvent{
				OrderID:       order.ID,
				PharmacyTaxID: order.PharmacyTaxID,
				ShipmentID:    shipment.ID,
				Completeness:  shipment.Completeness,
				TotalCost:     shipment.TotalCost,
				ShippedAt:     shipment.ShippedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncShipmentRecorded(string(shipment.Completeness))
	return shipment, nil
}

// Cancel releases reserved stock back to the ledger. Shipped or already
// cancelled orders are final.
func (s *service) Cancel(ctx context.Context, orderID int64, reason string) error {
	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	now := s.now()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending or processing orders can be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		affected, err := repo.SetStatusCancelled(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending or processing orders can be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		for _, line := range order.Lines {
			if line.ReservedQty == 0 {
				continue
			}
			warehouseID, err := ledger.PrimaryWarehouse(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if _, err := ledger.Release(ctx, line.ProductID, warehouseID, line.ReservedQty); err != nil {
				return err
			}
			if err := repo.ResetReserved(ctx, line.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset reservation")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(order.ID, 10),
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				PharmacyTaxID: order.PharmacyTaxID,
				CancelledAt:   now,
				Reason:        strings.TrimSpace(reason),
			},
		})
	})
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) History(ctx context.Context, taxID string, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if strings.TrimSpace(taxID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy tax id required")
	}
	list, err := s.repo.ListOrdersForPharmacy(ctx, taxID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Queue(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	list, err := s.repo.ListOrdersByStatus(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) PendingShortfallFor(ctx context.Context, productID int64) (int, error) {
	if productID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	total, err := s.repo.PendingShortfall(ctx, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending shortfall")
	}
	return total, nil
}
