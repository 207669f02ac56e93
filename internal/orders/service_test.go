package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/internal/backorders"
	"github.com/pharmanet-gr/pharmanet-backend/internal/catalog"
	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/internal/shipments"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

const testTaxID = "EL123456789"

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (o *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, event)
	return nil
}

type stubContractGate struct {
	contract *models.Contract
	err      error
}

func (g stubContractGate) ActiveContract(ctx context.Context, taxID string, at time.Time) (*models.Contract, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.contract, nil
}

// engineFixture wires the whole fulfillment engine over one in-memory DB.
type engineFixture struct {
	db        *gorm.DB
	svc       Service
	backorder backorders.Service
	ledger    *inventory.Ledger
	invRepo   inventory.Repository
	outbox    *recordingOutbox
	warehouse *models.Warehouse
}

func newEngine(t *testing.T, gate stubContractGate) *engineFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Pharmacy{}, &models.Contract{},
		&models.ActiveSubstance{}, &models.Product{},
		&models.Warehouse{}, &models.StoragePosition{}, &models.StockRecord{},
		&models.Supplier{}, &models.SupplierProduct{},
		&models.Order{}, &models.OrderLine{},
		&models.Backorder{}, &models.BackorderLine{},
		&models.Shipment{}, &models.ShipmentLine{},
	))

	ob := &recordingOutbox{}
	tx := gormTxRunner{db: conn}

	invRepo := inventory.NewRepository(conn)
	ledger, err := inventory.NewLedger(invRepo)
	require.NoError(t, err)

	backorderSvc, err := backorders.NewService(backorders.NewRepository(conn), ledger, tx, ob, nil)
	require.NoError(t, err)

	shipmentSvc, err := shipments.NewService(shipments.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(Deps{
		Repo:            NewRepository(conn),
		Products:        catalog.NewRepository(conn),
		Contracts:       gate,
		Ledger:          ledger,
		Backorders:      backorderSvc,
		Shipments:       shipmentSvc,
		Tx:              tx,
		Outbox:          ob,
		MaxDeliveryDays: 7,
	})
	require.NoError(t, err)

	warehouse := &models.Warehouse{Name: fmt.Sprintf("wh-%s", uuid.NewString()[:8]), Location: "Athens"}
	require.NoError(t, conn.Create(warehouse).Error)
	for shelf := 1; shelf <= 3; shelf++ {
		require.NoError(t, conn.Create(&models.StoragePosition{WarehouseID: warehouse.ID, Aisle: 1, Shelf: shelf}).Error)
	}

	return &engineFixture{
		db:        conn,
		svc:       svc,
		backorder: backorderSvc,
		ledger:    ledger,
		invRepo:   invRepo,
		outbox:    ob,
		warehouse: warehouse,
	}
}

func activeGate() stubContractGate {
	return stubContractGate{contract: &models.Contract{
		ID:            1,
		PharmacyTaxID: testTaxID,
		DiscountRate:  decimal.NewFromFloat(0.10),
	}}
}

func (f *engineFixture) seedProduct(t *testing.T, name string, price float64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:      name,
		Kind:      enums.ProductKindParapharmaceutical,
		UnitPrice: decimal.NewFromFloat(price),
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *engineFixture) stock(t *testing.T, productID int64, quantity int) {
	t.Helper()
	position, err := f.invRepo.FreePosition(context.Background(), f.warehouse.ID)
	require.NoError(t, err)
	require.NoError(t, f.invRepo.IncrementStock(context.Background(), productID, position.ID, quantity))
}

func (f *engineFixture) seedSupplier(t *testing.T, productID int64) {
	t.Helper()
	_, err := f.backorder.RegisterSupplier(context.Background(), backorders.RegisterSupplierInput{
		Name: fmt.Sprintf("supplier-%s", uuid.NewString()[:8]),
	})
	require.NoError(t, err)
	var supplier models.Supplier
	require.NoError(t, f.db.Order("id DESC").First(&supplier).Error)
	_, err = f.backorder.AddSupplierProduct(context.Background(), backorders.SupplierProductInput{
		SupplierID: supplier.ID,
		ProductID:  productID,
		ValidFrom:  time.Now().AddDate(0, -1, 0),
		ValidTo:    time.Now().AddDate(1, 0, 0),
	})
	require.NoError(t, err)
}

func TestPlace_RequiresContract(t *testing.T) {
	f := newEngine(t, stubContractGate{err: pkgerrors.New(pkgerrors.CodeContractRequired, "no active contract for pharmacy")})
	product := f.seedProduct(t, "Vitamin C 500mg", 4.20)

	_, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeContractRequired))
}

func TestPlace_ComputesInitialCost(t *testing.T) {
	f := newEngine(t, activeGate())
	a := f.seedProduct(t, "Paracetamol 500mg", 2.50)
	b := f.seedProduct(t, "Saline 500ml", 1.20)

	order, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines: []LineInput{
			{ProductID: a.ID, Quantity: 4},
			{ProductID: b.ID, Quantity: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	// 4*2.50 + 10*1.20 = 22.00
	assert.True(t, order.InitialCost.Equal(decimal.NewFromFloat(22.00)), "got %s", order.InitialCost)
	assert.True(t, order.DiscountRate.Equal(decimal.NewFromFloat(0.10)))
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventOrderPlaced, f.outbox.events[0].EventType)
}

func TestPlace_RejectsDuplicateAndUnknownProducts(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Ibuprofen 400mg", 3.10)

	_, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines: []LineInput{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: product.ID, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: 9999, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProcess_FullyStocked(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Omeprazole 20mg", 6.00)
	f.stock(t, product.ID, 10)

	order, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 7}},
	})
	require.NoError(t, err)

	processed, err := f.svc.Process(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, processed.Status)
	assert.Equal(t, 1, processed.EstimatedDeliveryDays)
	require.Len(t, processed.Lines, 1)
	assert.Equal(t, 7, processed.Lines[0].ReservedQty)

	total, err := f.ledger.TotalStock(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestProcess_ShortfallOpensBackorder(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Amoxicillin 500mg", 8.00)
	f.stock(t, product.ID, 4)
	f.seedSupplier(t, product.ID)

	order, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	processed, err := f.svc.Process(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, processed.Status)
	assert.Equal(t, 4, processed.Lines[0].ReservedQty)
	// 6 of 10 missing: 1 + ceil(6/10*6) = 5
	assert.Equal(t, 5, processed.EstimatedDeliveryDays)

	incomplete := false
	bos, err := f.backorder.ListBackorders(context.Background(), &incomplete)
	require.NoError(t, err)
	require.Len(t, bos, 1)
	require.Len(t, bos[0].Lines, 1)
	assert.Equal(t, 6, bos[0].Lines[0].Quantity)

	shortfall, err := f.svc.PendingShortfallFor(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, shortfall)
}

func TestProcess_ConcurrentReplayCannotOverReserve(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Saline 500ml", 2.50)
	f.stock(t, product.ID, 16)

	order, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 8}},
	})
	require.NoError(t, err)

	processed, err := f.svc.Process(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, 8, processed.Lines[0].ReservedQty)

	// Replay the losing half of a process race: a second reservation for
	// the full outstanding quantity, written after the first committed.
	repo := NewRepository(f.db)
	reservation, err := f.ledger.Reserve(context.Background(), product.ID, 8)
	require.NoError(t, err)
	require.Equal(t, 8, reservation.Fulfilled)

	affected, err := repo.AddReserved(context.Background(), processed.Lines[0].ID, 8)
	require.NoError(t, err)
	assert.Zero(t, affected)

	reloaded, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Lines[0].ReservedQty)

	shipment, err := f.svc.Ship(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentFull, shipment.Completeness)
}

func TestProcess_InvalidStates(t *testing.T) {
	f := newEngine(t, activeGate())

	_, err := f.svc.Process(context.Background(), 12345)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	product := f.seedProduct(t, "Cough Syrup", 5.50)
	f.stock(t, product.ID, 5)
	order, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), order.ID, "changed mind"))

	_, err = f.svc.Process(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestShip_PartialThenBackorderCompletesOrder(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Insulin Pen", 20.00)
	f.stock(t, product.ID, 7)
	f.seedSupplier(t, product.ID)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, order.ID)
	require.NoError(t, err)

	shipment, err := f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentPartial, shipment.Completeness)
	// 7 * 20.00 * 0.9 = 126.00
	assert.True(t, shipment.TotalCost.Equal(decimal.NewFromFloat(126.00)), "got %s", shipment.TotalCost)

	mid, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, mid.Status)
	assert.Equal(t, 7, mid.Lines[0].ShippedQty)
	assert.Equal(t, 0, mid.Lines[0].ReservedQty)

	// Supplier delivers the missing 3; the caller re-drives the order.
	incomplete := false
	bos, err := f.backorder.ListBackorders(ctx, &incomplete)
	require.NoError(t, err)
	require.Len(t, bos, 1)
	_, err = f.backorder.Complete(ctx, bos[0].ID, time.Now())
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, order.ID)
	require.NoError(t, err)

	followUp, err := f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentFull, followUp.Completeness)
	// 3 * 20.00 * 0.9 = 54.00
	assert.True(t, followUp.TotalCost.Equal(decimal.NewFromFloat(54.00)), "got %s", followUp.TotalCost)

	final, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, final.Status)
	assert.Equal(t, 10, final.Lines[0].ShippedQty)
}

func TestShip_RequiresProcessing(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Bandages", 1.00)
	f.stock(t, product.ID, 5)

	order, err := f.svc.Place(context.Background(), PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = f.svc.Ship(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancel_ReleasesReservedStock(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Thermometer", 9.00)
	f.stock(t, product.ID, 4)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, order.ID)
	require.NoError(t, err)

	total, err := f.ledger.TotalStock(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 0, total)

	require.NoError(t, f.svc.Cancel(ctx, order.ID, ""))

	total, err = f.ledger.TotalStock(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	cancelled, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 0, cancelled.Lines[0].ReservedQty)
}

func TestCancel_FinalStatesRejected(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Gauze", 0.80)
	f.stock(t, product.ID, 5)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, PlaceInput{
		PharmacyTaxID: testTaxID,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	err = f.svc.Cancel(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = f.svc.Cancel(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestHistory_FiltersAndPaginates(t *testing.T) {
	f := newEngine(t, activeGate())
	product := f.seedProduct(t, "Face Masks", 0.50)
	f.stock(t, product.ID, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Place(ctx, PlaceInput{
			PharmacyTaxID: testTaxID,
			Lines:         []LineInput{{ProductID: product.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	list, err := f.svc.History(ctx, testTaxID, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
	require.NotEmpty(t, list.NextCursor)

	rest, err := f.svc.History(ctx, testTaxID, pagination.Params{Limit: 2, Cursor: list.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	assert.Len(t, rest.Orders, 1)

	pending := enums.OrderStatusPending
	filtered, err := f.svc.History(ctx, testTaxID, pagination.Params{}, OrderFilters{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, filtered.Orders, 3)

	queue, err := f.svc.Queue(ctx, enums.OrderStatusPending, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, queue.Orders, 3)
}
