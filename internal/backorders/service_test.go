package backorders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/outbox"
)

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

func newEngineDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:backorders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Warehouse{}, &models.StoragePosition{}, &models.StockRecord{},
		&models.Supplier{}, &models.SupplierProduct{},
		&models.Backorder{}, &models.BackorderLine{},
	))
	return conn
}

func newEngine(t *testing.T, conn *gorm.DB) (Service, *recordingOutbox) {
	t.Helper()
	ledger, err := inventory.NewLedger(inventory.NewRepository(conn))
	require.NoError(t, err)
	ob := &recordingOutbox{}
	svc, err := NewService(NewRepository(conn), ledger, gormTxRunner{db: conn}, ob, nil)
	require.NoError(t, err)
	return svc, ob
}

func seedWarehouse(t *testing.T, conn *gorm.DB) *models.Warehouse {
	t.Helper()
	warehouse := &models.Warehouse{Name: fmt.Sprintf("wh-%s", uuid.NewString()[:8]), Location: "Thessaloniki"}
	require.NoError(t, conn.Create(warehouse).Error)
	require.NoError(t, conn.Create(&models.StoragePosition{WarehouseID: warehouse.ID, Aisle: 1, Shelf: 1}).Error)
	return warehouse
}

func seedSupplier(t *testing.T, svc Service, name string, productID int64, from time.Time) *models.Supplier {
	t.Helper()
	supplier, err := svc.RegisterSupplier(context.Background(), RegisterSupplierInput{Name: name})
	require.NoError(t, err)
	_, err = svc.AddSupplierProduct(context.Background(), SupplierProductInput{
		SupplierID: supplier.ID,
		ProductID:  productID,
		ValidFrom:  from,
		ValidTo:    from.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	return supplier
}

func TestOpenOrAppend_CreatesThenAppends(t *testing.T) {
	conn := newEngineDB(t)
	svc, ob := newEngine(t, conn)
	ctx := context.Background()

	wh := seedWarehouse(t, conn)
	past := time.Now().AddDate(0, -1, 0)
	seedSupplier(t, svc, "Galenika", 1, past)
	seedSupplier(t, svc, "Pharmathen", 2, past)

	first, err := svc.OpenOrAppendTx(ctx, conn, wh.ID, 1, 5)
	require.NoError(t, err)
	require.Len(t, first.Lines, 1)
	assert.Equal(t, 5, first.Lines[0].Quantity)
	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventBackorderOpened, ob.events[0].EventType)

	second, err := svc.OpenOrAppendTx(ctx, conn, wh.ID, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Lines, 2)
	assert.Len(t, ob.events, 1, "append must not emit a second opened event")

	third, err := svc.OpenOrAppendTx(ctx, conn, wh.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	require.Len(t, third.Lines, 2, "same product tops up the existing line")
	for _, line := range third.Lines {
		if line.ProductID == 1 {
			assert.Equal(t, 7, line.Quantity)
		}
	}
}

func TestOpenOrAppend_SupplierSelection(t *testing.T) {
	conn := newEngineDB(t)
	svc, _ := newEngine(t, conn)
	ctx := context.Background()

	wh := seedWarehouse(t, conn)
	early := time.Now().AddDate(0, -6, 0)
	late := time.Now().AddDate(0, -1, 0)

	// Registered later but with the earlier window start: must win.
	lateStarter := seedSupplier(t, svc, "Boehringer Hellas", 1, late)
	earlyStarter := seedSupplier(t, svc, "Vianex", 1, early)
	_ = lateStarter

	backorder, err := svc.OpenOrAppendTx(ctx, conn, wh.ID, 1, 4)
	require.NoError(t, err)
	require.Len(t, backorder.Lines, 1)
	assert.Equal(t, earlyStarter.ID, backorder.Lines[0].SupplierID)
}

func TestOpenOrAppend_NoSupplier(t *testing.T) {
	conn := newEngineDB(t)
	svc, _ := newEngine(t, conn)

	wh := seedWarehouse(t, conn)
	_, err := svc.OpenOrAppendTx(context.Background(), conn, wh.ID, 42, 4)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestComplete_ReplenishesOnce(t *testing.T) {
	conn := newEngineDB(t)
	svc, ob := newEngine(t, conn)
	ctx := context.Background()

	wh := seedWarehouse(t, conn)
	seedSupplier(t, svc, "Demo Pharma", 1, time.Now().AddDate(0, -1, 0))

	backorder, err := svc.OpenOrAppendTx(ctx, conn, wh.ID, 1, 6)
	require.NoError(t, err)

	dispatch := time.Now()
	completed, err := svc.Complete(ctx, backorder.ID, dispatch)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	require.NotNil(t, completed.DispatchDate)

	ledger, err := inventory.NewLedger(inventory.NewRepository(conn))
	require.NoError(t, err)
	total, err := ledger.TotalStock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	var sawCompleted bool
	for _, evt := range ob.events {
		if evt.EventType == enums.EventBackorderCompleted {
			sawCompleted = true
		}
	}
	assert.True(t, sawCompleted)

	_, err = svc.Complete(ctx, backorder.ID, dispatch)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyCompleted))

	total, err = ledger.TotalStock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, total, "second complete must not double-replenish")
}

func TestComplete_UnknownBackorder(t *testing.T) {
	conn := newEngineDB(t)
	svc, _ := newEngine(t, conn)

	_, err := svc.Complete(context.Background(), 999, time.Now())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
