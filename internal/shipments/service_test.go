package shipments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	pkgerrors "github.com/pharmanet-gr/pharmanet-backend/pkg/errors"
)

func newShipmentsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:shipments_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Shipment{}, &models.ShipmentLine{}))
	return conn
}

func newRecorder(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestRecordTx_PartialShipment(t *testing.T) {
	conn := newShipmentsDB(t)
	svc := newRecorder(t, conn)

	order := &models.Order{
		ID:           11,
		DiscountRate: decimal.NewFromFloat(0.10),
		Lines: []models.OrderLine{
			{ProductID: 1, RequestedQty: 10, ReservedQty: 7, UnitPrice: decimal.NewFromFloat(2.50)},
			{ProductID: 2, RequestedQty: 4, ReservedQty: 4, UnitPrice: decimal.NewFromFloat(12.00)},
		},
	}

	shipment, err := svc.RecordTx(context.Background(), conn, order)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentPartial, shipment.Completeness)
	require.Len(t, shipment.Lines, 2)

	// (7*2.50 + 4*12.00) * 0.9 = 65.50 * 0.9 = 58.95
	assert.True(t, shipment.TotalCost.Equal(decimal.NewFromFloat(58.95)), "got %s", shipment.TotalCost)
}

func TestRecordTx_FullShipment(t *testing.T) {
	conn := newShipmentsDB(t)
	svc := newRecorder(t, conn)

	order := &models.Order{
		ID:           12,
		DiscountRate: decimal.Zero,
		Lines: []models.OrderLine{
			{ProductID: 1, RequestedQty: 3, ReservedQty: 3, UnitPrice: decimal.NewFromFloat(5.00)},
		},
	}

	shipment, err := svc.RecordTx(context.Background(), conn, order)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentFull, shipment.Completeness)
	assert.True(t, shipment.TotalCost.Equal(decimal.NewFromFloat(15.00)), "got %s", shipment.TotalCost)
}

func TestRecordTx_FollowUpShipmentCompletesOrder(t *testing.T) {
	conn := newShipmentsDB(t)
	svc := newRecorder(t, conn)

	// 7 of 10 already shipped earlier; the remaining 3 just got reserved.
	order := &models.Order{
		ID:           13,
		DiscountRate: decimal.Zero,
		Lines: []models.OrderLine{
			{ProductID: 1, RequestedQty: 10, ReservedQty: 3, ShippedQty: 7, UnitPrice: decimal.NewFromFloat(1.00)},
		},
	}

	shipment, err := svc.RecordTx(context.Background(), conn, order)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentFull, shipment.Completeness)
	assert.True(t, shipment.TotalCost.Equal(decimal.NewFromFloat(3.00)), "got %s", shipment.TotalCost)
}

func TestRecordTx_OverShipment(t *testing.T) {
	conn := newShipmentsDB(t)
	svc := newRecorder(t, conn)

	order := &models.Order{
		ID:           14,
		DiscountRate: decimal.Zero,
		Lines: []models.OrderLine{
			{ProductID: 1, RequestedQty: 5, ReservedQty: 4, ShippedQty: 3, UnitPrice: decimal.NewFromFloat(1.00)},
		},
	}

	_, err := svc.RecordTx(context.Background(), conn, order)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOverShipment))
}

func TestRecordTx_NothingReserved(t *testing.T) {
	conn := newShipmentsDB(t)
	svc := newRecorder(t, conn)

	order := &models.Order{
		ID:           15,
		DiscountRate: decimal.Zero,
		Lines: []models.OrderLine{
			{ProductID: 1, RequestedQty: 5, UnitPrice: decimal.NewFromFloat(1.00)},
		},
	}

	_, err := svc.RecordTx(context.Background(), conn, order)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
