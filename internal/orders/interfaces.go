package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

// OrderFilters narrows order listings.
type OrderFilters struct {
	Status *enums.OrderStatus
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersForPharmacy(ctx context.Context, taxID string, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListOrdersByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error)

	SetStatusProcessing(ctx context.Context, id int64, at time.Time, estimatedDays int) (int64, error)
	SetStatusShipped(ctx context.Context, id int64, at time.Time) (int64, error)
	SetStatusCancelled(ctx context.Context, id int64, at time.Time) (int64, error)

	AddReserved(ctx context.Context, lineID int64, quantity int) (int64, error)
	MoveReservedToShipped(ctx context.Context, lineID int64, quantity int) error
	ResetReserved(ctx context.Context, lineID int64) error

	PendingShortfall(ctx context.Context, productID int64) (int, error)
}
