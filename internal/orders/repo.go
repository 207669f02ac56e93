package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/enums"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrdersForPharmacy(ctx context.Context, taxID string, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Lines").
		Where("pharmacy_tax_id = ?", taxID)
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	return r.pageOrders(q, params)
}

func (r *repository) ListOrdersByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Lines").
		Where("status = ?", status)
	return r.pageOrders(q, params)
}

func (r *repository) pageOrders(q *gorm.DB, params pagination.Params) (*OrderList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(orders.created_at, orders.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = q.Order("orders.created_at DESC, orders.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: rows}
	if len(rows) == limit {
		last := rows[limit-2]
		list.Orders = rows[:limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

// Status transitions are guarded updates; the affected count tells the caller
// whether the order was still in an allowed source state.

func (r *repository) SetStatusProcessing(ctx context.Context, id int64, at time.Time, estimatedDays int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}).
		Updates(map[string]any{
			"status":                  enums.OrderStatusProcessing,
			"processed_at":            at,
			"estimated_delivery_days": estimatedDays,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) SetStatusShipped(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status = ?", enums.OrderStatusProcessing).
		Updates(map[string]any{
			"status":     enums.OrderStatusShipped,
			"shipped_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) SetStatusCancelled(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}).
		Updates(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": at,
		})
	return res.RowsAffected, res.Error
}

// AddReserved caps the write at the line's requested quantity. A concurrent
// process call that already reserved the outstanding amount leaves zero rows
// affected; the caller rolls back, returning its stock decrement with it.
func (r *repository) AddReserved(ctx context.Context, lineID int64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", lineID).
		Where("reserved_qty + shipped_qty + ? <= requested_qty", quantity).
		Update("reserved_qty", gorm.Expr("reserved_qty + ?", quantity))
	return res.RowsAffected, res.Error
}

func (r *repository) MoveReservedToShipped(ctx context.Context, lineID int64, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ? AND reserved_qty >= ?", lineID, quantity).
		Updates(map[string]any{
			"reserved_qty": gorm.Expr("reserved_qty - ?", quantity),
			"shipped_qty":  gorm.Expr("shipped_qty + ?", quantity),
		}).Error
}

func (r *repository) ResetReserved(ctx context.Context, lineID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", lineID).
		Update("reserved_qty", 0).Error
}

// PendingShortfall sums the still-unreserved remainder of the product across
// orders sitting in PROCESSING.
func (r *repository) PendingShortfall(ctx context.Context, productID int64) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.product_id = ?", productID).
		Where("orders.status = ?", enums.OrderStatusProcessing).
		Where("order_lines.requested_qty > order_lines.reserved_qty + order_lines.shipped_qty").
		Select("COALESCE(SUM(order_lines.requested_qty - order_lines.reserved_qty - order_lines.shipped_qty), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
