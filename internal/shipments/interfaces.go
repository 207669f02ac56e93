package shipments

import (
	"context"

	"gorm.io/gorm"

	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
)

// Repository defines persistence operations for shipments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateShipment(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error)
	FindShipmentByID(ctx context.Context, id int64) (*models.Shipment, error)
	ListShipmentsForOrder(ctx context.Context, orderID int64) ([]models.Shipment, error)
}
