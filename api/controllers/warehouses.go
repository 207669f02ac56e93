package controllers

import (
	"net/http"

	"github.com/pharmanet-gr/pharmanet-backend/api/responses"
	"github.com/pharmanet-gr/pharmanet-backend/api/validators"
	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/db/models"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
)

type positionView struct {
	ID    int64 `json:"id"`
	Aisle int   `json:"aisle"`
	Shelf int   `json:"shelf"`
}

type warehouseView struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Location  string         `json:"location"`
	Positions []positionView `json:"positions,omitempty"`
}

func toWarehouseView(w *models.Warehouse) warehouseView {
	view := warehouseView{
		ID:       w.ID,
		Name:     w.Name,
		Location: w.Location,
	}
	for _, position := range w.Positions {
		view.Positions = append(view.Positions, positionView{
			ID:    position.ID,
			Aisle: position.Aisle,
			Shelf: position.Shelf,
		})
	}
	return view
}

type registerWarehouseRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
	Aisles   int    `json:"aisles" validate:"required,min=1"`
	Shelves  int    `json:"shelves" validate:"required,min=1"`
}

// RegisterWarehouse creates a warehouse with its storage position grid.
func RegisterWarehouse(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerWarehouseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		warehouse, err := svc.RegisterWarehouse(r.Context(), inventory.RegisterWarehouseInput{
			Name:     payload.Name,
			Location: payload.Location,
			Aisles:   payload.Aisles,
			Shelves:  payload.Shelves,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toWarehouseView(warehouse))
	}
}

// GetWarehouse returns one warehouse with its positions.
func GetWarehouse(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		warehouse, err := svc.GetWarehouse(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toWarehouseView(warehouse))
	}
}

// ListWarehouses returns every registered warehouse.
func ListWarehouses(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListWarehouses(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]warehouseView, 0, len(records))
		for i := range records {
			views = append(views, toWarehouseView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"warehouses": views})
	}
}

type replenishRequest struct {
	ProductID  int64 `json:"product_id" validate:"required,min=1"`
	PositionID int64 `json:"position_id" validate:"required,min=1"`
	Quantity   int   `json:"quantity" validate:"required,min=1"`
}

// ReplenishStock lands inbound stock at an explicit storage position.
func ReplenishStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload replenishRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Replenish(r.Context(), inventory.ReplenishInput{
			ProductID:  payload.ProductID,
			PositionID: payload.PositionID,
			Quantity:   payload.Quantity,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id":  payload.ProductID,
			"position_id": payload.PositionID,
			"quantity":    payload.Quantity,
		})
	}
}

// ProductStock reports the total on-hand quantity and its position breakdown.
func ProductStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		total, err := svc.TotalStock(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		positions, err := svc.StockByPosition(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		type stockView struct {
			PositionID  int64 `json:"position_id"`
			WarehouseID int64 `json:"warehouse_id"`
			Aisle       int   `json:"aisle"`
			Shelf       int   `json:"shelf"`
			Quantity    int   `json:"quantity"`
		}
		views := make([]stockView, 0, len(positions))
		for _, position := range positions {
			views = append(views, stockView{
				PositionID:  position.PositionID,
				WarehouseID: position.WarehouseID,
				Aisle:       position.Aisle,
				Shelf:       position.Shelf,
				Quantity:    position.Quantity,
			})
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id": productID,
			"total":      total,
			"positions":  views,
		})
	}
}
