package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmanet-gr/pharmanet-backend/api/controllers"
	"github.com/pharmanet-gr/pharmanet-backend/api/middleware"
	"github.com/pharmanet-gr/pharmanet-backend/internal/backorders"
	"github.com/pharmanet-gr/pharmanet-backend/internal/catalog"
	"github.com/pharmanet-gr/pharmanet-backend/internal/contracts"
	"github.com/pharmanet-gr/pharmanet-backend/internal/inventory"
	"github.com/pharmanet-gr/pharmanet-backend/internal/orders"
	"github.com/pharmanet-gr/pharmanet-backend/internal/shipments"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/config"
	"github.com/pharmanet-gr/pharmanet-backend/pkg/logger"
	pkgredis "github.com/pharmanet-gr/pharmanet-backend/pkg/redis"
)

const (
	rateLimitPerMinute = 300
	rateLimitWindow    = time.Minute
)

// Services bundles the domain services the router exposes.
type Services struct {
	Catalog    catalog.Service
	Contracts  contracts.Service
	Inventory  inventory.Service
	Orders     orders.Service
	Backorders backorders.Service
	Shipments  shipments.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *pkgredis.Client,
	readiness map[string]controllers.Pinger,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, rateLimitPerMinute, rateLimitWindow, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svcs.Catalog, logg))
			r.Get("/{productId}", controllers.GetProduct(svcs.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Post("/medicines", controllers.RegisterMedicine(svcs.Catalog, logg))
				r.Post("/parapharmaceuticals", controllers.RegisterParapharmaceutical(svcs.Catalog, logg))
				r.Get("/{productId}/stock", controllers.ProductStock(svcs.Inventory, logg))
				r.Get("/{productId}/shortfall", controllers.PendingShortfall(svcs.Orders, logg))
			})
		})
		r.Get("/substances", controllers.ListSubstances(svcs.Catalog, logg))

		r.Route("/pharmacies", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Post("/", controllers.RegisterPharmacy(svcs.Contracts, logg))
			r.Get("/{taxId}", controllers.GetPharmacy(svcs.Contracts, logg))
			r.Get("/{taxId}/contracts", controllers.ListPharmacyContracts(svcs.Contracts, logg))
			r.Get("/{taxId}/contracts/active", controllers.ActivePharmacyContract(svcs.Contracts, logg))
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Post("/", controllers.SignContract(svcs.Contracts, logg))
			r.Get("/{contractId}", controllers.GetContract(svcs.Contracts, logg))
			r.Post("/{contractId}/cancel", controllers.CancelContract(svcs.Contracts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.PharmacyContext(logg))
				r.Post("/", controllers.PlaceOrder(svcs.Orders, logg))
				r.Get("/", controllers.OrderHistory(svcs.Orders, logg))
			})

			r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Get("/queue", controllers.OrderQueue(svcs.Orders, logg))
				r.Post("/{orderId}/process", controllers.ProcessOrder(svcs.Orders, logg))
				r.Post("/{orderId}/ship", controllers.ShipOrder(svcs.Orders, logg))
				r.Get("/{orderId}/shipments", controllers.ListOrderShipments(svcs.Shipments, logg))
			})
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Get("/{shipmentId}", controllers.GetShipment(svcs.Shipments, logg))
		})

		r.Route("/warehouses", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Post("/", controllers.RegisterWarehouse(svcs.Inventory, logg))
			r.Get("/", controllers.ListWarehouses(svcs.Inventory, logg))
			r.Get("/{warehouseId}", controllers.GetWarehouse(svcs.Inventory, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Post("/replenish", controllers.ReplenishStock(svcs.Inventory, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Post("/", controllers.RegisterSupplier(svcs.Backorders, logg))
			r.Get("/", controllers.ListSuppliers(svcs.Backorders, logg))
			r.Post("/{supplierId}/products", controllers.AddSupplierProduct(svcs.Backorders, logg))
		})

		r.Route("/backorders", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Get("/", controllers.ListBackorders(svcs.Backorders, logg))
			r.Get("/{backorderId}", controllers.GetBackorder(svcs.Backorders, logg))
			r.Post("/{backorderId}/complete", controllers.CompleteBackorder(svcs.Backorders, logg))
		})
	})

	return r
}
