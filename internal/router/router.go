package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tiffindesk/api/internal/auth"
	"github.com/tiffindesk/api/internal/config"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/handler"
	mw "github.com/tiffindesk/api/internal/middleware"
	"github.com/tiffindesk/api/internal/ws"
	"go.uber.org/zap"
)

// Deps are the domain services the routes are served from.
type Deps struct {
	Catalog    handler.CatalogStore
	Customers  handler.CustomerStore
	Orders     OrderStore
	Billing    handler.BillingService
	Payments   handler.PaymentRecorder
	Dashboards handler.SessionDashboards
	Hub        *ws.Hub
}

// OrderStore is everything the order, customer and delivery screens read and
// edit. Satisfied by *orders.Store.
type OrderStore interface {
	handler.OrderStore
	handler.CustomerOrderLister
}

// New creates a Chi router with all application routes wired up. Apart from
// health, auth and the delivery-charge presets every route needs a staff token.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	signer := auth.NewSigner(cfg.JWTSecret)
	authHandler := handler.NewAuthHandler(handler.StaffAccount{
		Username:     cfg.StaffUsername,
		PasswordHash: cfg.StaffPasswordHash,
	}, signer, logger)
	authHandler.RegisterRoutes(r)

	staffOnly := func(r chi.Router) {
		r.Use(mw.Authenticate(signer))
		r.Use(mw.RequireRole(enum.RoleStaff))
	}

	// Delivery-charge presets are the only public data route.
	billingHandler := handler.NewBillingHandler(deps.Billing, logger)
	r.Route("/billing", func(r chi.Router) {
		billingHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			staffOnly(r)
			billingHandler.RegisterWriteRoutes(r)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		staffOnly(r)

		catalogHandler := handler.NewCatalogHandler(deps.Catalog, logger)
		r.Route("/catalog", func(r chi.Router) {
			catalogHandler.RegisterRoutes(r)
			catalogHandler.RegisterWriteRoutes(r)
		})

		menuHandler := handler.NewMenuHandler(deps.Catalog, logger)
		r.Route("/menus", func(r chi.Router) {
			menuHandler.RegisterRoutes(r)
			menuHandler.RegisterWriteRoutes(r)
		})

		customerHandler := handler.NewCustomerHandler(deps.Customers, deps.Orders, logger)
		r.Route("/customers", func(r chi.Router) {
			customerHandler.RegisterRoutes(r)
			customerHandler.RegisterWriteRoutes(r)
		})

		orderHandler := handler.NewOrderHandler(deps.Orders, logger)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			orderHandler.RegisterWriteRoutes(r)
		})

		deliveryHandler := handler.NewDeliveryHandler(deps.Orders, deps.Payments, logger)
		r.Route("/deliveries", func(r chi.Router) {
			deliveryHandler.RegisterRoutes(r)
			deliveryHandler.RegisterWriteRoutes(r)
		})

		dashboardHandler := handler.NewDashboardHandler(deps.Dashboards, logger)
		r.Route("/dashboards", func(r chi.Router) {
			dashboardHandler.RegisterRoutes(r)
			dashboardHandler.RegisterWriteRoutes(r)
		})

		// WebSocket clients pass the token as ?token= on the upgrade request.
		r.Get("/ws/orders", deps.Hub.ServeWS)
	})

	logger.Info("router initialized")
	return r
}
