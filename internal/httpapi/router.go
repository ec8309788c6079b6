// Package httpapi exposes the shop server's REST endpoints.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type SettingsStore interface {
	GetSettings(ctx context.Context) (domain.ShopSettings, error)
	SaveSettings(ctx context.Context, st domain.ShopSettings) error
}

type Catalog interface {
	ByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type SaleRecorder interface {
	Record(ctx context.Context, payload domain.CheckoutPayload, idempotencyKey string) (domain.Bill, error)
}

type BillStore interface {
	BillByID(ctx context.Context, id int64) (domain.Bill, error)
	ListBills(ctx context.Context, limit int) ([]domain.Bill, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Settings SettingsStore
	Catalog  Catalog
	Recorder SaleRecorder
	Bills    BillStore
	DB       Pinger
	Metrics  *metrics.ServerMetrics
	Logger   *zap.Logger
	// RequestTimeout bounds each handler; zero means 30s.
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := NewSettingsHandler(d.Settings, timeout)
	products := NewProductHandler(d.Catalog, timeout)
	checkout := NewCheckoutHandler(d.Recorder, d.Logger, timeout)
	bills := NewBillsHandler(d.Bills, d.Settings, timeout)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(MetricsMiddleware(d.Metrics))
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				respondError(w, http.StatusServiceUnavailable, "unhealthy", "database unavailable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", settings.Get)
		r.Put("/settings", settings.Put)

		r.Get("/products", products.Search)
		r.Post("/products", products.Create)
		r.Get("/product/{barcode}", products.ByBarcode)
		r.Put("/product/{id}", products.Update)
		r.Delete("/product/{id}", products.Delete)

		r.Post("/checkout", checkout.Checkout)

		r.Get("/bills", bills.List)
		r.Get("/bills/{id}", bills.Get)
	})
	r.Get("/receipt/{id}", bills.Receipt)

	return otelhttp.NewHandler(r, "shop-server")
}
