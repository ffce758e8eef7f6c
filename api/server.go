/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and every route. This is
  the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. RealIP:     Client address behind a proxy
  3. Logger:     zerolog access log
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request counters per route pattern
  6. CORS:       Cross-origin requests for the browser UI

STATIC FILE SERVING:
  When ./web/dist exists the built UI is served from it, falling back to
  index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics/metrics.go: /metrics and the request middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/warp/bakery-engine/metrics"
)

type RouterOptions struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics // optional
	StaticDir      string           // defaults to ./web/dist
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", h.ListIngredients)
			r.Post("/", h.CreateIngredient)
			r.Put("/{id}", h.UpdateIngredient)
			r.Delete("/{id}", h.DeleteIngredient)
		})

		r.Route("/skus", func(r chi.Router) {
			r.Get("/", h.ListSKUs)
			r.Post("/", h.CreateSKU)
			r.Put("/{id}", h.UpdateSKU)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Post("/adjustments", h.AdjustStock)
			r.Get("/movements", h.ListMovements)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
			r.Put("/{id}", h.UpdateSupplier)
			r.Delete("/{id}", h.DeleteSupplier)

			r.Route("/{id}/documents", func(r chi.Router) {
				r.Post("/", h.UploadDocument)
				r.Get("/{docId}/file", h.DownloadDocument)
				r.Post("/{docId}/retry", h.RetryExtraction)
				r.Put("/{docId}/review", h.SaveReview)
				r.Post("/{docId}/confirm", h.ConfirmInvoice)
				r.Delete("/{docId}", h.DeleteDocument)
			})
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/manual", h.ManualPurchase)
			r.Post("/package", h.PackagePurchase)
			r.Post("/price-changes", h.PriceChanges)
		})

		r.Route("/payment-orders", func(r chi.Router) {
			r.Get("/", h.ListPaymentOrders)
			r.Post("/", h.CreatePaymentOrder)
		})

		r.Get("/expenses", h.ListExpenses)

		r.Route("/production", func(r chi.Router) {
			r.Post("/demand", h.PlanDemand)
			r.Post("/shopping-list", h.ShoppingList)
			r.Get("/plans", h.PlansFromRemitos)
			r.Get("/log", h.ProductionLog)
			r.Post("/log/{date}/touch", h.TouchPlan)
			r.Post("/confirm", h.ConfirmBatch)
			r.Post("/stock", h.ProduceForStock)
		})

		r.Route("/shops", func(r chi.Router) {
			r.Get("/", h.ListShops)
			r.Post("/", h.CreateShop)
			r.Get("/{name}/balance", h.ShopBalance)
		})

		r.Route("/remitos", func(r chi.Router) {
			r.Get("/", h.ListRemitos)
			r.Post("/", h.CreateRemitos)
			r.Post("/import", h.ImportWholesaleOrders)
			r.Put("/{id}", h.UpdateRemito)
			r.Delete("/{id}", h.DeleteRemito)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
		})

		r.Get("/diagnostics", h.Diagnostics)

		r.Route("/backup", func(r chi.Router) {
			r.Get("/", h.ExportBackup)
			r.Post("/", h.ImportBackup)
		})

		r.Route("/storage", func(r chi.Router) {
			r.Get("/", h.StorageInfo)
			r.Post("/reset", h.ResetStorage)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	staticDir := opts.StaticDir
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	}

	return r
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := log.Info()
			if status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
