package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orionintegra/orion-backend/api/controllers"
	"github.com/orionintegra/orion-backend/api/middleware"
	"github.com/orionintegra/orion-backend/internal/images"
	product "github.com/orionintegra/orion-backend/internal/products"
	"github.com/orionintegra/orion-backend/pkg/blob"
	"github.com/orionintegra/orion-backend/pkg/config"
	"github.com/orionintegra/orion-backend/pkg/db"
	"github.com/orionintegra/orion-backend/pkg/logger"
	"github.com/orionintegra/orion-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	blobP blob.Pinger,
	idemStore redis.IdempotencyStore,
	limiter middleware.RateLimiterStore,
	productService product.Service,
	imageService images.Service,
	gatherer prometheus.Gatherer,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, blobP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Post("/", controllers.CreateProduct(productService, logg))

			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(productService, logg))
				r.Patch("/", controllers.UpdateProduct(productService, logg))
				r.Delete("/", controllers.DeleteProduct(productService, logg))

				r.Route("/images", func(r chi.Router) {
					uploadLimit := middleware.NewUploadRateLimitPolicy("images", time.Minute, cfg.Media.UploadRatePerMinute)

					r.Get("/", controllers.ListProductImages(imageService, logg))
					r.With(middleware.UploadRateLimit(uploadLimit, limiter, logg)).
						Post("/", controllers.UploadProductImage(imageService, logg, cfg.Media.MaxUploadBytes()))
					r.Patch("/", controllers.PatchProductImages(imageService, logg))
					r.Delete("/{imageID}", controllers.DeleteProductImage(imageService, logg))
				})
			})
		})
	})

	return r
}
