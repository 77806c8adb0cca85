package http

import (
	"time"

	_ "github.com/DRSN-tech/style-catalog/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(catalogUC usecase.CatalogUC, ingestionUC usecase.IngestionUC, ingestTimeout time.Duration) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		catalogHandler := NewCatalogHandler(catalogUC, ingestionUC, ingestTimeout, r.logger)
		registerCatalogRoutes(v1, catalogHandler)
	})
}

func registerCatalogRoutes(router chi.Router, h *CatalogHandler) {
	router.Route("/catalog", func(c chi.Router) {
		c.Post("/ingest", h.ingest)
		c.Get("/recommendations", h.recommendByURL)
		c.Post("/recommendations", h.recommendByUpload)
		c.Get("/similar/{productId}", h.similar)
		c.Post("/tag", h.tag)
		c.Get("/items/{id}", h.getItem)
	})
}
