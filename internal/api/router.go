package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sjsage522/shopcompare/logger"
)

// NewRouter wires the routes. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
	)

	r.Get("/health", h.Health)
	r.Post("/search", h.Search)
	r.Get("/platforms", h.Platforms)
	r.Get("/products/{platform}/{productID}", h.ProductDetail)
	r.Post("/query/parse", h.ParseQuery)
	r.Post("/query/keywords", h.ExtractKeywords)
	r.Post("/robot/interact", h.Interact)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.DeleteCart)
			r.Get("/summary", h.CartSummary)
			r.Post("/optimize", h.OptimizeCart)
			r.Post("/items", h.AddItem)
			r.Delete("/items", h.ClearCart)
			r.Patch("/items/{itemID}", h.UpdateItem)
			r.Delete("/items/{itemID}", h.RemoveItem)
		})
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.ForAPI().Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request served")
	})
}
