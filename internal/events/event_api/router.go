package event_api

import (
	"fmt"
	"ms-events/internal/metrics"
	"ms-events/internal/storage"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	// ImagePrefix is the URL prefix stored image paths resolve under, e.g. "UploadedImages".
	// An empty or root prefix leaves images unmounted rather than shadowing the API.
	ImagePrefix string
	Images      http.Handler
}

func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h.RegisterRoutes(r)
	r.Handle("/metrics", metrics.Handler())

	if opts.Images != nil {
		prefix, err := storage.CleanURLPrefix(opts.ImagePrefix)
		if err != nil {
			h.Logger.Error("HTTP", fmt.Sprintf("Images not served: %v", err))
			return r
		}
		r.Handle("/"+prefix+"/*", http.StripPrefix("/"+prefix+"/", opts.Images))
	}
	return r
}
