package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	appLogger "github.com/FACorreiaa/go-nomad-planner/app/logger"
	appMiddleware "github.com/FACorreiaa/go-nomad-planner/app/middleware"
	"github.com/FACorreiaa/go-nomad-planner/internal/api"
	"github.com/FACorreiaa/go-nomad-planner/internal/container"
)

// Config tunes the server-wide middleware.
type Config struct {
	AllowedOrigins    []string
	RequestsPerMinute int
	Timeout           time.Duration
}

// SetupRouter builds the application router with server-wide middleware and
// every route mounted.
func SetupRouter(c *container.Container, cfg Config) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(c.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "Content-Disposition", "X-Audio-Guide-Voice"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.ErrorResponse(w, r, http.StatusNotFound, "route not found")
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
		}

		// The websocket is long-lived and must not sit behind Timeout or Compress.
		r.Get("/chat/ws", c.ChatHandler.ChatWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Timeout))
			r.Use(middleware.Compress(5, "application/json"))

			r.Get("/flights", c.SearchHandler.SearchFlights)
			r.Get("/hotels", c.SearchHandler.SearchHotels)
			r.Get("/points-of-interest", c.SearchHandler.SearchPointsOfInterest)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RequireJSON)
				r.Post("/itinerary/generate", c.ItineraryHandler.GenerateItinerary)
				r.Post("/itinerary/export/pdf", c.ItineraryHandler.ExportPDF)
				r.Patch("/itinerary/{id}", c.ItineraryHandler.UpdateItinerary)
				r.Post("/chat", c.ChatHandler.Chat)
				r.Post("/audio-guide", c.AudioGuideHandler.AudioGuide)
				r.Post("/audio-guide/script", c.AudioGuideHandler.Script)
			})
		})
	})

	return r
}
