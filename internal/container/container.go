package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-nomad-planner/config"
	"github.com/FACorreiaa/go-nomad-planner/internal/api/amadeus"
	audioGuide "github.com/FACorreiaa/go-nomad-planner/internal/api/audio_guide"
	"github.com/FACorreiaa/go-nomad-planner/internal/api/chat"
	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-nomad-planner/internal/api/places"
	"github.com/FACorreiaa/go-nomad-planner/internal/api/search"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *slog.Logger
	Amadeus           *amadeus.Client
	Places            *places.Client
	AI                *generativeAI.AIClient
	SearchHandler     *search.Handler
	ItineraryHandler  *itinerary.Handler
	ChatHandler       *chat.Handler
	AudioGuideHandler *audioGuide.Handler
}

// NewContainer builds the provider clients and the services on top of them.
// httpClient may be nil to use each client's default transport.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, httpClient *http.Client) (*Container, error) {
	p := cfg.Providers
	policy := upstream.DefaultPolicy()
	if p.Timeout > 0 {
		policy.Timeout = p.Timeout
	}
	if p.Backoff > 0 {
		policy.Backoff = p.Backoff
	}

	travel := amadeus.NewClient(amadeus.Options{
		BaseURL:           p.Amadeus.BaseURL,
		APIKey:            p.Amadeus.APIKey,
		APISecret:         p.Amadeus.APISecret,
		Currency:          p.Amadeus.Currency,
		MaxFlightResults:  p.Amadeus.MaxFlightResults,
		MaxHotels:         p.Amadeus.MaxHotels,
		RequestsPerSecond: p.Amadeus.RequestsPerSecond,
		Policy:            policy,
		HTTPClient:        httpClient,
	}, logger)

	placesClient, err := places.NewClient(places.Options{
		APIKey:         p.Places.APIKey,
		BaseURL:        p.Places.BaseURL,
		Language:       p.Places.Language,
		MaxPerCategory: p.Places.MaxPerCategory,
		Policy:         policy,
		HTTPClient:     httpClient,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create places client: %w", err)
	}

	ai, err := generativeAI.NewAIClient(ctx, generativeAI.Options{
		APIKey:      p.Gemini.APIKey,
		Model:       p.Gemini.Model,
		SpeechModel: p.Gemini.SpeechModel,
		BaseURL:     p.Gemini.BaseURL,
		HTTPClient:  httpClient,
		Policy:      policy,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	itineraryService := itinerary.NewServiceImpl(travel, placesClient, ai, logger)
	chatService := chat.NewServiceImpl(ai, logger)
	audioGuideService := audioGuide.NewServiceImpl(ai, ai, logger)

	return &Container{
		Config:            cfg,
		Logger:            logger,
		Amadeus:           travel,
		Places:            placesClient,
		AI:                ai,
		SearchHandler:     search.NewHandler(travel, placesClient, logger),
		ItineraryHandler:  itinerary.NewHandler(itineraryService, logger),
		ChatHandler:       chat.NewHandler(chatService, logger, cfg.Handlers.ExternalAPI.AllowedOrigins),
		AudioGuideHandler: audioGuide.NewHandler(audioGuideService, logger),
	}, nil
}
