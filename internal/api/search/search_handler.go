// Package search exposes the provider searches directly, without orchestration.
package search

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/api"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

type TravelProvider interface {
	SearchFlights(ctx context.Context, q types.TravelQuery) (iter.Seq[types.FlightOption], error)
	SearchHotels(ctx context.Context, q types.TravelQuery) (iter.Seq[types.HotelOption], error)
}

type PlacesProvider interface {
	FindPointsOfInterest(ctx context.Context, location string, filters []string) (iter.Seq[types.PointOfInterest], error)
}

type Handler struct {
	travel TravelProvider
	places PlacesProvider
	logger *slog.Logger
}

func NewHandler(travel TravelProvider, places PlacesProvider, logger *slog.Logger) *Handler {
	return &Handler{travel: travel, places: places, logger: logger}
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}

func respond[T any](w http.ResponseWriter, r *http.Request, seq iter.Seq[T]) {
	items := upstream.Collect(seq, 0)
	api.WriteJSONResponse(w, r, http.StatusOK, listResponse[T]{Count: len(items), Data: items})
}

// SearchFlights handles GET /api/v1/flights. return_date defaults to depart_date.
func (h *Handler) SearchFlights(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "SearchFlights", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/flights"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchFlights"))
	params := r.URL.Query()

	q, err := flightQuery(params)
	if err != nil {
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("origin", q.Origin), attribute.String("destination", q.Destination))

	seq, err := h.travel.SearchFlights(ctx, q)
	if err != nil {
		l.ErrorContext(ctx, "Flight search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "flight search failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	respond(w, r, seq)
}

// SearchHotels handles GET /api/v1/hotels.
func (h *Handler) SearchHotels(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "SearchHotels", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/hotels"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchHotels"))

	q, err := hotelQuery(r.URL.Query())
	if err != nil {
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("destination", q.Destination))

	seq, err := h.travel.SearchHotels(ctx, q)
	if err != nil {
		l.ErrorContext(ctx, "Hotel search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "hotel search failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	respond(w, r, seq)
}

// SearchPointsOfInterest handles GET /api/v1/points-of-interest.
func (h *Handler) SearchPointsOfInterest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchHandler").Start(r.Context(), "SearchPointsOfInterest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/points-of-interest"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchPointsOfInterest"))
	params := r.URL.Query()

	destination := strings.TrimSpace(params.Get("destination"))
	if destination == "" {
		err := fmt.Errorf("%w: destination is required", types.ErrInvalidQuery)
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}

	seq, err := h.places.FindPointsOfInterest(ctx, destination, splitList(params.Get("preferences")))
	if err != nil {
		l.ErrorContext(ctx, "Points of interest search failed", slog.String("destination", destination), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "points of interest search failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	respond(w, r, seq)
}

func flightQuery(params url.Values) (types.TravelQuery, error) {
	depart, err := dateParam(params, "depart_date", true)
	if err != nil {
		return types.TravelQuery{}, err
	}
	ret, err := dateParam(params, "return_date", false)
	if err != nil {
		return types.TravelQuery{}, err
	}
	if ret == (civil.Date{}) {
		ret = depart
	}
	adults, err := intParam(params, "adults")
	if err != nil {
		return types.TravelQuery{}, err
	}
	q := types.TravelQuery{
		Origin:      params.Get("origin"),
		Destination: params.Get("destination"),
		StartDate:   depart,
		EndDate:     ret,
		Travelers:   adults,
		Currency:    params.Get("currency"),
	}.Normalize()
	return q, q.Validate()
}

func hotelQuery(params url.Values) (types.TravelQuery, error) {
	checkIn, err := dateParam(params, "checkin", true)
	if err != nil {
		return types.TravelQuery{}, err
	}
	checkOut, err := dateParam(params, "checkout", true)
	if err != nil {
		return types.TravelQuery{}, err
	}
	adults, err := intParam(params, "adults")
	if err != nil {
		return types.TravelQuery{}, err
	}
	destination := params.Get("destination")
	q := types.TravelQuery{
		// Hotel search has no origin; the destination satisfies validation.
		Origin:      destination,
		Destination: destination,
		StartDate:   checkIn,
		EndDate:     checkOut,
		Travelers:   adults,
		Currency:    params.Get("currency"),
	}.Normalize()
	return q, q.Validate()
}

func dateParam(params url.Values, key string, required bool) (civil.Date, error) {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		if required {
			return civil.Date{}, fmt.Errorf("%w: %s is required", types.ErrInvalidQuery, key)
		}
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", types.ErrInvalidQuery, key)
	}
	return d, nil
}

func intParam(params url.Values, key string) (int, error) {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", types.ErrInvalidQuery, key)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
