package itinerary

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-nomad-planner/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

// MaxEchoedOptions caps the candidate flights and hotels kept on an itinerary.
const MaxEchoedOptions = 5

// BudgetWarningPrefix starts the warning added when the total exceeds the budget.
const BudgetWarningPrefix = "estimated total cost"

type FlightHotelProvider interface {
	ResolveCityCode(ctx context.Context, city string) (string, error)
	SearchFlights(ctx context.Context, q types.TravelQuery) (iter.Seq[types.FlightOption], error)
	SearchHotels(ctx context.Context, q types.TravelQuery) (iter.Seq[types.HotelOption], error)
}

type PlacesProvider interface {
	FindPointsOfInterest(ctx context.Context, location string, filters []string) (iter.Seq[types.PointOfInterest], error)
}

type LanguageModelProvider interface {
	GenerateStructured(ctx context.Context, req generativeAI.StructuredRequest) (string, error)
}

type Service interface {
	Generate(ctx context.Context, q types.TravelQuery) (*types.Itinerary, error)
	Update(ctx context.Context, req UpdateRequest) (*types.Itinerary, error)
	ExportPDF(ctx context.Context, it *types.Itinerary) ([]byte, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	travel    FlightHotelProvider
	places    PlacesProvider
	completer *Completer
	logger    *slog.Logger
	now       func() time.Time
}

func NewServiceImpl(travel FlightHotelProvider, places PlacesProvider, llm LanguageModelProvider, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		travel:    travel,
		places:    places,
		completer: NewCompleter(llm, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Generate gathers flights, hotels and points of interest concurrently, merges
// them into a draft and asks the model for a day-by-day plan covering q.
func (s *ServiceImpl) Generate(ctx context.Context, q types.TravelQuery) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("origin", q.Origin),
		attribute.String("destination", q.Destination),
		attribute.String("start_date", q.StartDate.String()),
		attribute.String("end_date", q.EndDate.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Generate"), slog.String("destination", q.Destination))
	start := s.now()
	fail := func(state State, err error) (*types.Itinerary, error) {
		l.ErrorContext(ctx, "Itinerary generation failed", slog.String("state", state.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, state.String())
		return nil, err
	}

	// Validating
	l.DebugContext(ctx, "Generation state", slog.String("state", StateValidating.String()))
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return fail(StateValidating, err)
	}
	if _, err := s.travel.ResolveCityCode(ctx, q.Destination); err != nil {
		return fail(StateValidating, err)
	}

	// Fetching
	l.DebugContext(ctx, "Generation state", slog.String("state", StateFetching.String()))
	draft, err := s.fetch(ctx, q)
	if err != nil {
		return fail(StateFetching, err)
	}

	// Merging
	l.DebugContext(ctx, "Generation state", slog.String("state", StateMerging.String()))
	draft.DefaultFlight = DefaultFlight(draft.Flights)
	draft.DefaultHotel = DefaultHotel(draft.Hotels)
	prompt, err := GenerationPrompt(draft)
	if err != nil {
		return fail(StateMerging, err)
	}

	completion, err := s.completer.Complete(ctx, CompletionRequest{
		SystemInstruction: systemInstruction,
		Prompt:            prompt,
		Query:             q,
	})
	if err != nil {
		return fail(StateFailed, err)
	}

	it := &types.Itinerary{
		ID:               uuid.New(),
		Version:          1,
		Query:            q,
		SelectedFlight:   draft.DefaultFlight,
		SelectedHotel:    draft.DefaultHotel,
		AvailableFlights: firstN(draft.Flights, MaxEchoedOptions),
		AvailableHotels:  firstN(draft.Hotels, MaxEchoedOptions),
		PointsOfInterest: draft.PointsOfInterest,
		Partial:          draft.Partial,
		Warnings:         draft.Warnings,
		CreatedAt:        s.now().UTC(),
	}
	ApplyProposal(it, completion.Proposal, draft.Flights, draft.Hotels)

	m := metrics.Get()
	m.ItineraryDurationSeconds.Record(ctx, s.now().Sub(start).Seconds(),
		metric.WithAttributes(attribute.Bool("partial", it.Partial), attribute.Bool("repaired", completion.Repaired)))
	if it.Partial {
		m.PartialItinerariesTotal.Add(ctx, 1)
	}

	l.InfoContext(ctx, "Itinerary generated",
		slog.String("itinerary_id", it.ID.String()),
		slog.Int("days", len(it.Days)),
		slog.Bool("partial", it.Partial),
		slog.Bool("repaired", completion.Repaired))
	span.SetAttributes(
		attribute.String("itinerary.id", it.ID.String()),
		attribute.Bool("itinerary.partial", it.Partial),
	)
	span.SetStatus(codes.Ok, "")
	return it, nil
}

// fetch issues the three lookups concurrently and waits for all of them. A
// failed points-of-interest lookup degrades the draft to partial unless the
// query requires them or the filters themselves are invalid.
func (s *ServiceImpl) fetch(ctx context.Context, q types.TravelQuery) (*types.ItineraryDraft, error) {
	draft := &types.ItineraryDraft{Query: q}
	var poiErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		seq, err := s.travel.SearchFlights(gctx, q)
		if err != nil {
			return fmt.Errorf("flight search: %w", err)
		}
		draft.Flights = upstream.Collect(seq, 0)
		return nil
	})
	g.Go(func() error {
		seq, err := s.travel.SearchHotels(gctx, q)
		if err != nil {
			return fmt.Errorf("hotel search: %w", err)
		}
		draft.Hotels = upstream.Collect(seq, 0)
		return nil
	})
	g.Go(func() error {
		seq, err := s.places.FindPointsOfInterest(gctx, q.Destination, q.Preferences)
		if err != nil {
			if q.RequirePointsOfInterest || errors.Is(err, types.ErrInvalidQuery) {
				return fmt.Errorf("points of interest lookup: %w", err)
			}
			poiErr = err
			return nil
		}
		draft.PointsOfInterest = upstream.Collect(seq, 0)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if poiErr != nil {
		s.logger.WarnContext(ctx, "Points of interest unavailable, continuing without them", slog.Any("error", poiErr))
		draft.Partial = true
		draft.PointsOfInterest = []types.PointOfInterest{}
		draft.Warnings = append(draft.Warnings, fmt.Sprintf("points of interest unavailable: %v", poiErr))
	}
	if q.RequirePointsOfInterest && len(draft.PointsOfInterest) == 0 {
		return nil, fmt.Errorf("%w: no points of interest found for %s", types.ErrInvalidQuery, q.Destination)
	}
	if len(draft.Flights) == 0 {
		draft.Warnings = append(draft.Warnings, "no flight offers found for the requested dates")
	}
	if len(draft.Hotels) == 0 {
		draft.Warnings = append(draft.Warnings, "no hotel offers found for the requested stay")
	}
	return draft, nil
}

// ApplyProposal copies the model's plan onto it. Flight and hotel ids are
// honoured when they match a candidate; otherwise the current selection stays.
// Costs and budget warnings are recomputed.
func ApplyProposal(it *types.Itinerary, p *Proposal, flights []types.FlightOption, hotels []types.HotelOption) {
	it.Summary = p.Summary
	it.Days = types.CloneDays(p.Days)

	if f := findFlight(p.SelectedFlightID, flights, it.AvailableFlights); f != nil {
		it.SelectedFlight = f
	}
	if h := findHotel(p.SelectedHotelID, hotels, it.AvailableHotels); h != nil {
		it.SelectedHotel = h
	}

	it.Currency = it.Query.Currency
	if it.Currency == "" && it.SelectedFlight != nil {
		it.Currency = it.SelectedFlight.Currency
	}
	if it.Currency == "" && it.SelectedHotel != nil {
		it.Currency = it.SelectedHotel.Currency
	}

	it.EstimatedTotalCost = p.EstimatedTotalCost
	if it.EstimatedTotalCost <= 0 {
		it.EstimatedTotalCost = ComputeTotalCost(it)
	}

	budget := it.Query.Budget
	if budget > 0 && it.EstimatedTotalCost > budget {
		it.Warnings = appendUnique(it.Warnings, fmt.Sprintf("%s %.2f exceeds the budget of %.2f", BudgetWarningPrefix, it.EstimatedTotalCost, budget))
	}
}

// ComputeTotalCost sums the selected flight, the hotel stay and all activity costs.
func ComputeTotalCost(it *types.Itinerary) float64 {
	var total float64
	if it.SelectedFlight != nil {
		total += it.SelectedFlight.Price
	}
	if h := it.SelectedHotel; h != nil {
		if h.TotalPrice > 0 {
			total += h.TotalPrice
		} else {
			total += h.PricePerNight * float64(it.Query.Nights())
		}
	}
	for _, d := range it.Days {
		for _, a := range d.Activities {
			total += a.EstimatedCost
		}
	}
	return total
}

func findFlight(id string, lists ...[]types.FlightOption) *types.FlightOption {
	if id == "" {
		return nil
	}
	for _, list := range lists {
		for _, f := range list {
			if f.ID == id {
				c := types.CloneFlights([]types.FlightOption{f})[0]
				return &c
			}
		}
	}
	return nil
}

func findHotel(id string, lists ...[]types.HotelOption) *types.HotelOption {
	if id == "" {
		return nil
	}
	for _, list := range lists {
		for _, h := range list {
			if h.ID == id {
				c := types.CloneHotels([]types.HotelOption{h})[0]
				return &c
			}
		}
	}
	return nil
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
