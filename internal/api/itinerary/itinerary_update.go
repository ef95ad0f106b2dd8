package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// UpdateRequest changes the selection of a client-held itinerary. Empty ids keep
// the current flight or hotel; nil Days keeps the current plan.
type UpdateRequest struct {
	Itinerary        *types.Itinerary `json:"itinerary"`
	SelectedFlightID string           `json:"selected_flight_id,omitempty"`
	SelectedHotelID  string           `json:"selected_hotel_id,omitempty"`
	Days             []types.DayPlan  `json:"days,omitempty"`
}

// Update derives the next version of req.Itinerary with the requested flight,
// hotel and day plans applied. Ids must name one of the itinerary's candidates
// and replacement days must still cover the trip. req is never modified.
func (s *ServiceImpl) Update(ctx context.Context, req UpdateRequest) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("selected_flight_id", req.SelectedFlightID),
		attribute.String("selected_hotel_id", req.SelectedHotelID),
		attribute.Int("days", len(req.Days)),
	))
	defer span.End()

	fail := func(err error) (*types.Itinerary, error) {
		s.logger.WarnContext(ctx, "Rejected itinerary update", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid update")
		return nil, err
	}

	current := req.Itinerary
	if current == nil {
		return fail(fmt.Errorf("%w: itinerary is required", types.ErrInvalidQuery))
	}
	if err := current.Query.Validate(); err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.String("itinerary_id", current.ID.String()))

	if id := req.SelectedFlightID; id != "" && findFlight(id, current.AvailableFlights, optional(current.SelectedFlight)) == nil {
		return fail(fmt.Errorf("%w: flight %q is not among the itinerary's options", types.ErrInvalidQuery, id))
	}
	if id := req.SelectedHotelID; id != "" && findHotel(id, current.AvailableHotels, optional(current.SelectedHotel)) == nil {
		return fail(fmt.Errorf("%w: hotel %q is not among the itinerary's options", types.ErrInvalidQuery, id))
	}

	days := current.Days
	if req.Days != nil {
		days = types.CloneDays(req.Days)
		if violations := ValidateCoverage(days, current.Query); len(violations) > 0 {
			return fail(fmt.Errorf("%w: %s", types.ErrInvalidQuery, strings.Join(violations, "; ")))
		}
	}

	next := current.Clone()
	next.Version = current.Version + 1
	next.CreatedAt = s.now().UTC()
	next.Warnings = DropBudgetWarnings(next.Warnings)
	ApplyProposal(next, &Proposal{
		Summary:          current.Summary,
		SelectedFlightID: req.SelectedFlightID,
		SelectedHotelID:  req.SelectedHotelID,
		Days:             days,
	}, nil, nil)

	s.logger.InfoContext(ctx, "Itinerary updated",
		slog.String("itinerary_id", next.ID.String()),
		slog.Int("version", next.Version),
		slog.Float64("total", next.EstimatedTotalCost))
	span.SetStatus(codes.Ok, "")
	return next, nil
}

// DropBudgetWarnings removes warnings added by ApplyProposal so a recomputed
// total does not carry a stale one.
func DropBudgetWarnings(warnings []string) []string {
	return slices.DeleteFunc(warnings, func(w string) bool {
		return strings.HasPrefix(w, BudgetWarningPrefix)
	})
}

func optional[T any](v *T) []T {
	if v == nil {
		return nil
	}
	return []T{*v}
}
