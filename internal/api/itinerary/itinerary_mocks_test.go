package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/stretchr/testify/mock"

	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

type MockTravelProvider struct {
	mock.Mock
}

func (m *MockTravelProvider) ResolveCityCode(ctx context.Context, city string) (string, error) {
	args := m.Called(ctx, city)
	return args.String(0), args.Error(1)
}

func (m *MockTravelProvider) SearchFlights(ctx context.Context, q types.TravelQuery) (iter.Seq[types.FlightOption], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return seqOf(args.Get(0).([]types.FlightOption)), args.Error(1)
}

func (m *MockTravelProvider) SearchHotels(ctx context.Context, q types.TravelQuery) (iter.Seq[types.HotelOption], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return seqOf(args.Get(0).([]types.HotelOption)), args.Error(1)
}

type MockPlacesProvider struct {
	mock.Mock
}

func (m *MockPlacesProvider) FindPointsOfInterest(ctx context.Context, location string, filters []string) (iter.Seq[types.PointOfInterest], error) {
	args := m.Called(ctx, location, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return seqOf(args.Get(0).([]types.PointOfInterest)), args.Error(1)
}

type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) GenerateStructured(ctx context.Context, req generativeAI.StructuredRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func seqOf[T any](items []T) iter.Seq[T] {
	return upstream.Sequence(items, func(v T) (T, bool) { return v, true })
}

type planOptions struct {
	days     int
	flightID string
	hotelID  string
	reply    string
	total    float64
}

// planJSON renders a model response with one or two activities per day
// starting at q.StartDate.
func planJSON(q types.TravelQuery, o planOptions) string {
	if o.days == 0 {
		o.days = q.NumDays()
	}
	type act struct {
		Start string  `json:"start_time"`
		End   string  `json:"end_time"`
		Title string  `json:"title"`
		Cost  float64 `json:"estimated_cost"`
	}
	type day struct {
		Day        int    `json:"day"`
		Date       string `json:"date"`
		Theme      string `json:"theme"`
		Activities []act  `json:"activities"`
	}
	days := make([]day, o.days)
	for i := range days {
		days[i] = day{
			Day:   i + 1,
			Date:  q.StartDate.AddDays(i).String(),
			Theme: fmt.Sprintf("Day %d", i+1),
			Activities: []act{
				{Start: "13:00", End: "15:00", Title: "Museum visit", Cost: 20},
				{Start: "09:00", End: "11:30", Title: "Temple walk", Cost: 0},
			},
		}
	}
	body := map[string]any{
		"summary":              "A balanced trip",
		"selected_flight_id":   o.flightID,
		"selected_hotel_id":    o.hotelID,
		"estimated_total_cost": o.total,
		"days":                 days,
	}
	if o.reply != "" {
		body["reply"] = o.reply
	}
	b, _ := json.Marshal(body)
	return string(b)
}
