package itinerary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokyoQuery() types.TravelQuery {
	return types.TravelQuery{
		Origin:      "SIN",
		Destination: "TYO",
		StartDate:   civil.Date{Year: 2024, Month: 5, Day: 1},
		EndDate:     civil.Date{Year: 2024, Month: 5, Day: 5},
		Travelers:   2,
	}
}

func stubFlights() []types.FlightOption {
	return []types.FlightOption{
		{ID: "f1", Airline: "SQ", Price: 900, Currency: "SGD", DepartureTime: "2024-05-01T08:00:00"},
		{ID: "f2", Airline: "JL", Price: 650, Currency: "SGD", DepartureTime: "2024-05-01T22:00:00"},
		{ID: "f3", Airline: "NH", Price: 650, Currency: "SGD", DepartureTime: "2024-05-01T10:00:00"},
	}
}

func stubHotels() []types.HotelOption {
	return []types.HotelOption{
		{ID: "h1", Name: "Shinjuku Stay", PricePerNight: 200, TotalPrice: 800, Rating: 4, Currency: "SGD"},
		{ID: "h2", Name: "Asakusa Inn", PricePerNight: 120, TotalPrice: 480, Rating: 3, Currency: "SGD"},
	}
}

func stubPOIs(n int) []types.PointOfInterest {
	pois := make([]types.PointOfInterest, n)
	for i := range pois {
		pois[i] = types.PointOfInterest{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Place %d", i), Category: "culture"}
	}
	return pois
}

type fixture struct {
	travel  *MockTravelProvider
	places  *MockPlacesProvider
	llm     *MockLanguageModel
	service *ServiceImpl
}

func newFixture() *fixture {
	f := &fixture{
		travel: new(MockTravelProvider),
		places: new(MockPlacesProvider),
		llm:    new(MockLanguageModel),
	}
	f.service = NewServiceImpl(f.travel, f.places, f.llm, testLogger())
	return f
}

func (f *fixture) withProviders(pois []types.PointOfInterest, poiErr error) {
	f.travel.On("ResolveCityCode", mock.Anything, "TYO").Return("TYO", nil)
	f.travel.On("SearchFlights", mock.Anything, mock.Anything).Return(stubFlights(), nil)
	f.travel.On("SearchHotels", mock.Anything, mock.Anything).Return(stubHotels(), nil)
	if poiErr != nil {
		f.places.On("FindPointsOfInterest", mock.Anything, "TYO", mock.Anything).Return(nil, poiErr)
	} else {
		f.places.On("FindPointsOfInterest", mock.Anything, "TYO", mock.Anything).Return(pois, nil)
	}
}

func assertCoversRange(t *testing.T, q types.TravelQuery, it *types.Itinerary) {
	t.Helper()
	require.Len(t, it.Days, q.NumDays())
	for i, d := range it.Days {
		assert.Equal(t, q.StartDate.AddDays(i), d.Date)
		assert.Equal(t, i+1, d.Day)
		require.NotEmpty(t, d.Activities)
		for j := 1; j < len(d.Activities); j++ {
			assert.LessOrEqual(t, d.Activities[j-1].EndTime, d.Activities[j].StartTime)
		}
	}
}

func TestGenerate_SingaporeToTokyo(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	f.withProviders(stubPOIs(10), nil)
	f.llm.On("GenerateStructured", mock.Anything, mock.MatchedBy(func(req generativeAI.StructuredRequest) bool {
		return strings.Contains(req.Prompt, `"dates"`) && strings.Contains(req.Prompt, "Place 9")
	})).Return(planJSON(q, planOptions{}), nil).Once()

	it, err := f.service.Generate(context.Background(), q)
	require.NoError(t, err)

	assertCoversRange(t, q, it)
	assert.Equal(t, "09:00", it.Days[0].Activities[0].StartTime, "activities are ordered by start time")
	assert.NotEqual(t, uuid.Nil, it.ID)
	assert.Equal(t, 1, it.Version)
	assert.False(t, it.Partial)
	assert.Len(t, it.PointsOfInterest, 10)
	require.NotNil(t, it.SelectedFlight)
	assert.Equal(t, "f3", it.SelectedFlight.ID, "cheapest flight, earliest departure wins the tie")
	require.NotNil(t, it.SelectedHotel)
	assert.Equal(t, "h2", it.SelectedHotel.ID)
	assert.Len(t, it.AvailableFlights, 3)
	assert.Equal(t, "SGD", it.Currency)
	assert.Equal(t, 650+480+5*20.0, it.EstimatedTotalCost)
	f.llm.AssertNumberOfCalls(t, "GenerateStructured", 1)
}

func TestGenerate_PartialWhenPointsOfInterestFail(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	f.withProviders(nil, types.ErrUpstreamUnavailable)
	f.llm.On("GenerateStructured", mock.Anything, mock.Anything).Return(planJSON(q, planOptions{}), nil).Once()

	it, err := f.service.Generate(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, it.Partial)
	assert.NotNil(t, it.PointsOfInterest)
	assert.Empty(t, it.PointsOfInterest)
	require.NotEmpty(t, it.Warnings)
	assert.Contains(t, it.Warnings[0], "points of interest unavailable")
	assertCoversRange(t, q, it)
}

func TestGenerate_RequiredPointsOfInterestFail(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	q.RequirePointsOfInterest = true
	f.withProviders(nil, types.ErrUpstreamRateLimited)

	_, err := f.service.Generate(context.Background(), q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUpstreamRateLimited))
	f.llm.AssertNotCalled(t, "GenerateStructured", mock.Anything, mock.Anything)
}

func TestGenerate_FlightFailurePropagates(t *testing.T) {
	f := newFixture()
	f.travel.On("ResolveCityCode", mock.Anything, "TYO").Return("TYO", nil)
	f.travel.On("SearchFlights", mock.Anything, mock.Anything).Return(nil, types.ErrUpstreamRateLimited)
	f.travel.On("SearchHotels", mock.Anything, mock.Anything).Return(stubHotels(), nil)
	f.places.On("FindPointsOfInterest", mock.Anything, mock.Anything, mock.Anything).Return(stubPOIs(2), nil)

	_, err := f.service.Generate(context.Background(), tokyoQuery())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUpstreamRateLimited))
}

func TestGenerate_InvalidQueryFailsFast(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	q.EndDate = q.StartDate.AddDays(-1)

	_, err := f.service.Generate(context.Background(), q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidQuery))
	f.travel.AssertNotCalled(t, "SearchFlights", mock.Anything, mock.Anything)
}

func TestGenerate_UnresolvableDestination(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	q.Destination = "Atlantis"
	f.travel.On("ResolveCityCode", mock.Anything, "Atlantis").Return("", fmt.Errorf("%w: no city code", types.ErrInvalidQuery))

	_, err := f.service.Generate(context.Background(), q)
	assert.True(t, errors.Is(err, types.ErrInvalidQuery))
	f.travel.AssertNotCalled(t, "SearchHotels", mock.Anything, mock.Anything)
}

func TestGenerate_RepairsInvalidOutputOnce(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	f.withProviders(stubPOIs(3), nil)
	f.llm.On("GenerateStructured", mock.Anything, mock.Anything).Return("Sure! Here is your plan", nil).Once()
	f.llm.On("GenerateStructured", mock.Anything, mock.MatchedBy(func(req generativeAI.StructuredRequest) bool {
		return strings.Contains(req.Prompt, "rejected") && len(req.History) == 2
	})).Return(planJSON(q, planOptions{}), nil).Once()

	it, err := f.service.Generate(context.Background(), q)
	require.NoError(t, err)
	assertCoversRange(t, q, it)
	f.llm.AssertNumberOfCalls(t, "GenerateStructured", 2)
}

func TestGenerate_InvalidTwiceIsSchemaViolation(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	f.withProviders(stubPOIs(3), nil)
	f.llm.On("GenerateStructured", mock.Anything, mock.Anything).Return(`{"summary":`, nil).Twice()

	_, err := f.service.Generate(context.Background(), q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSchemaViolation))
	f.llm.AssertNumberOfCalls(t, "GenerateStructured", 2)
}

func TestGenerate_CoverageViolationTriggersRepair(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	f.withProviders(stubPOIs(3), nil)
	f.llm.On("GenerateStructured", mock.Anything, mock.Anything).Return(planJSON(q, planOptions{days: 4}), nil).Once()
	f.llm.On("GenerateStructured", mock.Anything, mock.MatchedBy(func(req generativeAI.StructuredRequest) bool {
		return strings.Contains(req.Prompt, "expected 5 day plans")
	})).Return(planJSON(q, planOptions{}), nil).Once()

	it, err := f.service.Generate(context.Background(), q)
	require.NoError(t, err)
	assertCoversRange(t, q, it)
}

func TestGenerate_ModelSelectionHonoured(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	q.Budget = 1000
	f.withProviders(stubPOIs(3), nil)
	f.llm.On("GenerateStructured", mock.Anything, mock.Anything).
		Return(planJSON(q, planOptions{flightID: "f1", hotelID: "unknown", total: 1900}), nil).Once()

	it, err := f.service.Generate(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "f1", it.SelectedFlight.ID)
	assert.Equal(t, "h2", it.SelectedHotel.ID, "unknown id keeps the default")
	assert.Equal(t, 1900.0, it.EstimatedTotalCost)
	assert.Contains(t, strings.Join(it.Warnings, "\n"), "exceeds the budget")
}

func TestGenerate_ModelUnavailable(t *testing.T) {
	f := newFixture()
	f.withProviders(stubPOIs(3), nil)
	f.llm.On("GenerateStructured", mock.Anything, mock.Anything).Return("", types.ErrUpstreamUnavailable)

	_, err := f.service.Generate(context.Background(), tokyoQuery())
	assert.True(t, errors.Is(err, types.ErrUpstreamUnavailable))
}

func TestDefaultSelection(t *testing.T) {
	assert.Nil(t, DefaultFlight(nil))
	assert.Nil(t, DefaultHotel(nil))

	flights := []types.FlightOption{
		{ID: "a", Price: 500},
		{ID: "b", Price: 400, DepartureTime: "2024-05-01T12:00:00"},
		{ID: "c", Price: 400, DepartureTime: "2024-05-01T06:00:00"},
	}
	assert.Equal(t, "c", DefaultFlight(flights).ID)

	hotels := []types.HotelOption{
		{ID: "x", PricePerNight: 100, Rating: 3},
		{ID: "y", PricePerNight: 100, Rating: 5},
		{ID: "z", PricePerNight: 150, Rating: 5},
	}
	assert.Equal(t, "y", DefaultHotel(hotels).ID)

	picked := DefaultHotel(hotels)
	picked.Name = "changed"
	assert.Empty(t, hotels[1].Name, "default is a copy")
}

func TestExportPDF(t *testing.T) {
	f := newFixture()
	q := tokyoQuery()
	p, violations := ParseProposal(planJSON(q, planOptions{}), q, false)
	require.Empty(t, violations)

	it := &types.Itinerary{ID: uuid.New(), Query: q, Summary: "Tokyo in spring", Currency: "SGD",
		SelectedFlight: &stubFlights()[0], SelectedHotel: &stubHotels()[0]}
	ApplyProposal(it, p, nil, nil)

	doc, err := f.service.ExportPDF(context.Background(), it)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	_, err = f.service.ExportPDF(context.Background(), &types.Itinerary{})
	assert.True(t, errors.Is(err, types.ErrInvalidQuery))
}
