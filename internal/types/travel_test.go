package types

import (
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuery() TravelQuery {
	return TravelQuery{
		Origin:      "SIN",
		Destination: "TYO",
		StartDate:   civil.Date{Year: 2024, Month: 5, Day: 1},
		EndDate:     civil.Date{Year: 2024, Month: 5, Day: 5},
		Travelers:   2,
	}
}

func TestTravelQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *TravelQuery)
		wantErr bool
	}{
		{name: "valid", mutate: func(q *TravelQuery) {}},
		{name: "same day trip", mutate: func(q *TravelQuery) { q.EndDate = q.StartDate }},
		{name: "missing origin", mutate: func(q *TravelQuery) { q.Origin = "" }, wantErr: true},
		{name: "missing destination", mutate: func(q *TravelQuery) { q.Destination = "" }, wantErr: true},
		{name: "missing start", mutate: func(q *TravelQuery) { q.StartDate = civil.Date{} }, wantErr: true},
		{name: "end before start", mutate: func(q *TravelQuery) { q.EndDate = q.StartDate.AddDays(-1) }, wantErr: true},
		{name: "too long", mutate: func(q *TravelQuery) { q.EndDate = q.StartDate.AddDays(MaxTripDays) }, wantErr: true},
		{name: "too many travelers", mutate: func(q *TravelQuery) { q.Travelers = MaxTravelers + 1 }, wantErr: true},
		{name: "negative budget", mutate: func(q *TravelQuery) { q.Budget = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidQuery))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTravelQuery_Normalize(t *testing.T) {
	q := TravelQuery{Origin: "  Singapore ", Destination: "Tokyo", Currency: " sgd", Preferences: []string{" Food", "", "CULTURE "}}
	n := q.Normalize()

	assert.Equal(t, "Singapore", n.Origin)
	assert.Equal(t, "SGD", n.Currency)
	assert.Equal(t, 1, n.Travelers)
	assert.Equal(t, []string{"food", "culture"}, n.Preferences)
	assert.Equal(t, " Food", q.Preferences[0], "normalize must not touch the caller's slice")
}

func TestTravelQuery_Dates(t *testing.T) {
	q := validQuery()

	assert.Equal(t, 5, q.NumDays())
	assert.Equal(t, 4, q.Nights())
	assert.Equal(t, q.EndDate, q.CheckOut())

	dates := q.Dates()
	require.Len(t, dates, 5)
	assert.Equal(t, q.StartDate, dates[0])
	assert.Equal(t, q.EndDate, dates[4])

	q.EndDate = q.StartDate
	assert.Equal(t, 1, q.NumDays())
	assert.Equal(t, 1, q.Nights())
	assert.Equal(t, q.StartDate.AddDays(1), q.CheckOut())
}

func TestItinerary_Clone(t *testing.T) {
	lvl := 2
	orig := &Itinerary{
		Version:          1,
		SelectedFlight:   &FlightOption{ID: "f1", Metadata: map[string]string{"k": "v"}},
		PointsOfInterest: []PointOfInterest{{Name: "Senso-ji", PriceLevel: &lvl}},
		Days: []DayPlan{{Day: 1, Activities: []Activity{{Title: "Walk", StartTime: "09:00", EndTime: "10:00"}}}},
	}

	c := orig.Clone()
	c.SelectedFlight.Metadata["k"] = "changed"
	c.Days[0].Activities[0].Title = "Run"
	*c.PointsOfInterest[0].PriceLevel = 4

	assert.Equal(t, "v", orig.SelectedFlight.Metadata["k"])
	assert.Equal(t, "Walk", orig.Days[0].Activities[0].Title)
	assert.Equal(t, 2, *orig.PointsOfInterest[0].PriceLevel)
	assert.Nil(t, (*Itinerary)(nil).Clone())
}

func TestItinerary_JSONRoundTripWithoutDates(t *testing.T) {
	orig := Itinerary{
		Version:        3,
		SelectedFlight: &FlightOption{ID: "f1", Price: 420},
		SelectedHotel:  &HotelOption{ID: "h1", TotalPrice: 300},
		Days:           []DayPlan{{Day: 1, Activities: []Activity{{Title: "Walk", StartTime: "09:00", EndTime: "10:00"}}}},
	}

	raw, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0000-00-00")

	var back Itinerary
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "f1", back.SelectedFlight.ID)
	assert.Equal(t, civil.Date{}, back.SelectedHotel.CheckIn)
	assert.Equal(t, civil.Date{}, back.Days[0].Date)
}

func TestTravelQuery_JSONDates(t *testing.T) {
	raw, err := json.Marshal(validQuery())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"start_date":"2024-05-01"`)

	var back TravelQuery
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, validQuery().EndDate, back.EndDate)
}
