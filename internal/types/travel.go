package types

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

const (
	MaxTravelers = 9
	MaxTripDays  = 30
)

// TravelQuery is the immutable input of one orchestration run.
// StartDate and EndDate are both inclusive.
type TravelQuery struct {
	Origin                  string     `json:"origin"`
	Destination             string     `json:"destination"`
	StartDate               civil.Date `json:"start_date,omitzero"`
	EndDate                 civil.Date `json:"end_date,omitzero"`
	Travelers               int        `json:"travelers"`
	Budget                  float64    `json:"budget,omitempty"`
	Currency                string     `json:"currency,omitempty"`
	Preferences             []string   `json:"preferences,omitempty"`
	RequirePointsOfInterest bool       `json:"require_points_of_interest,omitempty"`
}

// Normalize returns a copy with trimmed strings and defaults applied.
func (q TravelQuery) Normalize() TravelQuery {
	q.Origin = strings.TrimSpace(q.Origin)
	q.Destination = strings.TrimSpace(q.Destination)
	q.Currency = strings.ToUpper(strings.TrimSpace(q.Currency))
	if q.Travelers == 0 {
		q.Travelers = 1
	}
	if len(q.Preferences) > 0 {
		prefs := make([]string, 0, len(q.Preferences))
		for _, p := range q.Preferences {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				prefs = append(prefs, p)
			}
		}
		q.Preferences = prefs
	}
	return q
}

// Validate reports ErrInvalidQuery when a required field is absent or malformed.
func (q TravelQuery) Validate() error {
	switch {
	case q.Origin == "":
		return fmt.Errorf("%w: origin is required", ErrInvalidQuery)
	case q.Destination == "":
		return fmt.Errorf("%w: destination is required", ErrInvalidQuery)
	case q.StartDate == (civil.Date{}) || !q.StartDate.IsValid():
		return fmt.Errorf("%w: start_date is required", ErrInvalidQuery)
	case q.EndDate == (civil.Date{}) || !q.EndDate.IsValid():
		return fmt.Errorf("%w: end_date is required", ErrInvalidQuery)
	case q.EndDate.Before(q.StartDate):
		return fmt.Errorf("%w: end_date %s is before start_date %s", ErrInvalidQuery, q.EndDate, q.StartDate)
	case q.NumDays() > MaxTripDays:
		return fmt.Errorf("%w: trip of %d days exceeds the %d day limit", ErrInvalidQuery, q.NumDays(), MaxTripDays)
	case q.Travelers < 1 || q.Travelers > MaxTravelers:
		return fmt.Errorf("%w: travelers must be between 1 and %d", ErrInvalidQuery, MaxTravelers)
	case q.Budget < 0:
		return fmt.Errorf("%w: budget must not be negative", ErrInvalidQuery)
	}
	return nil
}

// NumDays is the number of day plans an itinerary for q must contain.
func (q TravelQuery) NumDays() int {
	return q.EndDate.DaysSince(q.StartDate) + 1
}

// Nights is the number of hotel nights, at least one.
func (q TravelQuery) Nights() int {
	if n := q.EndDate.DaysSince(q.StartDate); n > 0 {
		return n
	}
	return 1
}

// CheckOut is the hotel check-out date, at least one day after StartDate.
func (q TravelQuery) CheckOut() civil.Date {
	return q.StartDate.AddDays(q.Nights())
}

// Dates lists every calendar day covered by q in order.
func (q TravelQuery) Dates() []civil.Date {
	n := q.NumDays()
	if n <= 0 {
		return nil
	}
	dates := make([]civil.Date, n)
	for i := range dates {
		dates[i] = q.StartDate.AddDays(i)
	}
	return dates
}

// FlightOption is a normalized round-trip offer from the flight provider.
type FlightOption struct {
	ID                  string            `json:"id"`
	Airline             string            `json:"airline"`
	FlightNumber        string            `json:"flight_number,omitempty"`
	Origin              string            `json:"origin"`
	Destination         string            `json:"destination"`
	DepartDate          civil.Date        `json:"depart_date,omitzero"`
	ReturnDate          civil.Date        `json:"return_date,omitzero"`
	DepartureTime       string            `json:"departure_time,omitempty"`
	ArrivalTime         string            `json:"arrival_time,omitempty"`
	ReturnDepartureTime string            `json:"return_departure_time,omitempty"`
	ReturnArrivalTime   string            `json:"return_arrival_time,omitempty"`
	Stops               int               `json:"stops"`
	Duration            string            `json:"duration,omitempty"`
	Price               float64           `json:"price"`
	Currency            string            `json:"currency"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// HotelOption is a normalized hotel offer for the query's stay.
type HotelOption struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	CityCode      string            `json:"city_code,omitempty"`
	Address       string            `json:"address,omitempty"`
	Rating        float64           `json:"rating,omitempty"`
	CheckIn       civil.Date        `json:"check_in,omitzero"`
	CheckOut      civil.Date        `json:"check_out,omitzero"`
	PricePerNight float64           `json:"price_per_night"`
	TotalPrice    float64           `json:"total_price"`
	Currency      string            `json:"currency"`
	Latitude      float64           `json:"latitude,omitempty"`
	Longitude     float64           `json:"longitude,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type PointOfInterest struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	PlaceTypes     []string `json:"place_types,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	Address        string   `json:"address,omitempty"`
	Location       GeoPoint `json:"location"`
	Description    string   `json:"description,omitempty"`
	PriceLevel     *int     `json:"price_level,omitempty"`
	PhotoReference string   `json:"photo_reference,omitempty"`
}

// ItineraryDraft is the merged view handed to the language model.
type ItineraryDraft struct {
	Query            TravelQuery       `json:"trip_details"`
	DefaultFlight    *FlightOption     `json:"default_flight,omitempty"`
	DefaultHotel     *HotelOption      `json:"default_hotel,omitempty"`
	Flights          []FlightOption    `json:"flights"`
	Hotels           []HotelOption     `json:"hotels"`
	PointsOfInterest []PointOfInterest `json:"points_of_interest"`
	Partial          bool              `json:"-"`
	Warnings         []string          `json:"-"`
}
