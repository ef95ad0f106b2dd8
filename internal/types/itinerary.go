package types

import (
	"maps"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Activity is one time-boxed entry of a day plan. Times are "HH:MM", 24h local.
type Activity struct {
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Location      string  `json:"location,omitempty"`
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
}

type DayPlan struct {
	Day        int        `json:"day"`
	Date       civil.Date `json:"date,omitzero"`
	Theme      string     `json:"theme,omitempty"`
	Activities []Activity `json:"activities"`
}

// Itinerary is the structured plan returned to callers. A refinement never edits
// an existing value; it derives a new one with Version incremented.
type Itinerary struct {
	ID                 uuid.UUID         `json:"id"`
	Version            int               `json:"version"`
	Query              TravelQuery       `json:"trip_details"`
	Summary            string            `json:"summary"`
	SelectedFlight     *FlightOption     `json:"selected_flight,omitempty"`
	SelectedHotel      *HotelOption      `json:"selected_hotel,omitempty"`
	AvailableFlights   []FlightOption    `json:"available_flights"`
	AvailableHotels    []HotelOption     `json:"available_hotels"`
	PointsOfInterest   []PointOfInterest `json:"points_of_interest"`
	Days               []DayPlan         `json:"days"`
	EstimatedTotalCost float64           `json:"estimated_total_cost"`
	Currency           string            `json:"currency,omitempty"`
	Partial            bool              `json:"partial"`
	Warnings           []string          `json:"warnings,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// Clone returns a deep copy of it.
func (it *Itinerary) Clone() *Itinerary {
	if it == nil {
		return nil
	}
	out := *it
	out.Query.Preferences = slices.Clone(it.Query.Preferences)
	if it.SelectedFlight != nil {
		f := cloneFlight(*it.SelectedFlight)
		out.SelectedFlight = &f
	}
	if it.SelectedHotel != nil {
		h := cloneHotel(*it.SelectedHotel)
		out.SelectedHotel = &h
	}
	out.AvailableFlights = CloneFlights(it.AvailableFlights)
	out.AvailableHotels = CloneHotels(it.AvailableHotels)
	out.PointsOfInterest = ClonePointsOfInterest(it.PointsOfInterest)
	out.Days = CloneDays(it.Days)
	out.Warnings = slices.Clone(it.Warnings)
	return &out
}

func CloneDays(days []DayPlan) []DayPlan {
	if days == nil {
		return nil
	}
	out := make([]DayPlan, len(days))
	for i, d := range days {
		d.Activities = slices.Clone(d.Activities)
		out[i] = d
	}
	return out
}

func CloneFlights(flights []FlightOption) []FlightOption {
	if flights == nil {
		return nil
	}
	out := make([]FlightOption, len(flights))
	for i, f := range flights {
		out[i] = cloneFlight(f)
	}
	return out
}

func CloneHotels(hotels []HotelOption) []HotelOption {
	if hotels == nil {
		return nil
	}
	out := make([]HotelOption, len(hotels))
	for i, h := range hotels {
		out[i] = cloneHotel(h)
	}
	return out
}

func ClonePointsOfInterest(pois []PointOfInterest) []PointOfInterest {
	if pois == nil {
		return nil
	}
	out := make([]PointOfInterest, len(pois))
	for i, p := range pois {
		p.PlaceTypes = slices.Clone(p.PlaceTypes)
		if p.PriceLevel != nil {
			lvl := *p.PriceLevel
			p.PriceLevel = &lvl
		}
		out[i] = p
	}
	return out
}

func cloneFlight(f FlightOption) FlightOption {
	f.Metadata = maps.Clone(f.Metadata)
	return f
}

func cloneHotel(h HotelOption) HotelOption {
	h.Metadata = maps.Clone(h.Metadata)
	return h
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationTurn is one chat message. The ordered history lives with the caller.
type ConversationTurn struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text"`
}
