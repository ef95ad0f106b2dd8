package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

const systemInstruction = `You are NomadAI, an intelligent travel-planning assistant.
Build a personalised day-by-day itinerary from the trip details and the candidate flights, hotels and points of interest you are given.
Rules:
- Produce exactly one day plan per date listed in "dates", in the same order, using the exact YYYY-MM-DD date.
- Every day has at least one activity. Activities use 24h HH:MM local times, end after they start and never overlap.
- Only recommend flights, hotels and points of interest from the provided lists. Put the chosen ids in selected_flight_id and selected_hotel_id.
- Group nearby places on the same day, include lunch and dinner suggestions and realistic travel time between places.
- Give estimated_cost per activity for the whole party and keep estimated_total_cost within the budget when one is given.
Respond only with JSON matching the response schema.`

// ChatInstruction is the system instruction for conversational refinement.
const ChatInstruction = `You are NomadAI, an intelligent travel-planning assistant in a conversation about an existing itinerary.
Revise the itinerary according to the conversation and answer the user's latest message in "reply".
Rules:
- Keep exactly one day plan per date listed in "dates", in the same order, using the exact YYYY-MM-DD date.
- Every day has at least one activity. Activities use 24h HH:MM local times, end after they start and never overlap.
- Compare prices exactly as given. Only suggest a cheaper flight or hotel if its price is actually lower than the current selection.
- Only pick flights and hotels from the provided candidates and report the chosen ids.
- Keep the reply concise unless the user asks for detail.
Respond only with JSON matching the response schema.`

const maxPromptPointsOfInterest = 30

type promptContext struct {
	Trip             types.TravelQuery       `json:"trip_details"`
	DurationDays     int                     `json:"duration_days"`
	Nights           int                     `json:"nights"`
	Dates            []civil.Date            `json:"dates"`
	DefaultFlight    *types.FlightOption     `json:"default_flight,omitempty"`
	DefaultHotel     *types.HotelOption      `json:"default_hotel,omitempty"`
	Flights          []types.FlightOption    `json:"flight_options"`
	Hotels           []types.HotelOption     `json:"hotel_options"`
	PointsOfInterest []types.PointOfInterest `json:"points_of_interest"`
}

// GenerationPrompt renders the user prompt for a fresh itinerary.
func GenerationPrompt(d *types.ItineraryDraft) (string, error) {
	pois := d.PointsOfInterest
	if len(pois) > maxPromptPointsOfInterest {
		pois = pois[:maxPromptPointsOfInterest]
	}
	pc := promptContext{
		Trip:             d.Query,
		DurationDays:     d.Query.NumDays(),
		Nights:           d.Query.Nights(),
		Dates:            d.Query.Dates(),
		DefaultFlight:    d.DefaultFlight,
		DefaultHotel:     d.DefaultHotel,
		Flights:          d.Flights,
		Hotels:           d.Hotels,
		PointsOfInterest: pois,
	}
	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt context: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip from %s to %s for %d traveler(s).\n",
		pc.DurationDays, d.Query.Origin, d.Query.Destination, d.Query.Travelers)
	if d.Query.Budget > 0 {
		fmt.Fprintf(&b, "Total budget: %.2f %s.\n", d.Query.Budget, d.Query.Currency)
	}
	if len(d.Query.Preferences) > 0 {
		fmt.Fprintf(&b, "Preferences: %s.\n", strings.Join(d.Query.Preferences, ", "))
	}
	if len(pois) == 0 {
		b.WriteString("No points of interest were available; suggest well-known places yourself.\n")
	}
	b.WriteString("If you do not choose a flight or hotel, the default ones apply.\n\nContext:\n")
	b.Write(data)
	return b.String(), nil
}

// RefinementPrompt renders the user prompt for one chat turn over it.
func RefinementPrompt(it *types.Itinerary, message string) (string, error) {
	current := struct {
		Trip             types.TravelQuery       `json:"trip_details"`
		Dates            []civil.Date            `json:"dates"`
		Summary          string                  `json:"summary"`
		SelectedFlight   *types.FlightOption     `json:"selected_flight,omitempty"`
		SelectedHotel    *types.HotelOption      `json:"selected_hotel,omitempty"`
		FlightOptions    []types.FlightOption    `json:"flight_options"`
		HotelOptions     []types.HotelOption     `json:"hotel_options"`
		PointsOfInterest []types.PointOfInterest `json:"points_of_interest"`
		Days             []types.DayPlan         `json:"days"`
		TotalCost        float64                 `json:"estimated_total_cost"`
	}{
		Trip:             it.Query,
		Dates:            it.Query.Dates(),
		Summary:          it.Summary,
		SelectedFlight:   it.SelectedFlight,
		SelectedHotel:    it.SelectedHotel,
		FlightOptions:    it.AvailableFlights,
		HotelOptions:     it.AvailableHotels,
		PointsOfInterest: it.PointsOfInterest,
		Days:             it.Days,
		TotalCost:        it.EstimatedTotalCost,
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode itinerary: %w", err)
	}
	return fmt.Sprintf("Current itinerary:\n%s\n\nUser message: %s", data, strings.TrimSpace(message)), nil
}

// RepairPrompt asks the model to fix its previous answer.
func RepairPrompt(violations []string, q types.TravelQuery) string {
	var b strings.Builder
	b.WriteString("Your previous response was rejected for these reasons:\n")
	for _, v := range violations {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	dates := q.Dates()
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.String()
	}
	fmt.Fprintf(&b, "Return the corrected itinerary as JSON only, with exactly %d day plans dated %s.", len(dates), strings.Join(parts, ", "))
	return b.String()
}
