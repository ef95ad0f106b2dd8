package itinerary

import (
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// DefaultFlight picks the cheapest flight, breaking ties by earliest departure
// and then by provider order. It returns nil for an empty list.
func DefaultFlight(flights []types.FlightOption) *types.FlightOption {
	if len(flights) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(flights); i++ {
		f, b := flights[i], flights[best]
		if f.Price < b.Price || (f.Price == b.Price && departsBefore(f, b)) {
			best = i
		}
	}
	c := types.CloneFlights(flights[best : best+1])[0]
	return &c
}

// DefaultHotel picks the cheapest hotel per night, breaking ties by highest
// rating and then by provider order. It returns nil for an empty list.
func DefaultHotel(hotels []types.HotelOption) *types.HotelOption {
	if len(hotels) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(hotels); i++ {
		h, b := hotels[i], hotels[best]
		if h.PricePerNight < b.PricePerNight || (h.PricePerNight == b.PricePerNight && h.Rating > b.Rating) {
			best = i
		}
	}
	c := types.CloneHotels(hotels[best : best+1])[0]
	return &c
}

// departsBefore compares ISO-8601 local departure timestamps lexically. Offers
// without a departure time sort last.
func departsBefore(a, b types.FlightOption) bool {
	switch {
	case a.DepartureTime == "":
		return false
	case b.DepartureTime == "":
		return true
	}
	return a.DepartureTime < b.DepartureTime
}
