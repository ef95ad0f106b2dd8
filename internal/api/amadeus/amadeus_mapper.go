package amadeus

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

var errMissingPrice = errors.New("missing price")

func mapFlightOffer(o flightOffer, q types.TravelQuery, currency string) (types.FlightOption, error) {
	price, err := parsePrice(o.Price.GrandTotal, o.Price.Total)
	if err != nil {
		return types.FlightOption{}, err
	}
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return types.FlightOption{}, errors.New("offer has no segments")
	}

	out := o.Itineraries[0]
	first, last := out.Segments[0], out.Segments[len(out.Segments)-1]
	airline := first.CarrierCode
	if len(o.ValidatingAirlineCodes) > 0 {
		airline = o.ValidatingAirlineCodes[0]
	}
	if o.Price.Currency != "" {
		currency = o.Price.Currency
	}

	f := types.FlightOption{
		ID:            o.ID,
		Airline:       airline,
		FlightNumber:  first.CarrierCode + first.Number,
		Origin:        first.Departure.IataCode,
		Destination:   last.Arrival.IataCode,
		DepartDate:    q.StartDate,
		ReturnDate:    q.EndDate,
		DepartureTime: first.Departure.At,
		ArrivalTime:   last.Arrival.At,
		Stops:         len(out.Segments) - 1,
		Duration:      out.Duration,
		Price:         price,
		Currency:      currency,
		Metadata: map[string]string{
			"bookable_seats": strconv.Itoa(o.NumberOfBookableSeats),
		},
	}
	if o.Source != "" {
		f.Metadata["source"] = o.Source
	}
	if len(o.Itineraries) > 1 && len(o.Itineraries[1].Segments) > 0 {
		back := o.Itineraries[1].Segments
		f.ReturnDepartureTime = back[0].Departure.At
		f.ReturnArrivalTime = back[len(back)-1].Arrival.At
		f.Metadata["return_duration"] = o.Itineraries[1].Duration
	}
	return f, nil
}

func mapHotelOffer(o hotelOffers, listed hotelListing, q types.TravelQuery, nights int, cityCode string) (types.HotelOption, error) {
	if !o.Available || len(o.Offers) == 0 {
		return types.HotelOption{}, errors.New("no available offers")
	}
	offer := o.Offers[0]
	total, err := parsePrice(offer.Price.Total, offer.Price.Base)
	if err != nil {
		return types.HotelOption{}, err
	}
	if nights < 1 {
		nights = 1
	}

	name := o.Hotel.Name
	if name == "" {
		name = listed.Name
	}
	lat, lng := o.Hotel.Latitude, o.Hotel.Longitude
	if lat == 0 && lng == 0 {
		lat, lng = listed.GeoCode.Latitude, listed.GeoCode.Longitude
	}
	chain := o.Hotel.ChainCode
	if chain == "" {
		chain = listed.ChainCode
	}
	if chain == "" {
		chain = "IND"
	}
	if o.Hotel.CityCode != "" {
		cityCode = o.Hotel.CityCode
	}

	h := types.HotelOption{
		ID:            o.Hotel.HotelID,
		Name:          name,
		CityCode:      cityCode,
		Address:       formatAddress(listed),
		Rating:        float64(listed.Rating),
		CheckIn:       q.StartDate,
		CheckOut:      q.CheckOut(),
		PricePerNight: round2(total / float64(nights)),
		TotalPrice:    total,
		Currency:      offer.Price.Currency,
		Latitude:      lat,
		Longitude:     lng,
		Metadata: map[string]string{
			"offer_id":   offer.ID,
			"chain_code": chain,
		},
	}
	if offer.Room.Type != "" {
		h.Metadata["room_type"] = offer.Room.Type
	}
	return h, nil
}

func parsePrice(candidates ...string) (float64, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return 0, fmt.Errorf("bad price %q: %w", c, err)
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errMissingPrice
		}
		return v, nil
	}
	return 0, errMissingPrice
}

func formatAddress(h hotelListing) string {
	parts := make([]string, 0, len(h.Address.Lines)+2)
	parts = append(parts, h.Address.Lines...)
	if h.Address.CityName != "" {
		parts = append(parts, h.Address.CityName)
	}
	if h.Address.CountryCode != "" {
		parts = append(parts, h.Address.CountryCode)
	}
	return strings.Join(parts, ", ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
