package amadeus

// Wire shapes of the Amadeus Self-Service responses this client reads. Only the
// fields that are mapped are declared.

type locationsResponse struct {
	Data []struct {
		IataCode string `json:"iataCode"`
		Name     string `json:"name"`
		SubType  string `json:"subType"`
	} `json:"data"`
}

type flightOffersResponse struct {
	Data []flightOffer `json:"data"`
}

type flightOffer struct {
	ID                     string           `json:"id"`
	Source                 string           `json:"source"`
	NumberOfBookableSeats  int              `json:"numberOfBookableSeats"`
	Itineraries            []offerItinerary `json:"itineraries"`
	Price                  offerPrice       `json:"price"`
	ValidatingAirlineCodes []string         `json:"validatingAirlineCodes"`
}

type offerItinerary struct {
	Duration string         `json:"duration"`
	Segments []offerSegment `json:"segments"`
}

type offerSegment struct {
	Departure   segmentPoint `json:"departure"`
	Arrival     segmentPoint `json:"arrival"`
	CarrierCode string       `json:"carrierCode"`
	Number      string       `json:"number"`
}

type segmentPoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type offerPrice struct {
	Currency   string `json:"currency"`
	Total      string `json:"total"`
	GrandTotal string `json:"grandTotal"`
	Base       string `json:"base"`
}

type hotelListResponse struct {
	Data []hotelListing `json:"data"`
}

type hotelListing struct {
	HotelID   string `json:"hotelId"`
	Name      string `json:"name"`
	ChainCode string `json:"chainCode"`
	IataCode  string `json:"iataCode"`
	Rating    int    `json:"rating"`
	GeoCode   struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geoCode"`
	Address struct {
		CountryCode string   `json:"countryCode"`
		Lines       []string `json:"lines"`
		CityName    string   `json:"cityName"`
	} `json:"address"`
}

type hotelOffersResponse struct {
	Data []hotelOffers `json:"data"`
}

type hotelOffers struct {
	Available bool `json:"available"`
	Hotel     struct {
		HotelID   string  `json:"hotelId"`
		Name      string  `json:"name"`
		CityCode  string  `json:"cityCode"`
		ChainCode string  `json:"chainCode"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"hotel"`
	Offers []struct {
		ID           string     `json:"id"`
		CheckInDate  string     `json:"checkInDate"`
		CheckOutDate string     `json:"checkOutDate"`
		Price        offerPrice `json:"price"`
		Room         struct {
			Type string `json:"type"`
		} `json:"room"`
	} `json:"offers"`
}
