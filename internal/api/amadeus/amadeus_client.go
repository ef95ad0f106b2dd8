// Package amadeus is the flight and hotel provider client backed by the Amadeus
// Self-Service REST API.
package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

const (
	providerName   = "amadeus"
	DefaultBaseURL = "https://test.api.amadeus.com"
	tokenPath      = "/v1/security/oauth2/token"
	maxBodyBytes   = 8 << 20
)

// cityOverrides short-circuits the locations lookup for common destinations.
var cityOverrides = map[string]string{
	"singapore":     "SIN",
	"tokyo":         "TYO",
	"paris":         "PAR",
	"london":        "LON",
	"new york":      "NYC",
	"bangkok":       "BKK",
	"dubai":         "DXB",
	"sydney":        "SYD",
	"san francisco": "SFO",
	"los angeles":   "LAX",
}

type Options struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	Currency          string
	MaxFlightResults  int
	MaxHotels         int
	HotelRadiusKM     int
	RequestsPerSecond float64
	Policy            upstream.Policy
	// HTTPClient is the transport used for both the token endpoint and API calls.
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Currency == "" {
		o.Currency = "SGD"
	}
	if o.MaxFlightResults <= 0 {
		o.MaxFlightResults = 5
	}
	if o.MaxHotels <= 0 {
		o.MaxHotels = 10
	}
	if o.HotelRadiusKM <= 0 {
		o.HotelRadiusKM = 20
	}
	if o.RequestsPerSecond <= 0 {
		// Self-Service test environment allows 10 TPS.
		o.RequestsPerSecond = 10
	}
	if o.Policy == (upstream.Policy{}) {
		o.Policy = upstream.DefaultPolicy()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return o
}

// Client implements flight search, hotel search and city code resolution.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	cities  *cache.Cache
	logger  *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	opts = opts.withDefaults()
	creds := &clientcredentials.Config{
		ClientID:     opts.APIKey,
		ClientSecret: opts.APISecret,
		TokenURL:     opts.BaseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)

	return &Client{
		opts:    opts,
		http:    creds.Client(tokenCtx),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)+1),
		cities:  cache.New(24*time.Hour, time.Hour),
		logger:  logger.With(slog.String("provider", providerName)),
	}
}

// ResolveCityCode maps a city name or IATA code to an IATA city code.
func (c *Client) ResolveCityCode(ctx context.Context, city string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(city))
	if name == "" {
		return "", fmt.Errorf("%w: city is required", types.ErrInvalidQuery)
	}
	if code, ok := cityOverrides[name]; ok {
		return code, nil
	}
	if len(name) == 3 && isLetters(name) {
		return strings.ToUpper(name), nil
	}
	if code, ok := c.cities.Get(name); ok {
		return code.(string), nil
	}

	var resp locationsResponse
	params := url.Values{"keyword": {city}, "subType": {"CITY"}}
	if err := c.getJSON(ctx, "/v1/reference-data/locations", params, &resp); err != nil {
		return "", err
	}
	for _, loc := range resp.Data {
		if loc.IataCode != "" {
			c.cities.SetDefault(name, loc.IataCode)
			return loc.IataCode, nil
		}
	}
	return "", fmt.Errorf("%w: no city code found for %q", types.ErrInvalidQuery, city)
}

// SearchFlights returns round-trip offers in the provider's ranking order.
func (c *Client) SearchFlights(ctx context.Context, q types.TravelQuery) (iter.Seq[types.FlightOption], error) {
	ctx, span := otel.Tracer("AmadeusClient").Start(ctx, "SearchFlights", trace.WithAttributes(
		attribute.String("origin", q.Origin),
		attribute.String("destination", q.Destination),
	))
	defer span.End()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}
	origin, err := c.ResolveCityCode(ctx, q.Origin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	dest, err := c.ResolveCityCode(ctx, q.Destination)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	currency := c.currency(q)
	params := url.Values{
		"originLocationCode":      {origin},
		"destinationLocationCode": {dest},
		"departureDate":           {q.StartDate.String()},
		"returnDate":              {q.EndDate.String()},
		"adults":                  {strconv.Itoa(q.Travelers)},
		"max":                     {strconv.Itoa(c.opts.MaxFlightResults)},
		"currencyCode":            {currency},
	}
	var resp flightOffersResponse
	if err := c.getJSON(ctx, "/v2/shopping/flight-offers", params, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flight offers failed")
		return nil, err
	}

	c.logger.InfoContext(ctx, "Flight offers received",
		slog.String("origin", origin),
		slog.String("destination", dest),
		slog.Int("count", len(resp.Data)))
	span.SetAttributes(attribute.Int("offers.count", len(resp.Data)))
	span.SetStatus(codes.Ok, "")

	return upstream.Sequence(resp.Data, func(o flightOffer) (types.FlightOption, bool) {
		f, err := mapFlightOffer(o, q, currency)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping flight offer", slog.String("offer_id", o.ID), slog.Any("error", err))
			return types.FlightOption{}, false
		}
		return f, true
	}), nil
}

// SearchHotels lists hotels in the destination city and prices the first
// MaxHotels of them for the query's stay. Offers keep the provider's order.
func (c *Client) SearchHotels(ctx context.Context, q types.TravelQuery) (iter.Seq[types.HotelOption], error) {
	ctx, span := otel.Tracer("AmadeusClient").Start(ctx, "SearchHotels", trace.WithAttributes(
		attribute.String("destination", q.Destination),
	))
	defer span.End()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}
	cityCode, err := c.ResolveCityCode(ctx, q.Destination)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var listing hotelListResponse
	listParams := url.Values{
		"cityCode":    {cityCode},
		"radius":      {strconv.Itoa(c.opts.HotelRadiusKM)},
		"radiusUnit":  {"KM"},
		"hotelSource": {"ALL"},
	}
	if err := c.getJSON(ctx, "/v1/reference-data/locations/hotels/by-city", listParams, &listing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hotel listing failed")
		return nil, err
	}
	if len(listing.Data) == 0 {
		span.SetStatus(codes.Ok, "no hotels")
		return upstream.Sequence([]hotelOffers(nil), func(hotelOffers) (types.HotelOption, bool) {
			return types.HotelOption{}, false
		}), nil
	}

	listed := listing.Data
	if len(listed) > c.opts.MaxHotels {
		listed = listed[:c.opts.MaxHotels]
	}
	byID := make(map[string]hotelListing, len(listed))
	ids := make([]string, 0, len(listed))
	for _, h := range listed {
		byID[h.HotelID] = h
		ids = append(ids, h.HotelID)
	}

	currency := c.currency(q)
	offerParams := url.Values{
		"hotelIds":     {strings.Join(ids, ",")},
		"adults":       {strconv.Itoa(q.Travelers)},
		"checkInDate":  {q.StartDate.String()},
		"checkOutDate": {q.CheckOut().String()},
		"currency":     {currency},
		"roomQuantity": {"1"},
	}
	var offers hotelOffersResponse
	if err := c.getJSON(ctx, "/v3/shopping/hotel-offers", offerParams, &offers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hotel offers failed")
		return nil, err
	}

	c.logger.InfoContext(ctx, "Hotel offers received",
		slog.String("city_code", cityCode),
		slog.Int("listed", len(listing.Data)),
		slog.Int("priced", len(offers.Data)))
	span.SetAttributes(attribute.Int("offers.count", len(offers.Data)))
	span.SetStatus(codes.Ok, "")

	nights := q.Nights()
	return upstream.Sequence(offers.Data, func(o hotelOffers) (types.HotelOption, bool) {
		h, err := mapHotelOffer(o, byID[o.Hotel.HotelID], q, nights, cityCode)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping hotel offer", slog.String("hotel_id", o.Hotel.HotelID), slog.Any("error", err))
			return types.HotelOption{}, false
		}
		return h, true
	}), nil
}

func (c *Client) currency(q types.TravelQuery) string {
	if q.Currency != "" {
		return q.Currency
	}
	return c.opts.Currency
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	return upstream.Do(ctx, providerName, c.opts.Policy, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("%w: building request: %v", types.ErrInvalidQuery, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return transportError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", types.ErrUpstreamUnavailable, path, err)
		}
		if err := upstream.FromStatus(providerName, resp.StatusCode, body); err != nil {
			return err
		}
		if err := json.Unmarshal(body, dst); err != nil {
			return fmt.Errorf("%w: decoding %s: %v", types.ErrUpstreamUnavailable, path, err)
		}
		return nil
	})
}

// transportError unwraps token endpoint failures so that a throttled or failing
// token request is classified by its status code.
func transportError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		if re.Response.StatusCode == http.StatusUnauthorized || re.Response.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: amadeus rejected credentials: %v", types.ErrUpstreamUnavailable, err)
		}
		return upstream.FromStatus(providerName+" token", re.Response.StatusCode, re.Body)
	}
	return upstream.Classify(err)
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
