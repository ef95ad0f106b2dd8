// Package places is the points-of-interest provider client backed by Google
// Places text search.
package places

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

const providerName = "google_places"

type Options struct {
	APIKey         string
	BaseURL        string
	Language       string
	MaxPerCategory int
	Policy         upstream.Policy
	HTTPClient     *http.Client
}

type Client struct {
	maps   *maps.Client
	opts   Options
	logger *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.MaxPerCategory <= 0 {
		opts.MaxPerCategory = 3
	}
	if opts.Policy == (upstream.Policy{}) {
		opts.Policy = upstream.DefaultPolicy()
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, maps.WithHTTPClient(opts.HTTPClient))
	}
	mc, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{
		maps:   mc,
		opts:   opts,
		logger: logger.With(slog.String("provider", providerName)),
	}, nil
}

// FindPointsOfInterest searches location once per category type until each
// filter has MaxPerCategory results. Results are de-duplicated by place id and
// keep the provider's relevance order.
func (c *Client) FindPointsOfInterest(ctx context.Context, location string, filters []string) (iter.Seq[types.PointOfInterest], error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "FindPointsOfInterest", trace.WithAttributes(
		attribute.String("location", location),
		attribute.StringSlice("filters", filters),
	))
	defer span.End()

	location = strings.TrimSpace(location)
	if location == "" {
		err := fmt.Errorf("%w: location is required", types.ErrInvalidQuery)
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing location")
		return nil, err
	}
	categories, err := ResolveFilters(filters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid filters")
		return nil, err
	}

	seen := make(map[string]bool)
	var found []types.PointOfInterest
	for _, cat := range categories {
		count := 0
		for _, kind := range cat.PlaceTypes {
			if count >= c.opts.MaxPerCategory {
				break
			}
			results, err := c.textSearch(ctx, location, kind)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "text search failed")
				return nil, err
			}
			if len(results) == 0 {
				c.logger.DebugContext(ctx, "No places found", slog.String("type", kind), slog.String("location", location))
			}
			for _, r := range results {
				if count >= c.opts.MaxPerCategory {
					break
				}
				if r.PlaceID != "" && seen[r.PlaceID] {
					continue
				}
				seen[r.PlaceID] = true
				found = append(found, mapPlace(r, cat.Name))
				count++
			}
		}
	}

	c.logger.InfoContext(ctx, "Points of interest found",
		slog.String("location", location),
		slog.Int("count", len(found)))
	span.SetAttributes(attribute.Int("results.count", len(found)))
	span.SetStatus(codes.Ok, "")

	return upstream.Sequence(found, func(p types.PointOfInterest) (types.PointOfInterest, bool) {
		return p, true
	}), nil
}

func (c *Client) textSearch(ctx context.Context, location, kind string) ([]maps.PlacesSearchResult, error) {
	var results []maps.PlacesSearchResult
	err := upstream.Do(ctx, providerName, c.opts.Policy, func(ctx context.Context) error {
		req := &maps.TextSearchRequest{
			Query:    strings.ReplaceAll(kind, "_", " ") + " in " + location,
			Language: c.opts.Language,
		}
		if !textOnlyKinds[kind] {
			req.Type = maps.PlaceType(kind)
		}
		resp, err := c.maps.TextSearch(ctx, req)
		if err != nil {
			return classify(err)
		}
		results = resp.Results
		return nil
	})
	return results, err
}

// classify maps the client library's status errors onto the taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return upstream.Classify(err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "OVER_QUERY_LIMIT"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %v", types.ErrUpstreamRateLimited, err)
	case strings.Contains(msg, "INVALID_REQUEST"), strings.Contains(msg, "NOT_FOUND"):
		return fmt.Errorf("%w: %v", types.ErrInvalidQuery, err)
	default:
		return fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
	}
}

func mapPlace(r maps.PlacesSearchResult, category string) types.PointOfInterest {
	p := types.PointOfInterest{
		ID:         r.PlaceID,
		Name:       r.Name,
		Category:   category,
		PlaceTypes: append([]string(nil), r.Types...),
		Rating:     float64(r.Rating),
		Address:    r.FormattedAddress,
		Location: types.GeoPoint{
			Lat: r.Geometry.Location.Lat,
			Lng: r.Geometry.Location.Lng,
		},
		Description: describe(r.Name, r.Types),
	}
	if r.PriceLevel > 0 && r.PriceLevel <= 4 {
		lvl := r.PriceLevel
		p.PriceLevel = &lvl
	}
	if len(r.Photos) > 0 {
		p.PhotoReference = r.Photos[0].PhotoReference
	}
	return p
}

// describe builds "<Name> is a <Type> and <Type>." from the first three place
// types. It returns "" when there are no types.
func describe(name string, placeTypes []string) string {
	if len(placeTypes) == 0 {
		return ""
	}
	if name == "" {
		name = "This place"
	}
	title := cases.Title(language.English)
	n := min(len(placeTypes), 3)
	readable := make([]string, 0, n)
	for _, t := range placeTypes[:n] {
		readable = append(readable, title.String(strings.ReplaceAll(t, "_", " ")))
	}
	return fmt.Sprintf("%s is a %s.", name, strings.Join(readable, " and "))
}
