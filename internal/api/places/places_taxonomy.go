package places

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// DefaultFilters is used when the caller gives no preference.
var DefaultFilters = []string{"culture", "adventure", "food"}

// placeTypes are the provider categories accepted directly as filters.
var placeTypes = map[string][]string{
	"landmark":           {"tourist_attraction"},
	"tourist_attraction": {"tourist_attraction"},
	"museum":             {"museum"},
	"art_gallery":        {"art_gallery"},
	"restaurant":         {"restaurant"},
	"cafe":               {"cafe"},
	"bar":                {"bar"},
	"park":               {"park"},
	"zoo":                {"zoo"},
	"aquarium":           {"aquarium"},
	"amusement_park":     {"amusement_park"},
	"shopping_mall":      {"shopping_mall"},
	"night_club":         {"night_club"},
	"spa":                {"spa"},
}

// preferenceAliases expand traveller preferences into provider categories,
// most relevant first.
var preferenceAliases = map[string][]string{
	"culture":    {"museum", "art_gallery", "library", "tourist_attraction"},
	"relaxation": {"spa", "beauty_salon", "park"},
	"adventure":  {"amusement_park", "tourist_attraction", "natural_feature"},
	"food":       {"restaurant", "cafe", "bakery", "bar"},
	"nature":     {"park", "natural_feature", "campground"},
	"nightlife":  {"night_club", "bar", "casino"},
	"luxury":     {"spa", "jewelry_store", "shopping_mall"},
	"budget":     {"restaurant", "tourist_attraction", "park"},
	"family":     {"amusement_park", "aquarium", "zoo", "museum"},
	"shopping":   {"shopping_mall", "department_store", "clothing_store"},
	"beach":      {"beach"},
	"mountain":   {"natural_feature", "campground"},
}

// textOnlyKinds have no provider type; they are searched by query text alone.
var textOnlyKinds = map[string]bool{"beach": true}

// Category is a resolved filter: the caller's name and the provider types it
// searches.
type Category struct {
	Name       string
	PlaceTypes []string
}

// ResolveFilters validates filters and expands them. Duplicates are dropped.
// Unknown filters fail with ErrInvalidQuery.
func ResolveFilters(filters []string) ([]Category, error) {
	if len(filters) == 0 {
		filters = DefaultFilters
	}
	seen := make(map[string]bool, len(filters))
	out := make([]Category, 0, len(filters))
	var unknown []string
	for _, f := range filters {
		name := normalizeFilter(f)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		kinds, ok := preferenceAliases[name]
		if !ok {
			kinds, ok = placeTypes[name]
		}
		if !ok {
			unknown = append(unknown, f)
			continue
		}
		out = append(out, Category{Name: name, PlaceTypes: kinds})
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unrecognized category filter(s): %s", types.ErrInvalidQuery, strings.Join(unknown, ", "))
	}
	if len(out) == 0 {
		return ResolveFilters(DefaultFilters)
	}
	return out, nil
}

func normalizeFilter(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	return strings.Join(strings.FieldsFunc(f, func(r rune) bool { return r == ' ' || r == '-' || r == '_' }), "_")
}
