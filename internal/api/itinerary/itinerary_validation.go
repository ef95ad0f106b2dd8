package itinerary

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

const clockLayout = "15:04"

// Proposal is a parsed and validated model response.
type Proposal struct {
	Reply              string
	Summary            string
	SelectedFlightID   string
	SelectedHotelID    string
	EstimatedTotalCost float64
	Days               []types.DayPlan
}

type modelResponse struct {
	Reply              string     `json:"reply"`
	Summary            string     `json:"summary"`
	SelectedFlightID   string     `json:"selected_flight_id"`
	SelectedHotelID    string     `json:"selected_hotel_id"`
	EstimatedTotalCost float64    `json:"estimated_total_cost"`
	Days               []modelDay `json:"days"`
}

type modelDay struct {
	Day        int              `json:"day"`
	Date       string           `json:"date"`
	Theme      string           `json:"theme"`
	Activities []types.Activity `json:"activities"`
}

// ParseProposal decodes raw model output and checks it against q. It returns the
// list of violations found; a nil Proposal is returned only when raw cannot be
// decoded at all.
func ParseProposal(raw string, q types.TravelQuery, withReply bool) (*Proposal, []string) {
	var resp modelResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []string{fmt.Sprintf("response is not valid JSON for the schema: %v", err)}
	}

	var violations []string
	if withReply && strings.TrimSpace(resp.Reply) == "" {
		violations = append(violations, "reply is missing")
	}
	if resp.EstimatedTotalCost < 0 {
		violations = append(violations, "estimated_total_cost must not be negative")
	}

	days := make([]types.DayPlan, 0, len(resp.Days))
	for i, d := range resp.Days {
		date, err := civil.ParseDate(strings.TrimSpace(d.Date))
		if err != nil {
			violations = append(violations, fmt.Sprintf("day %d has an invalid date %q, expected YYYY-MM-DD", i+1, d.Date))
			continue
		}
		days = append(days, types.DayPlan{
			Day:        d.Day,
			Date:       date,
			Theme:      strings.TrimSpace(d.Theme),
			Activities: slices.Clone(d.Activities),
		})
	}
	if len(violations) == 0 {
		violations = ValidateCoverage(days, q)
	}

	p := &Proposal{
		Reply:              strings.TrimSpace(resp.Reply),
		Summary:            strings.TrimSpace(resp.Summary),
		SelectedFlightID:   strings.TrimSpace(resp.SelectedFlightID),
		SelectedHotelID:    strings.TrimSpace(resp.SelectedHotelID),
		EstimatedTotalCost: resp.EstimatedTotalCost,
		Days:               days,
	}
	return p, violations
}

// ValidateCoverage checks that days cover q's date range exactly, one plan per
// date in order, each with at least one activity and no overlapping activities.
// Activities are sorted by start time and days renumbered in place.
func ValidateCoverage(days []types.DayPlan, q types.TravelQuery) []string {
	var violations []string
	want := q.Dates()
	if len(days) != len(want) {
		violations = append(violations, fmt.Sprintf("expected %d day plans covering %s to %s, got %d",
			len(want), q.StartDate, q.EndDate, len(days)))
	}

	for i := range days {
		d := &days[i]
		if i < len(want) && d.Date != want[i] {
			violations = append(violations, fmt.Sprintf("day %d must be dated %s, got %s", i+1, want[i], d.Date))
		}
		d.Day = i + 1
		violations = append(violations, validateActivities(d)...)
	}
	return violations
}

func validateActivities(d *types.DayPlan) []string {
	if len(d.Activities) == 0 {
		return []string{fmt.Sprintf("day %d (%s) has no activities", d.Day, d.Date)}
	}

	type span struct{ start, end time.Time }
	var violations []string
	spans := make([]span, len(d.Activities))
	valid := true
	for i, a := range d.Activities {
		start, errS := time.Parse(clockLayout, strings.TrimSpace(a.StartTime))
		end, errE := time.Parse(clockLayout, strings.TrimSpace(a.EndTime))
		switch {
		case errS != nil || errE != nil:
			violations = append(violations, fmt.Sprintf("day %d activity %q must use HH:MM times, got %q-%q", d.Day, a.Title, a.StartTime, a.EndTime))
			valid = false
		case !start.Before(end):
			violations = append(violations, fmt.Sprintf("day %d activity %q ends at %s, not after its start %s", d.Day, a.Title, a.EndTime, a.StartTime))
			valid = false
		}
		if strings.TrimSpace(a.Title) == "" {
			violations = append(violations, fmt.Sprintf("day %d activity %d has no title", d.Day, i+1))
		}
		if a.EstimatedCost < 0 {
			violations = append(violations, fmt.Sprintf("day %d activity %q has a negative cost", d.Day, a.Title))
		}
		spans[i] = span{start, end}
	}
	if !valid {
		return violations
	}

	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return spans[a].start.Compare(spans[b].start) })

	sorted := make([]types.Activity, len(order))
	for i, idx := range order {
		sorted[i] = d.Activities[idx]
		sorted[i].StartTime = spans[idx].start.Format(clockLayout)
		sorted[i].EndTime = spans[idx].end.Format(clockLayout)
		if i > 0 && spans[idx].start.Before(spans[order[i-1]].end) {
			violations = append(violations, fmt.Sprintf("day %d activities %q and %q overlap", d.Day, sorted[i-1].Title, sorted[i].Title))
		}
	}
	d.Activities = sorted
	return violations
}
