package itinerary

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phpdave11/gofpdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// ExportPDF renders it as an A4 document. The itinerary must have day plans.
func (s *ServiceImpl) ExportPDF(ctx context.Context, it *types.Itinerary) ([]byte, error) {
	_, span := otel.Tracer("ItineraryService").Start(ctx, "ExportPDF", trace.WithAttributes(
		attribute.String("itinerary.id", it.ID.String()),
	))
	defer span.End()

	if len(it.Days) == 0 {
		err := fmt.Errorf("%w: itinerary has no day plans", types.ErrInvalidQuery)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty itinerary")
		return nil, err
	}

	out, err := renderPDF(it)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to render itinerary PDF", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("pdf.bytes", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func renderPDF(it *types.Itinerary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Trip to %s", it.Query.Destination), true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s to %s", it.Query.Origin, it.Query.Destination)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s - %s, %d traveler(s)", it.Query.StartDate, it.Query.EndDate, it.Query.Travelers), "", 1, "L", false, 0, "")
	if it.Summary != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 6, tr(it.Summary), "", "L", false)
	}

	section := func(title string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}

	if f := it.SelectedFlight; f != nil {
		section("Flight")
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s %s, %s to %s\nOut: %s - %s\nBack: %s - %s\nPrice: %.2f %s",
			f.Airline, f.FlightNumber, f.Origin, f.Destination,
			f.DepartureTime, f.ArrivalTime, f.ReturnDepartureTime, f.ReturnArrivalTime,
			f.Price, f.Currency)), "", "L", false)
	}
	if h := it.SelectedHotel; h != nil {
		section("Hotel")
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s\n%s\nCheck-in %s, check-out %s\n%.2f %s per night, %.2f %s total",
			h.Name, h.Address, h.CheckIn, h.CheckOut, h.PricePerNight, h.Currency, h.TotalPrice, h.Currency)), "", "L", false)
	}

	for _, d := range it.Days {
		title := fmt.Sprintf("Day %d - %s", d.Day, d.Date)
		if d.Theme != "" {
			title += ": " + d.Theme
		}
		section(title)
		for _, a := range d.Activities {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(25, 6, a.StartTime+"-"+a.EndTime, "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(a.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			var detail []string
			if a.Location != "" {
				detail = append(detail, a.Location)
			}
			if a.Description != "" {
				detail = append(detail, a.Description)
			}
			if a.EstimatedCost > 0 {
				detail = append(detail, fmt.Sprintf("approx. %.2f %s", a.EstimatedCost, it.Currency))
			}
			if len(detail) > 0 {
				pdf.SetX(pdf.GetX() + 25)
				pdf.MultiCell(0, 5, tr(strings.Join(detail, " | ")), "", "L", false)
			}
		}
	}

	section("Estimated total")
	pdf.CellFormat(0, 6, fmt.Sprintf("%.2f %s", it.EstimatedTotalCost, it.Currency), "", 1, "L", false, 0, "")
	if len(it.Warnings) > 0 {
		pdf.SetFont("Helvetica", "I", 9)
		for _, w := range it.Warnings {
			pdf.MultiCell(0, 5, tr("Note: "+w), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
