package itinerary

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/api"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GenerateItinerary handles POST /api/v1/itinerary/generate.
func (h *Handler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GenerateItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itinerary/generate"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GenerateItinerary"))
	l.DebugContext(ctx, "Generate itinerary handler invoked")

	var q types.TravelQuery
	if err := api.DecodeJSONBody(w, r, &q); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid body")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetAttributes(
		attribute.String("origin", q.Origin),
		attribute.String("destination", q.Destination),
	)

	it, err := h.service.Generate(ctx, q)
	if err != nil {
		l.ErrorContext(ctx, "Failed to generate itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		api.ErrorFromErr(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// UpdateItinerary handles PATCH /api/v1/itinerary/{id}. The body carries the
// current itinerary, whose id must match the path, and the new selection.
func (h *Handler) UpdateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "UpdateItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itinerary/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateItinerary"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid itinerary id", slog.String("id", chi.URLParam(r, "id")))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid itinerary id")
		return
	}

	var req UpdateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}
	if req.Itinerary != nil && req.Itinerary.ID != id {
		l.WarnContext(ctx, "Itinerary id does not match path", slog.String("path_id", id.String()))
		api.ErrorResponse(w, r, http.StatusBadRequest, "itinerary id does not match the path")
		return
	}

	it, err := h.service.Update(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		api.ErrorFromErr(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// ExportPDF handles POST /api/v1/itinerary/export/pdf.
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ExportPDF", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itinerary/export/pdf"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ExportPDF"))

	var it types.Itinerary
	if err := api.DecodeJSONBody(w, r, &it); err != nil {
		l.WarnContext(ctx, "Failed to decode itinerary", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}

	doc, err := h.service.ExportPDF(ctx, &it)
	if err != nil {
		l.ErrorContext(ctx, "Failed to export itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		api.ErrorFromErr(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteBinaryResponse(w, r, "application/pdf", "itinerary-"+it.ID.String()+".pdf", doc)
}
