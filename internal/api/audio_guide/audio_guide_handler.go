package audioGuide

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/api"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type scriptResponse struct {
	Text string `json:"text"`
}

// AudioGuide handles POST /api/v1/audio-guide and streams back a WAV file.
func (h *Handler) AudioGuide(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AudioGuideHandler").Start(r.Context(), "AudioGuide", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/audio-guide"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AudioGuide"))

	var req Request
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode audio guide request", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}

	guide, err := h.service.Narrate(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Audio guide failed", slog.String("poi", req.Name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "audio guide failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	w.Header().Set("X-Audio-Guide-Voice", guide.Voice.Name)
	w.Header().Set("Content-Language", guide.Voice.Locale)
	api.WriteBinaryResponse(w, r, "audio/wav", "", guide.Audio)
}

// Script handles POST /api/v1/audio-guide/script.
func (h *Handler) Script(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AudioGuideHandler").Start(r.Context(), "Script", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/audio-guide/script"),
	))
	defer span.End()

	var req Request
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}

	text, err := h.service.Script(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "Audio guide script failed", slog.String("poi", req.Name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "script failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, scriptResponse{Text: text})
}
