package chat

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/api"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

const (
	wsReadLimit    = 1 << 20
	wsIdleTimeout  = 10 * time.Minute
	wsWriteTimeout = 10 * time.Second
)

type Handler struct {
	service  Service
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the chat handler. allowedOrigins restricts websocket
// upgrades; an empty list or "*" accepts any origin.
func NewHandler(service Service, logger *slog.Logger, allowedOrigins []string) *Handler {
	h := &Handler{service: service, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 ||
				slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Chat handles POST /api/v1/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Chat"))

	var req Request
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode chat request", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorFromErr(w, r, err)
		return
	}

	resp, err := h.service.Refine(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Chat refinement failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "refinement failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// wsFrame is written back for every request frame. Exactly one of Data or Error
// is set.
type wsFrame struct {
	Success bool      `json:"success"`
	Status  int       `json:"status"`
	Error   string    `json:"error,omitempty"`
	Data    *Response `json:"data,omitempty"`
}

// ChatWebSocket handles GET /api/v1/chat/ws. Each text frame carries a Request
// and is answered with one wsFrame; the connection stays open between turns.
func (h *Handler) ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ChatWebSocket"), slog.String("request_id", middleware.GetReqID(r.Context())))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.WarnContext(r.Context(), "WebSocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.WarnContext(r.Context(), "WebSocket read failed", slog.Any("error", err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			if !h.write(conn, errorFrame(types.ErrInvalidQuery, "only text frames are accepted")) {
				return
			}
			continue
		}

		var req Request
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			if !h.write(conn, errorFrame(types.ErrInvalidQuery, "frame is not a valid chat request: "+err.Error())) {
				return
			}
			continue
		}

		ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ChatWebSocketTurn")
		resp, err := h.service.Refine(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refinement failed")
			span.End()
			l.ErrorContext(ctx, "Chat refinement failed", slog.Any("error", err))
			if !h.write(conn, errorFrame(err, "")) {
				return
			}
			continue
		}
		span.SetStatus(codes.Ok, "")
		span.End()
		if !h.write(conn, wsFrame{Success: true, Status: http.StatusOK, Data: resp}) {
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, frame wsFrame) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Warn("WebSocket write failed", slog.Any("error", err))
		return false
	}
	return true
}

func errorFrame(err error, message string) wsFrame {
	if message == "" {
		message = api.PublicMessage(err)
	}
	return wsFrame{Success: false, Status: api.StatusForError(err), Error: message}
}
