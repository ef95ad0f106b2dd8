package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// RetryAfterSeconds is advertised to clients when a provider throttles us.
const RetryAfterSeconds = "5"

// ErrorResponse writes the JSON error envelope with the request id.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, errorBody{
		Success:   false,
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSONResponse encodes data and writes it with status.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// WriteBinaryResponse writes body with contentType, optionally as a download.
func WriteBinaryResponse(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write binary response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// DecodeJSONBody decodes a single JSON value from the request body, rejecting
// unknown fields and bodies over 1MB. Errors wrap types.ErrInvalidQuery.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", types.ErrInvalidQuery, describeDecodeError(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must only contain a single JSON value", types.ErrInvalidQuery)
	}
	return nil
}

func describeDecodeError(err error) string {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		return fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "body contains badly-formed JSON"
	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Sprintf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
		}
		return fmt.Sprintf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
	case errors.Is(err, io.EOF):
		return "body must not be empty"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return fmt.Sprintf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	case errors.As(err, &maxBytesError):
		return fmt.Sprintf("body must not be larger than %d bytes", maxBytesError.Limit)
	default:
		return err.Error()
	}
}

// StatusForError maps the error taxonomy onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidQuery), errors.Is(err, types.ErrUnsupportedLocale):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUpstreamRateLimited), errors.Is(err, types.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrSchemaViolation):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFromErr writes err with the status from StatusForError and sets
// Retry-After when a provider is throttling.
func ErrorFromErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, types.ErrUpstreamRateLimited) {
		w.Header().Set("Retry-After", RetryAfterSeconds)
	}
	ErrorResponse(w, r, StatusForError(err), PublicMessage(err))
}

// PublicMessage is the client-facing text for err. Client errors keep their
// detail; upstream and internal failures get a fixed message.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrUpstreamRateLimited):
		return "upstream provider is rate limiting requests, retry later"
	case errors.Is(err, types.ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "upstream provider is unavailable"
	case errors.Is(err, types.ErrSchemaViolation):
		return "could not produce a valid itinerary"
	case StatusForError(err) == http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}
