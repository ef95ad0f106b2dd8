// Package upstream holds the call policy shared by every provider client: a
// per-attempt timeout, one retry with a fixed backoff for transient failures, and
// mapping of transport and HTTP failures onto the error taxonomy in types.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-nomad-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultBackoff = 300 * time.Millisecond
)

// Policy configures how one provider call is attempted.
type Policy struct {
	Timeout    time.Duration
	Backoff    time.Duration
	MaxRetries uint64
}

// DefaultPolicy allows a single retry.
func DefaultPolicy() Policy {
	return Policy{Timeout: DefaultTimeout, Backoff: DefaultBackoff, MaxRetries: 1}
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Do runs op under p. Each attempt gets its own timeout. Only errors classified as
// ErrUpstreamUnavailable or ErrUpstreamRateLimited are retried.
func Do(ctx context.Context, provider string, p Policy, op func(ctx context.Context) error) error {
	p = p.withDefaults()
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	start := time.Now()

	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), p.MaxRetries), ctx)
	err := backoff.Retry(func() error {
		attempt++
		m.UpstreamRequestsTotal.Add(ctx, 1, attrs)

		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		err := Classify(op(attemptCtx))
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		slog.WarnContext(ctx, "Upstream call failed",
			slog.String("provider", provider),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		return err
	}, b)

	m.UpstreamDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.UpstreamErrorsTotal.Add(ctx, 1, attrs)
		return Classify(err)
	}
	return nil
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, types.ErrUpstreamUnavailable) || errors.Is(err, types.ErrUpstreamRateLimited)
}

// Classify maps err onto the taxonomy. Errors that already carry a taxonomy
// sentinel are returned unchanged; timeouts and network failures become
// ErrUpstreamUnavailable.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		types.ErrInvalidQuery,
		types.ErrUpstreamUnavailable,
		types.ErrUpstreamRateLimited,
		types.ErrSchemaViolation,
		types.ErrUnsupportedLocale,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timed out: %v", types.ErrUpstreamUnavailable, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: canceled: %v", types.ErrUpstreamUnavailable, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
}

// FromStatus converts a non-2xx provider response into a taxonomy error. It
// returns nil for 2xx codes.
func FromStatus(provider string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 512 {
		detail = detail[:512]
	}
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned %d", types.ErrUpstreamRateLimited, provider, code)
	case code == http.StatusBadRequest, code == http.StatusNotFound, code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s rejected the request (%d): %s", types.ErrInvalidQuery, provider, code, detail)
	default:
		return fmt.Errorf("%w: %s returned %d: %s", types.ErrUpstreamUnavailable, provider, code, detail)
	}
}
