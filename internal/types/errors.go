package types

import "errors"

// Error taxonomy shared by providers, orchestrator and handlers. Callers wrap these
// with fmt.Errorf("%w: ...") and match them with errors.Is.
var (
	ErrInvalidQuery        = errors.New("invalid query")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamRateLimited = errors.New("upstream rate limited")
	ErrSchemaViolation     = errors.New("schema violation")
	ErrUnsupportedLocale   = errors.New("unsupported locale")
)
