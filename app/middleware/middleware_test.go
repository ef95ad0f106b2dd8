package appMiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireJSON(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireJSON(ok)

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{name: "json", body: `{}`, contentType: "application/json", want: http.StatusNoContent},
		{name: "json with charset", body: `{}`, contentType: "application/json; charset=utf-8", want: http.StatusNoContent},
		{name: "form", body: "a=b", contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "missing type", body: `{}`, want: http.StatusUnsupportedMediaType},
		{name: "no body", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
