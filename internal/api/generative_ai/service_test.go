package generativeAI

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

type capturedRequest struct {
	Path string
	Body map[string]any
}

func newTestClient(t *testing.T, h func(w http.ResponseWriter, req capturedRequest)) *AIClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		h(w, capturedRequest{Path: r.URL.Path, Body: body})
	}))
	t.Cleanup(srv.Close)

	c, err := NewAIClient(context.Background(), Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Policy:     upstream.Policy{Timeout: 2 * time.Second, Backoff: time.Millisecond, MaxRetries: 1},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func textResponse(text string) string {
	b, _ := json.Marshal(text)
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%s}]},"finishReason":"STOP"}]}`, b)
}

func TestGenerateStructured(t *testing.T) {
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		got = req
		_, _ = io.WriteString(w, textResponse("```json\n{\"summary\":\"ok\",\"days\":[]}\n```"))
	})

	out, err := c.GenerateStructured(context.Background(), StructuredRequest{
		SystemInstruction: "plan trips",
		History: []types.ConversationTurn{
			{Role: types.RoleUser, Text: "hi"},
			{Role: types.RoleAssistant, Text: "hello"},
		},
		Prompt: "plan Tokyo",
		Schema: ItinerarySchema(false),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok","days":[]}`, out)

	assert.True(t, strings.HasSuffix(got.Path, "models/"+DefaultModel+":generateContent"), got.Path)
	contents, ok := got.Body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	gen, ok := got.Body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.NotNil(t, gen["responseSchema"])
	assert.NotNil(t, got.Body["systemInstruction"])
}

func TestGenerate_RateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := c.GenerateText(context.Background(), "write a script")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUpstreamRateLimited), "got %v", err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateText_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		_, _ = io.WriteString(w, textResponse("   "))
	})
	_, err := c.GenerateText(context.Background(), "write a script")
	assert.True(t, errors.Is(err, types.ErrUpstreamUnavailable))
}

func TestSynthesizeSpeech(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) {
		got = req
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":%q}}]}}]}`,
			base64.StdEncoding.EncodeToString(pcm))
	})

	audio, err := c.SynthesizeSpeech(context.Background(), "Welcome to Senso-ji.", Voice{Locale: "ja_JP"})
	require.NoError(t, err)
	assert.Equal(t, pcm, audio.Data)
	assert.Equal(t, "audio/L16;codec=pcm;rate=24000", audio.MIMEType)
	assert.True(t, strings.Contains(got.Path, DefaultSpeechModel), got.Path)
	assert.Contains(t, fmt.Sprint(got.Body["generationConfig"]), "Leda")
}

func TestSynthesizeSpeech_UnsupportedLocaleMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, req capturedRequest) { calls.Add(1) })

	_, err := c.SynthesizeSpeech(context.Background(), "hello", Voice{Locale: "xx-YY"})
	assert.True(t, errors.Is(err, types.ErrUnsupportedLocale))
	_, err = c.SynthesizeSpeech(context.Background(), "hello", Voice{Locale: "en-US", Name: "Robot"})
	assert.True(t, errors.Is(err, types.ErrUnsupportedLocale))
	assert.Equal(t, int32(0), calls.Load())
}

func TestResolveVoice(t *testing.T) {
	v, err := ResolveVoice(Voice{})
	require.NoError(t, err)
	assert.Equal(t, Voice{Locale: "en-US", Name: "Kore"}, v)

	v, err = ResolveVoice(Voice{Locale: "fr-FR", Name: "puck"})
	require.NoError(t, err)
	assert.Equal(t, "Puck", v.Name)

	_, err = ResolveVoice(Voice{Locale: "!!"})
	assert.True(t, errors.Is(err, types.ErrUnsupportedLocale))

	assert.Contains(t, SupportedLocales(), "ja-JP")
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSONResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, CleanJSONResponse(`Here you go: {"a":{"b":2}} enjoy`))
	assert.Equal(t, "no json", CleanJSONResponse(" no json "))
}

func TestItinerarySchema(t *testing.T) {
	plain := ItinerarySchema(false)
	assert.NotContains(t, plain.Properties, "reply")
	withReply := ItinerarySchema(true)
	assert.Contains(t, withReply.Properties, "reply")
	assert.Contains(t, withReply.Required, "reply")
	assert.Equal(t, []string{"summary", "days"}, plain.Required)
}
