package audioGuide

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockSpeech struct {
	mock.Mock
}

func (m *MockSpeech) SynthesizeSpeech(ctx context.Context, text string, voice generativeAI.Voice) (*generativeAI.Audio, error) {
	args := m.Called(ctx, text, voice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generativeAI.Audio), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScriptPrompt(t *testing.T) {
	p := ScriptPrompt(Request{Name: " Senso-ji ", Category: "Buddhist_Temple"}, "en-US")
	assert.Contains(t, p, `"Senso-ji"`)
	assert.Contains(t, p, "It is a buddhist temple")
	assert.Contains(t, p, `"a notable attraction in the area"`)
	assert.Contains(t, p, "under 100 words")
	assert.Contains(t, p, "Write the script in English.")

	p = ScriptPrompt(Request{Name: "Ueno Park", Description: "a large public park"}, "en-GB")
	assert.Contains(t, p, `It is described as "a large public park"`)
	assert.Contains(t, p, "Write the script in English.")
}

func TestScriptPrompt_Language(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{locale: "ja-JP", want: "Japanese"},
		{locale: "fr-FR", want: "French"},
		{locale: "pt-BR", want: "Portuguese"},
		{locale: "not a locale", want: "English"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			p := ScriptPrompt(Request{Name: "Senso-ji"}, tt.locale)
			assert.Contains(t, p, "Write the script in "+tt.want+".")
		})
	}
}

func TestNarrate(t *testing.T) {
	llm := new(MockLanguageModel)
	speech := new(MockSpeech)
	llm.On("GenerateText", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Senso-ji") && strings.Contains(p, "Write the script in Japanese.")
	})).Return("  Welcome to Senso-ji.  ", nil).Once()
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	speech.On("SynthesizeSpeech", mock.Anything, "Welcome to Senso-ji.", generativeAI.Voice{Locale: "ja-JP", Name: "Leda"}).
		Return(&generativeAI.Audio{Data: pcm, MIMEType: "audio/L16;codec=pcm;rate=24000"}, nil).Once()

	guide, err := NewServiceImpl(llm, speech, testLogger()).Narrate(context.Background(), Request{Name: "Senso-ji", Locale: "ja-JP"})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to Senso-ji.", guide.Text)
	assert.Equal(t, "Leda", guide.Voice.Name)
	require.Len(t, guide.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(guide.Audio[0:4]))
	assert.Equal(t, "WAVE", string(guide.Audio[8:12]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(guide.Audio[24:28]))
	assert.Equal(t, pcm, guide.Audio[44:])
	llm.AssertExpectations(t)
	speech.AssertExpectations(t)
}

func TestNarrate_UnsupportedLocaleMakesNoCalls(t *testing.T) {
	llm := new(MockLanguageModel)
	speech := new(MockSpeech)

	_, err := NewServiceImpl(llm, speech, testLogger()).Narrate(context.Background(), Request{Name: "Senso-ji", Locale: "xx-ZZ"})
	assert.True(t, errors.Is(err, types.ErrUnsupportedLocale))
	llm.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
	speech.AssertNotCalled(t, "SynthesizeSpeech", mock.Anything, mock.Anything, mock.Anything)
}

func TestNarrate_UpstreamFailure(t *testing.T) {
	llm := new(MockLanguageModel)
	speech := new(MockSpeech)
	llm.On("GenerateText", mock.Anything, mock.Anything).Return("Hello.", nil)
	speech.On("SynthesizeSpeech", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("gemini: %w", types.ErrUpstreamRateLimited))

	_, err := NewServiceImpl(llm, speech, testLogger()).Narrate(context.Background(), Request{Name: "Senso-ji"})
	assert.True(t, errors.Is(err, types.ErrUpstreamRateLimited))
}

func TestScript_UsesLocale(t *testing.T) {
	llm := new(MockLanguageModel)
	llm.On("GenerateText", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Write the script in German.")
	})).Return("Willkommen.", nil).Once()

	text, err := NewServiceImpl(llm, new(MockSpeech), testLogger()).Script(context.Background(), Request{Name: "Reichstag", Locale: "de-DE"})
	require.NoError(t, err)
	assert.Equal(t, "Willkommen.", text)
	llm.AssertExpectations(t)

	_, err = NewServiceImpl(llm, new(MockSpeech), testLogger()).Script(context.Background(), Request{Name: "Reichstag", Locale: "xx-ZZ"})
	assert.True(t, errors.Is(err, types.ErrUnsupportedLocale))
}

func TestScript_RequiresName(t *testing.T) {
	llm := new(MockLanguageModel)
	_, err := NewServiceImpl(llm, new(MockSpeech), testLogger()).Script(context.Background(), Request{})
	assert.True(t, errors.Is(err, types.ErrInvalidQuery))
	llm.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
}

func TestToWAV(t *testing.T) {
	wav, err := ToWAV(&generativeAI.Audio{Data: []byte{0, 0}, MIMEType: "audio/pcm;rate=16000;channels=2"})
	require.NoError(t, err)
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(16000*4), binary.LittleEndian.Uint32(wav[28:32]))

	already := []byte("RIFF....WAVE")
	out, err := ToWAV(&generativeAI.Audio{Data: already, MIMEType: "audio/wav"})
	require.NoError(t, err)
	assert.Equal(t, already, out)

	out, err = ToWAV(&generativeAI.Audio{Data: []byte{9, 9}})
	require.NoError(t, err)
	assert.Equal(t, uint32(defaultSampleRate), binary.LittleEndian.Uint32(out[24:28]))

	_, err = ToWAV(&generativeAI.Audio{Data: []byte{1}, MIMEType: "audio/mpeg"})
	assert.True(t, errors.Is(err, types.ErrUpstreamUnavailable))

	_, err = ToWAV(nil)
	assert.Error(t, err)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) Script(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockService) Narrate(ctx context.Context, req Request) (*Guide, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Guide), args.Error(1)
}

func TestAudioGuideHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("Narrate", mock.Anything, Request{Name: "Senso-ji", Locale: "en-GB"}).
		Return(&Guide{Text: "Hi", Voice: generativeAI.Voice{Locale: "en-GB", Name: "Charon"}, Audio: []byte("RIFFdata")}, nil)
	svc.On("Narrate", mock.Anything, Request{Name: "Senso-ji", Locale: "tlh"}).
		Return(nil, fmt.Errorf("%w: no voice available for tlh", types.ErrUnsupportedLocale))
	h := NewHandler(svc, testLogger())

	rr := httptest.NewRecorder()
	h.AudioGuide(rr, httptest.NewRequest(http.MethodPost, "/api/v1/audio-guide", strings.NewReader(`{"poi_name":"Senso-ji","locale":"en-GB"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/wav", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Charon", rr.Header().Get("X-Audio-Guide-Voice"))
	assert.Equal(t, "RIFFdata", rr.Body.String())

	rr = httptest.NewRecorder()
	h.AudioGuide(rr, httptest.NewRequest(http.MethodPost, "/api/v1/audio-guide", strings.NewReader(`{"poi_name":"Senso-ji","locale":"tlh"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no voice available")

	rr = httptest.NewRecorder()
	h.AudioGuide(rr, httptest.NewRequest(http.MethodPost, "/api/v1/audio-guide", strings.NewReader(`{"poiName":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScriptHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("Script", mock.Anything, Request{Name: "Ueno Park"}).Return("Welcome to Ueno Park.", nil)
	h := NewHandler(svc, testLogger())

	rr := httptest.NewRecorder()
	h.Script(rr, httptest.NewRequest(http.MethodPost, "/api/v1/audio-guide/script", strings.NewReader(`{"poi_name":"Ueno Park"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"text":"Welcome to Ueno Park."}`, rr.Body.String())
}
