// Package audioGuide narrates a point of interest: an LLM writes a short
// tour-guide script and the speech model reads it out.
package audioGuide

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

const defaultDescription = "a notable attraction in the area"

type Request struct {
	Name        string `json:"poi_name"`
	Category    string `json:"poi_category,omitempty"`
	Description string `json:"poi_description,omitempty"`
	Locale      string `json:"locale,omitempty"`
	Voice       string `json:"voice,omitempty"`
}

// Guide is a narrated script. Audio is a complete WAV file.
type Guide struct {
	Text  string
	Voice generativeAI.Voice
	Audio []byte
}

type LanguageModelProvider interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type SpeechProvider interface {
	SynthesizeSpeech(ctx context.Context, text string, voice generativeAI.Voice) (*generativeAI.Audio, error)
}

type Service interface {
	Script(ctx context.Context, req Request) (string, error)
	Narrate(ctx context.Context, req Request) (*Guide, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	llm    LanguageModelProvider
	speech SpeechProvider
	logger *slog.Logger
}

func NewServiceImpl(llm LanguageModelProvider, speech SpeechProvider, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{llm: llm, speech: speech, logger: logger}
}

// Script writes the narration for req without synthesizing it. The script is
// written in the language of req.Locale.
func (s *ServiceImpl) Script(ctx context.Context, req Request) (string, error) {
	voice, err := generativeAI.ResolveVoice(generativeAI.Voice{Locale: req.Locale, Name: req.Voice})
	if err != nil {
		return "", err
	}
	return s.script(ctx, req, voice)
}

func (s *ServiceImpl) script(ctx context.Context, req Request, voice generativeAI.Voice) (string, error) {
	ctx, span := otel.Tracer("AudioGuideService").Start(ctx, "Script", trace.WithAttributes(
		attribute.String("poi.name", req.Name),
		attribute.String("locale", voice.Locale),
	))
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		err := fmt.Errorf("%w: poi_name is required", types.ErrInvalidQuery)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return "", err
	}

	text, err := s.llm.GenerateText(ctx, ScriptPrompt(req, voice.Locale))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to write audio guide script", slog.String("poi", req.Name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "script generation failed")
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return strings.TrimSpace(text), nil
}

// Narrate writes the script and synthesizes it. An unsupported locale or voice
// fails before the script is generated.
func (s *ServiceImpl) Narrate(ctx context.Context, req Request) (*Guide, error) {
	ctx, span := otel.Tracer("AudioGuideService").Start(ctx, "Narrate", trace.WithAttributes(
		attribute.String("poi.name", req.Name),
		attribute.String("locale", req.Locale),
	))
	defer span.End()

	voice, err := generativeAI.ResolveVoice(generativeAI.Voice{Locale: req.Locale, Name: req.Voice})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported voice")
		return nil, err
	}

	text, err := s.script(ctx, req, voice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "script generation failed")
		return nil, err
	}

	audio, err := s.speech.SynthesizeSpeech(ctx, text, voice)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to synthesize audio guide", slog.String("poi", req.Name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech synthesis failed")
		return nil, err
	}

	wav, err := ToWAV(audio)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected audio format")
		return nil, err
	}

	s.logger.InfoContext(ctx, "Audio guide generated",
		slog.String("poi", req.Name),
		slog.String("voice", voice.Name),
		slog.Int("bytes", len(wav)))
	span.SetStatus(codes.Ok, "")
	return &Guide{Text: text, Voice: voice, Audio: wav}, nil
}

// ScriptPrompt is the instruction sent to the model for one point of interest,
// asking for a script in the language of locale.
func ScriptPrompt(req Request, locale string) string {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultDescription
	}
	category := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Category), "_", " "))

	var b strings.Builder
	fmt.Fprintf(&b, "You are a tour guide creating an audio experience for a visitor who is currently at %q.", strings.TrimSpace(req.Name))
	if category != "" {
		fmt.Fprintf(&b, " It is a %s", category)
		b.WriteString(" and is described as ")
	} else {
		b.WriteString(" It is described as ")
	}
	fmt.Fprintf(&b, "%q.\n", description)
	b.WriteString("Write a natural-sounding voiceover script of under 100 words that makes the listener feel they are experiencing something remarkable and encourages them to explore further. ")
	b.WriteString("Use plain text only, with no bracketed annotations, stage directions or sound cues. Open with a line that evokes a sense of wonder.\n")
	fmt.Fprintf(&b, "Write the script in %s.", languageName(locale))
	return b.String()
}

// languageName is the English name of locale's base language, e.g. "Japanese" for ja-JP.
func languageName(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(generativeAI.DefaultLocale)
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return tag.String()
}
