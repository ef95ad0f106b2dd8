package generativeAI

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

const DefaultLocale = "en-US"

// Voice selects the spoken language and, optionally, a prebuilt voice name.
type Voice struct {
	Locale string `json:"locale,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Audio is synthesized speech as returned by the model. For Gemini TTS this is
// raw 16-bit PCM, MIMEType "audio/L16;codec=pcm;rate=24000".
type Audio struct {
	Data     []byte
	MIMEType string
}

// localeVoices lists the locales offered for audio guides and their default voice.
var localeVoices = map[string]string{
	"en-US": "Kore",
	"en-GB": "Charon",
	"en-AU": "Puck",
	"en-IN": "Aoede",
	"ja-JP": "Leda",
	"ko-KR": "Leda",
	"zh-CN": "Aoede",
	"fr-FR": "Orus",
	"de-DE": "Fenrir",
	"es-ES": "Zephyr",
	"it-IT": "Orus",
	"pt-BR": "Zephyr",
	"hi-IN": "Aoede",
	"id-ID": "Puck",
	"th-TH": "Kore",
}

var prebuiltVoices = []string{"Aoede", "Charon", "Fenrir", "Kore", "Leda", "Orus", "Puck", "Zephyr"}

// ResolveVoice fills defaults and checks v against the supported table.
func ResolveVoice(v Voice) (Voice, error) {
	locale := strings.TrimSpace(v.Locale)
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Voice{}, fmt.Errorf("%w: %q is not a valid locale", types.ErrUnsupportedLocale, v.Locale)
	}
	locale = tag.String()
	defaultVoice, ok := localeVoices[locale]
	if !ok {
		return Voice{}, fmt.Errorf("%w: no voice available for %s", types.ErrUnsupportedLocale, locale)
	}

	name := strings.TrimSpace(v.Name)
	if name == "" {
		return Voice{Locale: locale, Name: defaultVoice}, nil
	}
	idx := slices.IndexFunc(prebuiltVoices, func(p string) bool { return strings.EqualFold(p, name) })
	if idx < 0 {
		return Voice{}, fmt.Errorf("%w: voice %q is not available", types.ErrUnsupportedLocale, v.Name)
	}
	return Voice{Locale: locale, Name: prebuiltVoices[idx]}, nil
}

// SupportedLocales returns the locales accepted by ResolveVoice, sorted.
func SupportedLocales() []string {
	out := make([]string, 0, len(localeVoices))
	for l := range localeVoices {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// SynthesizeSpeech renders text with the speech model. The voice is checked
// before any network call.
func (ai *AIClient) SynthesizeSpeech(ctx context.Context, text string, voice Voice) (*Audio, error) {
	voice, err := ResolveVoice(voice)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text to synthesize is empty", types.ErrInvalidQuery)
	}

	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "SynthesizeSpeech", trace.WithAttributes(
		attribute.String("model", ai.speechModel),
		attribute.String("voice", voice.Name),
		attribute.String("locale", voice.Locale),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice.Name},
			},
		},
	}
	config.ResponseModalities = append(config.ResponseModalities, "AUDIO")
	contents := []*genai.Content{textContent("user", text)}

	var audio *Audio
	err = upstream.Do(ctx, providerName, ai.policy, func(ctx context.Context) error {
		result, err := ai.client.Models.GenerateContent(ctx, ai.speechModel, contents, config)
		if err != nil {
			return classify(err)
		}
		audio = collectAudio(result)
		if audio == nil {
			return fmt.Errorf("%w: speech model returned no audio", types.ErrUpstreamUnavailable)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech synthesis failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("audio.bytes", len(audio.Data)))
	span.SetStatus(codes.Ok, "")
	return audio, nil
}

func collectAudio(result *genai.GenerateContentResponse) *Audio {
	if result == nil {
		return nil
	}
	var audio *Audio
	for _, cand := range result.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if audio == nil {
				audio = &Audio{MIMEType: part.InlineData.MIMEType}
			}
			audio.Data = append(audio.Data, part.InlineData.Data...)
		}
		if audio != nil {
			return audio
		}
	}
	return nil
}
