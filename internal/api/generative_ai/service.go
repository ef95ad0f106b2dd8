// Package generativeAI wraps the Gemini API for structured itinerary output,
// plain text generation and speech synthesis.
package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-nomad-planner/internal/types"
	"github.com/FACorreiaa/go-nomad-planner/internal/upstream"
)

const (
	providerName       = "gemini"
	DefaultModel       = "gemini-2.0-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
)

type Options struct {
	APIKey      string
	Model       string
	SpeechModel string
	// BaseURL overrides the Gemini endpoint, used by tests.
	BaseURL    string
	HTTPClient *http.Client
	Policy     upstream.Policy
}

type AIClient struct {
	client      *genai.Client
	model       string
	speechModel string
	policy      upstream.Policy
	logger      *slog.Logger
}

func NewAIClient(ctx context.Context, opts Options, logger *slog.Logger) (*AIClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.SpeechModel == "" {
		opts.SpeechModel = DefaultSpeechModel
	}
	if opts.Policy == (upstream.Policy{}) {
		opts.Policy = upstream.DefaultPolicy()
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &AIClient{
		client:      client,
		model:       opts.Model,
		speechModel: opts.SpeechModel,
		policy:      opts.Policy,
		logger:      logger.With(slog.String("provider", providerName)),
	}, nil
}

// StructuredRequest is one JSON-constrained completion. History is replayed
// before Prompt as prior conversation.
type StructuredRequest struct {
	SystemInstruction string
	History           []types.ConversationTurn
	Prompt            string
	Schema            *genai.Schema
	Temperature       float32
}

// GenerateStructured asks the model for JSON conforming to req.Schema and
// returns the raw text with any markdown fences removed. The caller validates it.
func (ai *AIClient) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateStructured", trace.WithAttributes(
		attribute.String("model", ai.model),
		attribute.Int("history.turns", len(req.History)),
		attribute.Int("prompt.length", len(req.Prompt)),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr[float32](req.Temperature)
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		contents = append(contents, textContent(roleFor(turn.Role), turn.Text))
	}
	contents = append(contents, textContent("user", req.Prompt))

	text, err := ai.generate(ctx, ai.model, contents, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "")
	return CleanJSONResponse(text), nil
}

// GenerateText returns a free-form completion for prompt.
func (ai *AIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateText", trace.WithAttributes(
		attribute.String("model", ai.model),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.7)}
	text, err := ai.generate(ctx, ai.model, []*genai.Content{textContent("user", prompt)}, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		err = fmt.Errorf("%w: model returned an empty response", types.ErrUpstreamUnavailable)
		span.RecordError(err)
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return text, nil
}

func (ai *AIClient) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	var text string
	err := upstream.Do(ctx, providerName, ai.policy, func(ctx context.Context) error {
		result, err := ai.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return classify(err)
		}
		text = result.Text()
		return nil
	})
	if err != nil {
		ai.logger.ErrorContext(ctx, "Gemini request failed", slog.String("model", model), slog.Any("error", err))
		return "", err
	}
	return text, nil
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}

func roleFor(r types.MessageRole) string {
	if r == types.RoleAssistant {
		return "model"
	}
	return "user"
}

// classify maps Gemini API failures onto the taxonomy. The SDK reports the HTTP
// code and RPC status in the error text.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return upstream.Classify(err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"), strings.Contains(msg, "Error 429"):
		return fmt.Errorf("%w: %v", types.ErrUpstreamRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
	}
}

// CleanJSONResponse strips markdown code fences and any prose surrounding the
// outermost JSON object.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSpace(strings.TrimSuffix(response, "```"))

	first := strings.Index(response, "{")
	if first == -1 {
		return response
	}
	last := strings.LastIndex(response, "}")
	if last <= first {
		return response
	}
	return response[first : last+1]
}
