package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-nomad-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// CompletionRequest is the model call shared by generation and chat.
type CompletionRequest struct {
	SystemInstruction string
	History           []types.ConversationTurn
	Prompt            string
	Query             types.TravelQuery
	WithReply         bool
}

// Completion is the validated result plus the states visited.
type Completion struct {
	Proposal    *Proposal
	Repaired    bool
	Transitions []State
}

// Completer runs Prompting -> ValidatingOutput -> {Done | Repairing ->
// ValidatingOutput -> {Done | Failed}}. At most one repair prompt is sent.
type Completer struct {
	llm    LanguageModelProvider
	logger *slog.Logger
}

func NewCompleter(llm LanguageModelProvider, logger *slog.Logger) *Completer {
	return &Completer{llm: llm, logger: logger}
}

func (c *Completer) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Complete", trace.WithAttributes(
		attribute.Bool("with_reply", req.WithReply),
		attribute.Int("days", req.Query.NumDays()),
	))
	defer span.End()

	l := c.logger.With(slog.String("component", "completer"))
	structured := generativeAI.StructuredRequest{
		SystemInstruction: req.SystemInstruction,
		History:           slices.Clone(req.History),
		Prompt:            req.Prompt,
		Schema:            generativeAI.ItinerarySchema(req.WithReply),
		Temperature:       0.4,
	}

	out := &Completion{}
	state := StatePrompting
	var (
		raw        string
		proposal   *Proposal
		violations []string
		err        error
	)
	for {
		out.Transitions = append(out.Transitions, state)
		l.DebugContext(ctx, "Completion state", slog.String("state", state.String()))

		switch state {
		case StatePrompting:
			raw, err = c.llm.GenerateStructured(ctx, structured)
			if err != nil {
				out.Transitions = append(out.Transitions, StateFailed)
				span.RecordError(err)
				span.SetStatus(codes.Error, "model call failed")
				return nil, err
			}
			state = StateValidatingOutput

		case StateValidatingOutput:
			proposal, violations = ParseProposal(raw, req.Query, req.WithReply)
			switch {
			case len(violations) == 0:
				state = StateDone
			case out.Repaired:
				state = StateFailed
			default:
				state = StateRepairing
			}

		case StateRepairing:
			out.Repaired = true
			metrics.Get().SchemaRepairsTotal.Add(ctx, 1)
			l.WarnContext(ctx, "Model output rejected, requesting repair", slog.Any("violations", violations))

			structured.History = append(structured.History,
				types.ConversationTurn{Role: types.RoleUser, Text: structured.Prompt},
				types.ConversationTurn{Role: types.RoleAssistant, Text: raw},
			)
			structured.Prompt = RepairPrompt(violations, req.Query)
			raw, err = c.llm.GenerateStructured(ctx, structured)
			if err != nil {
				out.Transitions = append(out.Transitions, StateFailed)
				span.RecordError(err)
				span.SetStatus(codes.Error, "repair call failed")
				return nil, err
			}
			state = StateValidatingOutput

		case StateDone:
			out.Proposal = proposal
			span.SetAttributes(attribute.Bool("repaired", out.Repaired))
			span.SetStatus(codes.Ok, "")
			return out, nil

		case StateFailed:
			err = fmt.Errorf("%w: model output still invalid after one repair: %s",
				types.ErrSchemaViolation, strings.Join(violations, "; "))
			l.ErrorContext(ctx, "Model output could not be repaired", slog.Any("violations", violations))
			span.RecordError(err)
			span.SetStatus(codes.Error, "schema violation")
			return nil, err
		}
	}
}
