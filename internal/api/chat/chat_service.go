// Package chat refines an existing itinerary through conversation.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-nomad-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-nomad-planner/internal/types"
)

// MaxHistoryTurns bounds the history replayed to the model.
const MaxHistoryTurns = 40

type Request struct {
	Itinerary *types.Itinerary         `json:"itinerary"`
	History   []types.ConversationTurn `json:"history"`
	Message   string                   `json:"message"`
}

type Response struct {
	Itinerary *types.Itinerary         `json:"itinerary"`
	Reply     string                   `json:"reply"`
	History   []types.ConversationTurn `json:"history"`
}

type Service interface {
	Refine(ctx context.Context, req Request) (*Response, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	completer *itinerary.Completer
	logger    *slog.Logger
	now       func() time.Time
}

func NewServiceImpl(llm itinerary.LanguageModelProvider, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		completer: itinerary.NewCompleter(llm, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Refine derives the next itinerary version from req. req.Itinerary and
// req.History are never modified.
func (s *ServiceImpl) Refine(ctx context.Context, req Request) (*Response, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "Refine", trace.WithAttributes(
		attribute.Int("history.turns", len(req.History)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Refine"))
	if err := validate(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}
	current := req.Itinerary
	span.SetAttributes(
		attribute.String("itinerary.id", current.ID.String()),
		attribute.Int("itinerary.version", current.Version),
	)

	prompt, err := itinerary.RefinementPrompt(current, req.Message)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	history := req.History
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	completion, err := s.completer.Complete(ctx, itinerary.CompletionRequest{
		SystemInstruction: itinerary.ChatInstruction,
		History:           slices.Clone(history),
		Prompt:            prompt,
		Query:             current.Query,
		WithReply:         true,
	})
	if err != nil {
		l.ErrorContext(ctx, "Refinement failed", slog.String("itinerary_id", current.ID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "refinement failed")
		return nil, err
	}

	next := current.Clone()
	next.Version = current.Version + 1
	next.CreatedAt = s.now().UTC()
	next.Warnings = itinerary.DropBudgetWarnings(next.Warnings)
	itinerary.ApplyProposal(next, completion.Proposal, nil, nil)

	turns := make([]types.ConversationTurn, 0, len(req.History)+2)
	turns = append(turns, req.History...)
	turns = append(turns,
		types.ConversationTurn{Role: types.RoleUser, Text: strings.TrimSpace(req.Message)},
		types.ConversationTurn{Role: types.RoleAssistant, Text: completion.Proposal.Reply},
	)

	l.InfoContext(ctx, "Itinerary refined",
		slog.String("itinerary_id", next.ID.String()),
		slog.Int("version", next.Version),
		slog.Bool("repaired", completion.Repaired))
	span.SetStatus(codes.Ok, "")
	return &Response{Itinerary: next, Reply: completion.Proposal.Reply, History: turns}, nil
}

func validate(req Request) error {
	if req.Itinerary == nil {
		return fmt.Errorf("%w: itinerary is required", types.ErrInvalidQuery)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", types.ErrInvalidQuery)
	}
	if err := req.Itinerary.Query.Validate(); err != nil {
		return err
	}
	for i, turn := range req.History {
		if turn.Role != types.RoleUser && turn.Role != types.RoleAssistant {
			return fmt.Errorf("%w: history turn %d has unknown role %q", types.ErrInvalidQuery, i+1, turn.Role)
		}
	}
	return nil
}
