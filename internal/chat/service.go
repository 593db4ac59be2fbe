package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Alaeddine-Az/robotics-chatbot/internal/history"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/models"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/provider"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/worker"
)

// Classified completion failures. Raw provider detail never crosses this
// boundary; it is logged here and callers map these to fixed messages.
var (
	ErrProviderTimeout = errors.New("completion timed out")
	ErrProviderAuth    = errors.New("completion authentication failed")
	ErrProvider        = errors.New("completion failed")
)

// Service orchestrates one completion: truncate history, assemble the
// prompt, invoke the provider under a deadline, validate the reply.
type Service struct {
	systemPrompt string
	truncator    *history.Truncator
	client       provider.CompletionClient
	pool         *worker.Pool
	timeout      time.Duration
	logger       *zap.Logger
}

// Reply carries the assistant's turn plus the updated history. History is
// built from the truncated input, so turns the truncator dropped do not
// reappear; Truncated reports that to the caller.
type Reply struct {
	Content   string
	History   []models.Message
	Truncated bool
}

func NewService(truncator *history.Truncator, client provider.CompletionClient, pool *worker.Pool, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		systemPrompt: SystemPrompt,
		truncator:    truncator,
		client:       client,
		pool:         pool,
		timeout:      timeout,
		logger:       logger,
	}
}

func (s *Service) Respond(ctx context.Context, hist []models.Message, userMessage string) (*Reply, error) {
	kept, truncated := s.truncator.Truncate(hist)
	if truncated {
		s.logger.Info("truncated conversation history",
			zap.Int("from", len(hist)),
			zap.Int("to", len(kept)))
	}

	prompt := make([]models.Message, 0, len(kept)+2)
	prompt = append(prompt, models.Message{Role: models.RoleSystem, Content: s.systemPrompt})
	prompt = append(prompt, kept...)
	prompt = append(prompt, models.Message{Role: models.RoleUser, Content: userMessage})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var (
		content     string
		completeErr error
	)
	err := s.pool.Do(ctx, func() {
		content, completeErr = s.client.Complete(ctx, prompt)
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, worker.ErrBusy) {
			return nil, err
		}
		// The pool only fails otherwise when the context expired first.
		s.logger.Error("completion call failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, ErrProviderTimeout
	}
	if completeErr != nil {
		s.logger.Error("provider error", zap.Error(completeErr), zap.Duration("elapsed", elapsed))
		switch provider.Classify(completeErr) {
		case provider.KindTimeout:
			return nil, ErrProviderTimeout
		case provider.KindAuth:
			return nil, ErrProviderAuth
		}
		return nil, ErrProvider
	}

	s.logger.Info("completion generated", zap.Duration("elapsed", elapsed))

	if err := models.ValidateContent(content); err != nil {
		s.logger.Error("provider returned invalid content", zap.Error(err))
		return nil, fmt.Errorf("%w: empty reply", ErrProvider)
	}

	updated := make([]models.Message, 0, len(kept)+2)
	updated = append(updated, kept...)
	updated = append(updated,
		models.Message{Role: models.RoleUser, Content: userMessage},
		models.Message{Role: models.RoleAssistant, Content: content},
	)
	return &Reply{Content: content, History: updated, Truncated: truncated}, nil
}
