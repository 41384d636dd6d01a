package sessiond

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/domain"
	openaitransport "github.com/proctorly/sessiond/internal/transport/openai"
	chatuc "github.com/proctorly/sessiond/internal/usecase/chat"
	healthuc "github.com/proctorly/sessiond/internal/usecase/health"
)

// Completer is a pluggable chat completion provider. Implement it to route
// exchanges to a provider the SDK does not ship an adapter for.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (Reply, error)
}

func buildCompleter(cfg *clientConfig, logger *zap.Logger) (chatuc.Completer, healthuc.ModelChecker) {
	if cfg.completer != nil {
		return &completerAdapter{inner: cfg.completer}, nil
	}
	if cfg.openaiAPIKey != "" || cfg.openaiModel != "" {
		comp := openaitransport.NewCompleter(&openaitransport.Config{
			APIKey:  cfg.openaiAPIKey,
			BaseURL: cfg.openaiBaseURL,
			Model:   cfg.openaiModel,
			Logger:  logger,
		})
		return comp, comp
	}
	return noopCompleter{}, nil
}

// completerAdapter wraps the public Completer to satisfy the chat contract.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, turns []domain.Turn) (domain.Reply, error) {
	pub := make([]Turn, len(turns))
	for i, t := range turns {
		pub[i] = turnFromDomain(t)
	}
	r, err := a.inner.Complete(ctx, pub)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("complete: %w", err)
	}
	return domain.Reply{
		Text:         r.Text,
		Model:        r.Model,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
	}, nil
}

// noopCompleter returns an error on Complete (used when no provider configured).
type noopCompleter struct{}

func (noopCompleter) Complete(_ context.Context, _ []domain.Turn) (domain.Reply, error) {
	return domain.Reply{}, errors.New(
		"sessiond: completion provider not configured (use WithOpenAI or WithCompleter)",
	)
}
