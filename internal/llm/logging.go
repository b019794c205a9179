package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/metrics"
)

type loggingProvider struct {
	inner Provider
	log   zerolog.Logger
}

// WithLogging wraps p so every call is logged and recorded in metrics.
// Prompts are never logged.
func WithLogging(p Provider, log zerolog.Logger) Provider {
	return &loggingProvider{
		inner: p,
		log:   log.With().Str("component", "llm").Str("model", p.ModelID()).Logger(),
	}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(l.inner.ModelID(), outcome).Observe(elapsed.Seconds())

	if err != nil {
		l.log.Warn().Err(err).Dur("latency", elapsed).Msg("Completion request failed")
		return nil, err
	}

	metrics.LLMTokens.WithLabelValues(l.inner.ModelID(), "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokens.WithLabelValues(l.inner.ModelID(), "completion").Add(float64(resp.Usage.CompletionTokens))
	l.log.Debug().
		Dur("latency", elapsed).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("stop_reason", resp.StopReason).
		Msg("Completion request served")
	return resp, nil
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }
