// Package llm answers questions over retrieved document chunks, either with
// a remote chat model or locally by extracting the best supporting sentence.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/dgallion1/pdfqa/internal/retry"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("llm temporarily unavailable")

// Answerer produces an answer to question from the given context chunks.
type Answerer interface {
	Answer(ctx context.Context, question string, contexts []string) (string, error)
	Model() string
}

// Options selects and configures an Answerer.
type Options struct {
	Provider string // "extractive", "anthropic" or "openai"

	AnthropicAPIKey string
	AnthropicModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	RequestsPerMinute int
}

// New builds the Answerer named by opts.Provider. Latencies go to stats.
func New(opts Options, stats *LLMStats, log *slog.Logger) (Answerer, error) {
	switch opts.Provider {
	case "", "extractive":
		return NewExtractive(stats), nil
	case "anthropic":
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic: missing api key")
		}
		c := NewClaudeClient(opts.AnthropicAPIKey, opts.AnthropicModel)
		c.guard = newGuard("anthropic", opts.RequestsPerMinute, stats, log)
		return c, nil
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: missing api key")
		}
		c := NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel)
		c.guard = newGuard("openai", opts.RequestsPerMinute, stats, log)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}

// guard paces, retries and circuit-breaks calls to one remote model.
type guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	stats   *LLMStats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func newGuard(name string, rpm int, stats *LLMStats, log *slog.Logger) *guard {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if rpm <= 0 {
		rpm = 60
	}
	burst := max(1, rpm/10)
	return &guard{
		name: name,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// Only transient upstream failures count against the model.
				return err == nil || !retry.IsRetryable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("llm circuit breaker", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		stats:   stats,
		log:     log,
		backoff: retry.Backoff,
	}
}

func (g *guard) call(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if g == nil {
		return fn(ctx)
	}
	var out string
	err := retry.DoBackoff(ctx, g.log, g.name, g.backoff, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		res, err := g.breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("%s: %w", g.name, ErrUnavailable)
			}
			g.stats.RecordFailure(elapsed)
			return err
		}
		g.stats.Record(elapsed)
		out = res.(string)
		return nil
	})
	return out, err
}
