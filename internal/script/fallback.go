package script

import (
	"context"

	"github.com/book-expert/logger"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// Breaker turns raw script text into an ordered scene list.
type Breaker interface {
	BreakScript(ctx context.Context, text string, opts Options) ([]core.Scene, error)
}

// FallbackBreaker tries a primary breakdown and falls back to a secondary one
// when the primary fails or returns nothing. Used to back the LLM analyzer
// with the heuristic parser.
type FallbackBreaker struct {
	primary  Breaker
	fallback Breaker
	log      *logger.Logger
}

// NewFallbackBreaker chains two breakers.
func NewFallbackBreaker(primary, fallback Breaker, log *logger.Logger) *FallbackBreaker {
	return &FallbackBreaker{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// BreakScript implements the script breakdown contract.
func (b *FallbackBreaker) BreakScript(ctx context.Context, text string, opts Options) ([]core.Scene, error) {
	scenes, err := b.primary.BreakScript(ctx, text, opts)
	if err == nil && len(scenes) > 0 {
		return scenes, nil
	}

	if err != nil {
		b.log.Warn("Primary script breakdown failed, falling back: %v", err)
	}

	return b.fallback.BreakScript(ctx, text, opts)
}
