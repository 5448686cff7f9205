// Package scorer ranks candidate words per sentence position through
// an external linguistic scoring service, degrading to uniform scores
// when the service is unreachable.
package scorer

import (
	"context"

	"go.uber.org/zap"

	"seedsleuth/search"
)

// Scorer ranks candidate words for one sentence position.
type Scorer interface {
	Score(ctx context.Context, position int, c search.PositionConstraint, words []string) ([]search.ScoredWord, error)
}

// UniformScores assigns evenly spaced descending scores, preserving
// the input order. Used when no external scorer is reachable so the
// filter's own ranking still yields a total order.
func UniformScores(words []string) []search.ScoredWord {
	n := len(words)
	out := make([]search.ScoredWord, n)
	for i, w := range words {
		out[i] = search.ScoredWord{
			Word:      w,
			Score:     float64(n-i) / float64(n),
			Rationale: "uniform fallback",
		}
	}
	return out
}

// FallbackScorer wraps a primary scorer and substitutes uniform
// scores whenever it fails or returns nothing. Score never errors.
type FallbackScorer struct {
	primary Scorer
	log     *zap.Logger
}

// WithFallback wraps a scorer, which may be nil for offline runs.
func WithFallback(primary Scorer, log *zap.Logger) *FallbackScorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackScorer{primary: primary, log: log}
}

func (f *FallbackScorer) Score(ctx context.Context, position int, c search.PositionConstraint, words []string) ([]search.ScoredWord, error) {
	if f.primary != nil {
		out, err := f.primary.Score(ctx, position, c, words)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		f.log.Warn("word scorer unavailable, falling back to uniform scores",
			zap.Int("position", position),
			zap.Error(err))
	}
	return UniformScores(words), nil
}
