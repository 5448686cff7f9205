package scorer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"seedsleuth/search"
)

// scoreParallelism caps concurrent in-flight positions so a single
// slow service does not hold one goroutine per position.
const scoreParallelism = 4

// ScorePositions runs the scorer for every candidate list concurrently
// and returns per-position score maps ready for the beam search.
// Positions are 1-based on the wire to match constraint numbering.
func ScorePositions(ctx context.Context, s Scorer, constraints *search.Constraints, candidates [][]string) ([]map[string]float64, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreParallelism)

	maps := make([]map[string]float64, len(candidates))
	for i := range candidates {
		g.Go(func() error {
			scored, err := s.Score(ctx, i+1, constraints.At(i+1), candidates[i])
			if err != nil {
				return fmt.Errorf("position %d: %w", i+1, err)
			}
			m := make(map[string]float64, len(scored))
			for _, sw := range scored {
				m[sw.Word] = sw.Score
			}
			maps[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}
