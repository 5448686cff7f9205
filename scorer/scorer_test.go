package scorer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedsleuth/search"
)

func TestUniformScores(t *testing.T) {
	out := UniformScores([]string{"apple", "banana", "cherry", "date"})
	require.Len(t, out, 4)

	assert.Equal(t, "apple", out[0].Word)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Equal(t, 0.75, out[1].Score)
	assert.Equal(t, 0.5, out[2].Score)
	assert.Equal(t, 0.25, out[3].Score)
	for _, sw := range out {
		assert.Equal(t, "uniform fallback", sw.Rationale)
	}
}

func TestUniformScoresEmpty(t *testing.T) {
	assert.Empty(t, UniformScores(nil))
}

type stubScorer struct {
	mu        sync.Mutex
	positions []int
	failAt    int
	err       error
	empty     bool
}

func (s *stubScorer) Score(_ context.Context, position int, _ search.PositionConstraint, words []string) ([]search.ScoredWord, error) {
	s.mu.Lock()
	s.positions = append(s.positions, position)
	s.mu.Unlock()

	if s.err != nil && (s.failAt == 0 || s.failAt == position) {
		return nil, s.err
	}
	if s.empty {
		return nil, nil
	}
	out := make([]search.ScoredWord, len(words))
	for i, w := range words {
		out[i] = search.ScoredWord{Word: w, Score: float64(position) / 100}
	}
	return out, nil
}

func TestFallbackPassesThrough(t *testing.T) {
	primary := &stubScorer{}
	f := WithFallback(primary, nil)

	out, err := f.Score(context.Background(), 3, search.PositionConstraint{}, []string{"zoo"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0.03, out[0].Score)
}

func TestFallbackOnError(t *testing.T) {
	primary := &stubScorer{err: errors.New("connection refused")}
	f := WithFallback(primary, nil)

	out, err := f.Score(context.Background(), 1, search.PositionConstraint{}, []string{"abandon", "zoo"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Equal(t, "uniform fallback", out[0].Rationale)
}

func TestFallbackOnEmptyResult(t *testing.T) {
	primary := &stubScorer{empty: true}
	f := WithFallback(primary, nil)

	out, err := f.Score(context.Background(), 1, search.PositionConstraint{}, []string{"abandon"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "uniform fallback", out[0].Rationale)
}

func TestFallbackNilPrimary(t *testing.T) {
	f := WithFallback(nil, nil)

	out, err := f.Score(context.Background(), 1, search.PositionConstraint{}, []string{"abandon"})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestParseResponse(t *testing.T) {
	raw, err := json.Marshal(ScoreResponse{
		Nonce: "abc-123",
		Words: []search.ScoredWord{{Word: "zoo", Score: 0.9, Rationale: "rhymes"}},
	})
	require.NoError(t, err)

	words, err := parseResponse(raw, "abc-123")
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "zoo", words[0].Word)
	assert.Equal(t, 0.9, words[0].Score)
}

func TestParseResponseNonceMismatch(t *testing.T) {
	raw, err := json.Marshal(ScoreResponse{Nonce: "stale"})
	require.NoError(t, err)

	_, err = parseResponse(raw, "fresh")
	assert.ErrorIs(t, err, ErrResponse)
}

func TestParseResponseRemoteError(t *testing.T) {
	raw, err := json.Marshal(ScoreResponse{Nonce: "n1", Error: "invalid token"})
	require.NoError(t, err)

	_, err = parseResponse(raw, "n1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestParseResponseMalformed(t *testing.T) {
	_, err := parseResponse([]byte("{nope"), "n1")
	assert.ErrorIs(t, err, ErrResponse)
}

func TestParseResponseOversized(t *testing.T) {
	_, err := parseResponse(make([]byte, MaxMessageSize+1), "n1")
	assert.ErrorIs(t, err, ErrResponse)
}

func TestScorePositions(t *testing.T) {
	s := &stubScorer{}
	candidates := [][]string{
		{"abandon", "ability"},
		{"zoo"},
		{"legal", "winner", "thank"},
	}

	maps, err := ScorePositions(context.Background(), s, &search.Constraints{}, candidates)
	require.NoError(t, err)
	require.Len(t, maps, 3)

	assert.Equal(t, 0.01, maps[0]["abandon"])
	assert.Equal(t, 0.02, maps[1]["zoo"])
	assert.Equal(t, 0.03, maps[2]["thank"])
	assert.Len(t, maps[2], 3)

	sort.Ints(s.positions)
	assert.Equal(t, []int{1, 2, 3}, s.positions)
}

func TestScorePositionsError(t *testing.T) {
	s := &stubScorer{err: errors.New("scorer down"), failAt: 2}
	candidates := [][]string{{"abandon"}, {"zoo"}, {"legal"}}

	_, err := ScorePositions(context.Background(), s, &search.Constraints{}, candidates)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 2")
}

func TestNewZMQScorerValidation(t *testing.T) {
	_, err := NewZMQScorer(context.Background(), ZMQConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoEndpoint)

	s, err := NewZMQScorer(context.Background(), ZMQConfig{Endpoint: "tcp://127.0.0.1:5555"}, nil)
	require.NoError(t, err)
	assert.NotZero(t, s.timeout)
	require.NoError(t, s.Close())
}
