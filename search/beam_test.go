package search

import (
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"seedsleuth/mnemonic"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, mnemonic.NewEnumerator(nil), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

// singleWordQuery builds a query with one fixed candidate per prefix
// position.
func singleWordQuery(word string) Query {
	candidates := make([][]string, mnemonic.PrefixWords)
	for i := range candidates {
		candidates[i] = []string{word}
	}
	return Query{Candidates: candidates}
}

func TestNewEngineConfigErrors(t *testing.T) {
	if _, err := NewEngine(Config{BeamWidth: 0, MaxResults: 10}, nil, nil); !errors.Is(err, ErrBeamWidth) {
		t.Errorf("Expected ErrBeamWidth, got %v", err)
	}
	if _, err := NewEngine(Config{BeamWidth: 4, MaxResults: 0}, nil, nil); !errors.Is(err, ErrMaxResults) {
		t.Errorf("Expected ErrMaxResults, got %v", err)
	}
}

func TestSearchRejectsMissingCandidates(t *testing.T) {
	e := newTestEngine(t, Config{BeamWidth: 4, MaxResults: 10})

	q := singleWordQuery("zoo")
	q.Candidates[6] = nil
	if _, err := e.Search(q); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates, got %v", err)
	}

	short := Query{Candidates: make([][]string, 5)}
	if _, err := e.Search(short); err == nil {
		t.Error("Expected error for wrong position count")
	}
}

func TestSearchGoldenVector(t *testing.T) {
	e := newTestEngine(t, Config{BeamWidth: 4, MaxResults: 300})

	results, err := e.Search(singleWordQuery("abandon"))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 128 {
		t.Fatalf("Expected 128 checksum-valid completions, got %d", len(results))
	}

	prefix := strings.Repeat("abandon ", mnemonic.PrefixWords)
	enum := mnemonic.NewEnumerator(nil)
	for _, r := range results {
		if !strings.HasPrefix(r.Sentence, prefix) {
			t.Fatalf("Expected the abandon prefix, got %q", r.Sentence)
		}
		if !enum.IsValid(r.Sentence) {
			t.Errorf("Expected a valid sentence, got %q", r.Sentence)
		}
		if math.Abs(r.Score-UnscoredDefault) > 1e-9 {
			t.Errorf("Expected the default score for unscored words, got %f", r.Score)
		}
	}

	wantSentence := prefix + "about"
	found := false
	for _, r := range results {
		if r.Sentence == wantSentence {
			found = true
		}
		if r.Sentence == prefix+"abandon" {
			t.Error("Expected the checksum-failing completion to be absent")
		}
	}
	if !found {
		t.Errorf("Expected %q among the results", wantSentence)
	}
}

func TestSearchBeamWidthBound(t *testing.T) {
	scores := make([]map[string]float64, mnemonic.PrefixWords)
	candidates := make([][]string, mnemonic.PrefixWords)
	for i := range candidates {
		candidates[i] = []string{"abandon", "zoo"}
		scores[i] = map[string]float64{"zoo": 0.9, "abandon": 0.1}
	}
	q := Query{Candidates: candidates, Scores: scores}

	e := newTestEngine(t, Config{BeamWidth: 1, MaxResults: 300})
	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 128 {
		t.Fatalf("Expected 128 completions of the single surviving prefix, got %d", len(results))
	}

	prefix := strings.Repeat("zoo ", mnemonic.PrefixWords)
	for _, r := range results {
		if !strings.HasPrefix(r.Sentence, prefix) {
			t.Fatalf("Expected width-1 beam to keep only the dominant word, got %q", r.Sentence)
		}
	}

	found := false
	for _, r := range results {
		if r.Sentence == prefix+"wrong" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected %q among the results", prefix+"wrong")
	}

	want := (0.9*float64(mnemonic.PrefixWords) + UnscoredDefault) / float64(mnemonic.WordCount)
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Errorf("Expected combined score %f, got %f", want, results[0].Score)
	}
}

func TestSearchMaxResultsCap(t *testing.T) {
	e := newTestEngine(t, Config{BeamWidth: 4, MaxResults: 5})

	results, err := e.Search(singleWordQuery("abandon"))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("Expected 5 results, got %d", len(results))
	}
}

func TestSearchLastWordAllowList(t *testing.T) {
	e := newTestEngine(t, Config{BeamWidth: 4, MaxResults: 300})

	q := singleWordQuery("abandon")
	q.LastWords = []string{"about"}
	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected exactly 1 allowed completion, got %d", len(results))
	}
	if !strings.HasSuffix(results[0].Sentence, " about") {
		t.Errorf("Expected the about completion, got %q", results[0].Sentence)
	}

	// An allow list with no checksum-valid entry is ignored, not fatal.
	q.LastWords = []string{"abandon"}
	results, err = e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 128 {
		t.Errorf("Expected the full completion set when the allow list is impossible, got %d", len(results))
	}
}

func TestSearchDeduplicates(t *testing.T) {
	q := singleWordQuery("zoo")
	q.Candidates[0] = []string{"zoo", "zoo"}

	e := newTestEngine(t, Config{BeamWidth: 8, MaxResults: 300})
	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 128 {
		t.Fatalf("Expected duplicate states to collapse to 128 sentences, got %d", len(results))
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.Sentence] {
			t.Fatalf("Expected unique sentences, got %q twice", r.Sentence)
		}
		seen[r.Sentence] = true
	}
}

func TestPruneMonotonic(t *testing.T) {
	states := []state{
		{words: []string{"a"}, score: 0.9},
		{words: []string{"b"}, score: 0.5},
		{words: []string{"c"}, score: 0.7},
		{words: []string{"d"}, score: 0.5},
	}

	kept := prune(states, 2)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 states, got %d", len(kept))
	}
	if kept[0].score != 0.9 || kept[1].score != 0.7 {
		t.Errorf("Expected the two best scores, got %f and %f", kept[0].score, kept[1].score)
	}

	states = []state{
		{words: []string{"a"}, score: 0.9},
		{words: []string{"b"}, score: 0.5},
		{words: []string{"c"}, score: 0.7},
		{words: []string{"d"}, score: 0.5},
	}
	kept = prune(states, 3)
	if kept[2].words[0] != "b" {
		t.Errorf("Expected the earlier tie to survive, got %q", kept[2].words[0])
	}
}

func TestSearchScoreAveraging(t *testing.T) {
	q := singleWordQuery("zoo")
	q.Scores = make([]map[string]float64, mnemonic.PrefixWords)
	for i := range q.Scores {
		q.Scores[i] = map[string]float64{"zoo": 1.0}
	}

	e := newTestEngine(t, Config{BeamWidth: 1, MaxResults: 300})
	results, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected results")
	}

	want := (1.0*float64(mnemonic.PrefixWords) + UnscoredDefault) / float64(mnemonic.WordCount)
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Errorf("Expected score %f, got %f", want, results[0].Score)
	}
}

func TestSearchSpaceSize(t *testing.T) {
	candidates := make([][]string, mnemonic.PrefixWords)
	for i := range candidates {
		candidates[i] = []string{"one", "two"}
	}
	e := newTestEngine(t, Config{BeamWidth: 1, MaxResults: 1})

	want := math.Pow(2, float64(mnemonic.PrefixWords)) * avgLastWordBranching
	if got := e.SearchSpaceSize(Query{Candidates: candidates}); got != want {
		t.Errorf("Expected search space %f, got %f", want, got)
	}
}

func BenchmarkSearchGolden(b *testing.B) {
	e, err := NewEngine(Config{BeamWidth: 4, MaxResults: 300}, nil, nil)
	if err != nil {
		b.Fatalf("NewEngine failed: %v", err)
	}
	q := singleWordQuery("abandon")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Search(q); err != nil {
			b.Fatalf("Search failed: %v", err)
		}
	}
}
