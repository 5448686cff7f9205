package search

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"seedsleuth/mnemonic"
)

// UnscoredDefault is the score assigned to candidate words the
// external scorer did not cover. Nonzero and fixed so unscored words
// still order deterministically behind scored ones.
const UnscoredDefault = 0.05

// DefaultBeamWidth bounds retained prefixes per depth when the caller
// does not pick a width.
const DefaultBeamWidth = 500

// DefaultMaxResults caps the ranked sentences one search returns.
const DefaultMaxResults = 1000

// avgLastWordBranching estimates how many final-word completions a
// typical prefix contributes to the search space. Informational only.
const avgLastWordBranching = 16

// Common errors for beam search configuration
var (
	ErrBeamWidth    = errors.New("beam width must be positive")
	ErrMaxResults   = errors.New("max results must be positive")
	ErrNoCandidates = errors.New("position has no candidate words")
)

// Config bounds the search.
type Config struct {
	BeamWidth  int `json:"beam_width"`
	MaxResults int `json:"max_results"`
}

// Query is one search input: candidate words for each of the eleven
// prefix positions, optional per-position score maps (up to twelve,
// the last covering final-word completions), and an optional allow
// list for the final word.
type Query struct {
	Candidates [][]string
	Scores     []map[string]float64
	LastWords  []string
}

// RankedMnemonic is one checksum-valid sentence with its combined
// score.
type RankedMnemonic struct {
	Sentence string  `json:"sentence"`
	Score    float64 `json:"score"`
}

// state is one partial sentence on the beam. Depth is the number of
// words placed so far; score is the running mean over placed words.
type state struct {
	words []string
	score float64
}

// Engine runs score-guided beam search over the prefix positions and
// completes survivors through the checksum enumerator.
type Engine struct {
	cfg  Config
	enum *mnemonic.Enumerator
	log  *zap.Logger
}

// NewEngine validates the configuration and creates an engine.
func NewEngine(cfg Config, enum *mnemonic.Enumerator, log *zap.Logger) (*Engine, error) {
	if cfg.BeamWidth <= 0 {
		return nil, ErrBeamWidth
	}
	if cfg.MaxResults <= 0 {
		return nil, ErrMaxResults
	}
	if enum == nil {
		enum = mnemonic.NewEnumerator(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, enum: enum, log: log}, nil
}

// Search expands the beam position by position, prunes to the
// configured width after every expansion, and completes the survivors
// into full sentences. Results are deduplicated by sentence, sorted
// by descending score with ties broken by sentence order, and capped
// at MaxResults.
func (e *Engine) Search(q Query) ([]RankedMnemonic, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	states := []state{{}}
	for pos := 0; pos < mnemonic.PrefixWords; pos++ {
		states = expand(states, q.Candidates[pos], scoreMap(q.Scores, pos))
		states = prune(states, e.cfg.BeamWidth)
	}

	e.log.Debug("beam expansion finished",
		zap.Int("surviving_states", len(states)),
		zap.Float64("search_space", e.SearchSpaceSize(q)))

	return e.finalize(states, q)
}

// SearchSpaceSize estimates how many full sentences the query spans,
// for progress reporting. Float to survive queries near the full
// dictionary at every position.
func (e *Engine) SearchSpaceSize(q Query) float64 {
	size := float64(avgLastWordBranching)
	for _, words := range q.Candidates {
		size *= float64(len(words))
	}
	return size
}

func validateQuery(q Query) error {
	if len(q.Candidates) != mnemonic.PrefixWords {
		return fmt.Errorf("expected %d candidate positions, got %d", mnemonic.PrefixWords, len(q.Candidates))
	}
	for i, words := range q.Candidates {
		if len(words) == 0 {
			return fmt.Errorf("%w: position %d", ErrNoCandidates, i+1)
		}
	}
	return nil
}

// expand grows every state by every candidate word. The new score is
// the running mean extended by the word's score.
func expand(states []state, words []string, scores map[string]float64) []state {
	next := make([]state, 0, len(states)*len(words))
	for _, st := range states {
		depth := float64(len(st.words))
		for _, w := range words {
			next = append(next, state{
				words: extendWords(st.words, w),
				score: (st.score*depth + wordScore(scores, w)) / (depth + 1),
			})
		}
	}
	return next
}

// prune keeps the best width states. The sort is stable, so equal
// scores keep their expansion order and nothing retained scores below
// anything discarded.
func prune(states []state, width int) []state {
	if len(states) <= width {
		return states
	}
	sort.SliceStable(states, func(i, j int) bool { return states[i].score > states[j].score })
	return states[:width]
}

// finalize completes each surviving prefix through the checksum
// enumerator, applies the optional final-word allow list, and ranks
// the unique sentences.
func (e *Engine) finalize(states []state, q Query) ([]RankedMnemonic, error) {
	allowed := make(map[string]bool, len(q.LastWords))
	for _, w := range q.LastWords {
		allowed[w] = true
	}
	lastScores := scoreMap(q.Scores, mnemonic.PrefixWords)

	best := make(map[string]float64)
	for _, st := range states {
		valid, err := e.enum.ValidLastWords(st.words)
		if err != nil {
			return nil, err
		}

		completions := valid
		if len(allowed) > 0 {
			kept := make([]string, 0, len(valid))
			for _, w := range valid {
				if allowed[w] {
					kept = append(kept, w)
				}
			}
			// An allow list that kills every checksum-valid word is
			// ignored rather than fatal; the constraint was wrong, the
			// checksum is not.
			if len(kept) > 0 {
				completions = kept
			} else {
				e.log.Debug("final-word constraints eliminated all completions, ignoring them",
					zap.String("prefix", mnemonic.ShortHash(mnemonic.Join(st.words))))
			}
		}

		for _, w := range completions {
			combined := (st.score*float64(mnemonic.PrefixWords) + wordScore(lastScores, w)) / float64(mnemonic.WordCount)
			sentence := mnemonic.Join(extendWords(st.words, w))
			if cur, ok := best[sentence]; !ok || combined > cur {
				best[sentence] = combined
			}
		}
	}

	ranked := make([]RankedMnemonic, 0, len(best))
	for sentence, score := range best {
		ranked = append(ranked, RankedMnemonic{Sentence: sentence, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Sentence < ranked[j].Sentence
	})
	if len(ranked) > e.cfg.MaxResults {
		ranked = ranked[:e.cfg.MaxResults]
	}
	return ranked, nil
}

// extendWords copies before appending so sibling states never share a
// backing array.
func extendWords(words []string, w string) []string {
	out := make([]string, len(words), len(words)+1)
	copy(out, words)
	return append(out, w)
}

func wordScore(scores map[string]float64, w string) float64 {
	if s, ok := scores[w]; ok {
		return s
	}
	return UnscoredDefault
}

func scoreMap(scores []map[string]float64, pos int) map[string]float64 {
	if pos < len(scores) {
		return scores[pos]
	}
	return nil
}
