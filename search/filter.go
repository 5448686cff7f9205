package search

import (
	"fmt"
	"sort"
	"strings"

	"seedsleuth/mnemonic"
)

// ScoredWord is one dictionary word with its match score and a short
// note on which facets produced it.
type ScoredWord struct {
	Word      string  `json:"word"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// Weights control how much each constraint facet contributes to a
// word's match score. Only facets present in the constraint count and
// the result is normalized over the active weights, so partial
// constraints still score on a 0 to 1 scale.
type Weights struct {
	Length   float64 `json:"length" mapstructure:"length"`
	Syllable float64 `json:"syllable" mapstructure:"syllable"`
	Pattern  float64 `json:"pattern" mapstructure:"pattern"`
	Semantic float64 `json:"semantic" mapstructure:"semantic"`
	Rhyme    float64 `json:"rhyme" mapstructure:"rhyme"`
}

// DefaultWeights returns an even split across the five facets.
func DefaultWeights() Weights {
	return Weights{
		Length:   0.2,
		Syllable: 0.2,
		Pattern:  0.2,
		Semantic: 0.2,
		Rhyme:    0.2,
	}
}

// CandidateFilter scores the dictionary against per-position
// constraints.
type CandidateFilter struct {
	dict      *mnemonic.Dictionary
	weights   Weights
	threshold float64
}

// NewCandidateFilter creates a filter. threshold is the minimum score
// a word needs to survive a constrained match.
func NewCandidateFilter(dict *mnemonic.Dictionary, weights Weights, threshold float64) *CandidateFilter {
	if dict == nil {
		dict = mnemonic.NewDictionary()
	}
	return &CandidateFilter{dict: dict, weights: weights, threshold: threshold}
}

// Match scores every dictionary word against the constraint and
// returns the survivors sorted by descending score. The sort is
// stable, so equal scores keep dictionary order. An empty constraint
// matches the whole dictionary at the default score rather than
// failing, so downstream stages always have candidates.
func (f *CandidateFilter) Match(c PositionConstraint) []ScoredWord {
	words := f.dict.Words()

	if c.Empty() {
		out := make([]ScoredWord, len(words))
		for i, w := range words {
			out[i] = ScoredWord{Word: w, Score: UnscoredDefault, Rationale: "unconstrained"}
		}
		return out
	}

	out := make([]ScoredWord, 0, len(words))
	for _, w := range words {
		score, rationale := f.scoreWord(w, c)
		if score >= f.threshold {
			out = append(out, ScoredWord{Word: w, Score: score, Rationale: rationale})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// TopK truncates a scored list to its best k entries, bounding the
// cost of downstream external scoring. Non-positive k means no bound.
func TopK(words []ScoredWord, k int) []ScoredWord {
	if k <= 0 || k >= len(words) {
		return words
	}
	return words[:k]
}

// scoreWord computes the normalized weighted sum over active facets.
func (f *CandidateFilter) scoreWord(word string, c PositionConstraint) (float64, string) {
	var sum, weight float64
	var notes []string

	if c.Length > 0 && f.weights.Length > 0 {
		s := bandScore(len(word), c.Length)
		sum += s * f.weights.Length
		weight += f.weights.Length
		if s == 1 {
			notes = append(notes, fmt.Sprintf("length %d", c.Length))
		}
	}
	if c.Syllables > 0 && f.weights.Syllable > 0 {
		s := bandScore(countSyllables(word), c.Syllables)
		sum += s * f.weights.Syllable
		weight += f.weights.Syllable
		if s == 1 {
			notes = append(notes, fmt.Sprintf("%d syllables", c.Syllables))
		}
	}
	if c.Pattern != "" && f.weights.Pattern > 0 {
		var s float64
		if guessPattern(word) == strings.ToLower(c.Pattern) {
			s = 1
			notes = append(notes, c.Pattern)
		}
		sum += s * f.weights.Pattern
		weight += f.weights.Pattern
	}
	if len(c.Tags) > 0 && f.weights.Semantic > 0 {
		s := semanticScore(word, c.Tags)
		sum += s * f.weights.Semantic
		weight += f.weights.Semantic
		if s >= 0.5 {
			notes = append(notes, "near tags")
		}
	}
	if c.RhymesWith != "" && f.weights.Rhyme > 0 {
		s := rhymeScore(word, c.RhymesWith)
		sum += s * f.weights.Rhyme
		weight += f.weights.Rhyme
		if s == 1 {
			notes = append(notes, "rhymes with "+c.RhymesWith)
		}
	}

	if weight == 0 {
		return UnscoredDefault, "no scorable facets"
	}
	return sum / weight, strings.Join(notes, ", ")
}

// bandScore maps an integer distance onto [0,1], reaching zero at a
// distance of four.
func bandScore(got, want int) float64 {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff >= 4 {
		return 0
	}
	return 1 - float64(diff)/4
}

// countSyllables counts vowel groups, with the usual silent-e
// adjustment. Crude, but the dictionary only holds short lowercase
// English words.
func countSyllables(word string) int {
	count := 0
	prev := false
	for _, r := range word {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prev {
			count++
		}
		prev = v
	}
	if count > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

// guessPattern assigns a rough part of speech from the word ending.
func guessPattern(word string) string {
	switch {
	case strings.HasSuffix(word, "ly"):
		return "adverb"
	case strings.HasSuffix(word, "ing"), strings.HasSuffix(word, "ize"), strings.HasSuffix(word, "ify"):
		return "verb"
	case strings.HasSuffix(word, "ous"), strings.HasSuffix(word, "ful"), strings.HasSuffix(word, "ive"),
		strings.HasSuffix(word, "able"), strings.HasSuffix(word, "less"), strings.HasSuffix(word, "al"),
		strings.HasSuffix(word, "ic"):
		return "adjective"
	default:
		return "noun"
	}
}

// semanticScore is the best bigram similarity between the word and
// any tag. A cheap stand-in for real semantic distance that needs no
// lexicon.
func semanticScore(word string, tags []string) float64 {
	best := 0.0
	for _, tag := range tags {
		if s := diceSimilarity(word, strings.ToLower(tag)); s > best {
			best = s
		}
	}
	return best
}

// diceSimilarity is the Sorensen-Dice coefficient over distinct
// character bigrams.
func diceSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ab, bb := bigrams(a), bigrams(b)
	if len(ab) == 0 || len(bb) == 0 {
		return 0
	}
	shared := 0
	for bg := range ab {
		if bb[bg] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ab)+len(bb))
}

func bigrams(s string) map[string]bool {
	m := make(map[string]bool, len(s))
	for i := 0; i+2 <= len(s); i++ {
		m[s[i:i+2]] = true
	}
	return m
}

// rhymeScore rewards shared trailing characters, saturating at three.
func rhymeScore(word, target string) float64 {
	n := 0
	for n < len(word) && n < len(target) && word[len(word)-1-n] == target[len(target)-1-n] {
		n++
	}
	if n > 3 {
		n = 3
	}
	return float64(n) / 3
}
