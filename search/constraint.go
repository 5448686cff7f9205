package search

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"seedsleuth/mnemonic"
)

// PositionConstraint captures what is remembered about the word at one
// sentence position. Zero values mean the facet is unknown.
type PositionConstraint struct {
	Length     int      `json:"length,omitempty"`
	Syllables  int      `json:"syllables,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	RhymesWith string   `json:"rhymes_with,omitempty"`
}

// Empty reports whether no facet is set.
func (c PositionConstraint) Empty() bool {
	return c.Length == 0 &&
		c.Syllables == 0 &&
		c.Pattern == "" &&
		len(c.Tags) == 0 &&
		c.RhymesWith == ""
}

// Constraints holds one constraint per sentence position. The final
// position is optional and only narrows checksum-valid completions.
type Constraints [mnemonic.WordCount]PositionConstraint

// At returns the constraint for a 1-based sentence position.
func (c *Constraints) At(position int) PositionConstraint {
	if position < 1 || position > mnemonic.WordCount {
		return PositionConstraint{}
	}
	return c[position-1]
}

// Last returns the constraint for the final position.
func (c *Constraints) Last() PositionConstraint {
	return c.At(mnemonic.WordCount)
}

// constraintFile is the on-disk shape: positions in sentence order,
// missing trailing entries treated as unconstrained.
type constraintFile struct {
	Positions []PositionConstraint `json:"positions"`
}

// LoadConstraints reads a constraint description from a JSON file.
func LoadConstraints(path string) (Constraints, error) {
	var cs Constraints

	data, err := os.ReadFile(path)
	if err != nil {
		return cs, fmt.Errorf("reading constraints: %w", err)
	}

	var file constraintFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cs, fmt.Errorf("parsing constraints: %w", err)
	}
	if len(file.Positions) > mnemonic.WordCount {
		return cs, fmt.Errorf("constraints describe %d positions, want at most %d", len(file.Positions), mnemonic.WordCount)
	}

	copy(cs[:], file.Positions)
	return cs, nil
}
