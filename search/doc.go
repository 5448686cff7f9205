// Package search turns partial knowledge of a sentence into a ranked
// list of checksum-valid candidates.
//
// This package implements:
// - Per-position constraints loaded from a JSON description
// - Dictionary filtering against length, syllable, pattern, semantic and rhyme facets
// - Score-guided beam search with pruning and last-word enumeration
// - Conversion of ranked sentences into verification tasks
package search
