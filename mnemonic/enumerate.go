package mnemonic

import (
	"crypto/sha256"
	"fmt"
)

// Enumerator answers which dictionary words complete an 11-word prefix
// into a checksum-valid sentence. It is a pure function over the
// dictionary; it holds no state beyond the word list.
type Enumerator struct {
	dict *Dictionary
}

// NewEnumerator creates an enumerator over the given dictionary.
func NewEnumerator(dict *Dictionary) *Enumerator {
	return &Enumerator{dict: dict}
}

// Dictionary returns the dictionary the enumerator operates on.
func (e *Enumerator) Dictionary() *Dictionary {
	return e.dict
}

// ValidLastWords returns every dictionary word that, appended to the
// given 11-word prefix, yields a sentence whose embedded 4-bit checksum
// matches the leading 4 bits of the SHA-256 of the packed entropy. The
// result preserves dictionary order. The last word carries 7 free
// entropy bits, so exactly one word per 7-bit pattern survives: 128 of
// the 2048.
func (e *Enumerator) ValidLastWords(prefix []string) ([]string, error) {
	if len(prefix) != PrefixWords {
		return nil, fmt.Errorf("%w: got %d", ErrPrefixLength, len(prefix))
	}
	indices := make([]int, WordCount)
	for i, w := range prefix {
		idx, ok := e.dict.Index(w)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownWord, w)
		}
		indices[i] = idx
	}

	valid := make([]string, 0, DictionarySize/16)
	for cand := 0; cand < e.dict.Size(); cand++ {
		indices[WordCount-1] = cand
		if checksumValid(indices) {
			valid = append(valid, e.dict.words[cand])
		}
	}
	return valid, nil
}

// Validate checks a full 12-word sentence: word count, dictionary
// membership, and the entropy checksum.
func (e *Enumerator) Validate(words []string) error {
	if len(words) != WordCount {
		return fmt.Errorf("%w: got %d", ErrWordCount, len(words))
	}
	indices := make([]int, WordCount)
	for i, w := range words {
		idx, ok := e.dict.Index(w)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownWord, w)
		}
		indices[i] = idx
	}
	if !checksumValid(indices) {
		return ErrChecksum
	}
	return nil
}

// IsValid reports whether the sentence passes Validate.
func (e *Enumerator) IsValid(sentence string) bool {
	return e.Validate(Split(sentence)) == nil
}

// packEntropy folds twelve 11-bit indices into 16 entropy bytes plus
// the trailing 4-bit checksum. Bits are consumed most significant
// first, matching the standard encoding.
func packEntropy(indices []int) (entropy [EntropyBits / 8]byte, checksum byte) {
	var acc uint32
	var nbits uint
	out := 0
	for _, idx := range indices {
		acc = acc<<BitsPerWord | uint32(idx)
		nbits += BitsPerWord
		for nbits >= 8 && out < len(entropy) {
			nbits -= 8
			entropy[out] = byte(acc >> nbits)
			out++
		}
	}
	// 132 bits total: 16 bytes emitted, 4 bits remain.
	checksum = byte(acc) & 0x0F
	return entropy, checksum
}

// checksumValid recomputes the hash checksum over the packed entropy
// and compares it to the embedded nibble.
func checksumValid(indices []int) bool {
	entropy, embedded := packEntropy(indices)
	sum := sha256.Sum256(entropy[:])
	return sum[0]>>4 == embedded
}
