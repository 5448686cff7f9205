package mnemonic

import (
	"errors"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Layout of a 12-word sentence: twelve 11-bit word indices packing
// 128 bits of entropy followed by a 4-bit checksum.
const (
	WordCount      = 12
	PrefixWords    = WordCount - 1
	BitsPerWord    = 11
	EntropyBits    = 128
	ChecksumBits   = 4
	DictionarySize = 2048
)

// Common errors for dictionary and sentence operations
var (
	ErrUnknownWord  = errors.New("word not in dictionary")
	ErrPrefixLength = errors.New("prefix must contain exactly 11 words")
	ErrWordCount    = errors.New("sentence must contain exactly 12 words")
	ErrChecksum     = errors.New("checksum mismatch")
)

// Dictionary is the fixed ordered word list. Word order is part of the
// encoding: a word's position is its 11-bit value.
type Dictionary struct {
	words []string
	index map[string]int
}

// NewDictionary loads the standard English word list.
func NewDictionary() *Dictionary {
	words := bip39.GetWordList()
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i
	}
	return &Dictionary{words: words, index: index}
}

// Size returns the number of words in the dictionary.
func (d *Dictionary) Size() int {
	return len(d.words)
}

// Words returns a copy of the full word list in dictionary order.
func (d *Dictionary) Words() []string {
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}

// Word returns the word at the given index.
func (d *Dictionary) Word(i int) (string, bool) {
	if i < 0 || i >= len(d.words) {
		return "", false
	}
	return d.words[i], true
}

// Index returns the 11-bit value of a word.
func (d *Dictionary) Index(word string) (int, bool) {
	i, ok := d.index[word]
	return i, ok
}

// Contains reports whether the word is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.index[word]
	return ok
}

// Split breaks a sentence into words on whitespace.
func Split(sentence string) []string {
	return strings.Fields(sentence)
}

// Join assembles words into the canonical single-spaced sentence.
func Join(words []string) string {
	return strings.Join(words, " ")
}

// Seed derives the 64-byte master seed for a sentence with an empty
// passphrase.
func Seed(sentence string) []byte {
	return bip39.NewSeed(sentence, "")
}
