// Package mnemonic provides dictionary handling and checksum arithmetic
// for 12-word recovery phrases.
// This package implements:
// - The fixed 2048-word dictionary with index lookup
// - 11-bit packing of word indices into entropy plus checksum
// - Enumeration of checksum-valid final words for an 11-word prefix
// - Full-sentence validation and master seed derivation
package mnemonic
