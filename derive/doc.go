// Package derive realizes addresses from a sentence through
// hierarchical-deterministic key derivation.
//
// This package implements:
// - The four address standards: legacy, nested segwit, native segwit, taproot
// - Path specs describing which accounts and indices to realize
// - Deterministic derivation with per-address error collection
package derive
