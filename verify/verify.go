// Package verify implements the per-task verification step: derive
// the addresses a sentence controls and ask the oracle whether any of
// them holds a balance.
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"seedsleuth/derive"
	"seedsleuth/engine"
	"seedsleuth/mnemonic"
	"seedsleuth/oracle"
)

// AddressSource yields the addresses to check for a sentence.
type AddressSource interface {
	Addresses(sentence string) ([]derive.DerivedAddress, error)
}

// Verifier checks candidate sentences address by address, stopping at
// the first positive balance. It holds no mutable state, so one
// instance serves every pool unit.
type Verifier struct {
	source AddressSource
	oracle oracle.Client
	log    *zap.Logger
}

// NewVerifier wires an address source to an oracle client.
func NewVerifier(source AddressSource, client oracle.Client, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{source: source, oracle: client, log: log}
}

// Verify derives the task's addresses and queries the oracle for each
// until one carries a balance. Oracle errors mean "unknown, keep
// going"; a sentence whose entire derivation fails is reported as not
// found rather than aborting the run.
func (v *Verifier) Verify(ctx context.Context, task *engine.VerificationTask) *engine.VerificationResult {
	start := time.Now()
	res := &engine.VerificationResult{Mnemonic: task.Mnemonic, Score: task.Score}

	addrs, err := v.source.Addresses(task.Mnemonic)
	if err != nil {
		v.log.Debug("derivation incomplete",
			zap.String("task", mnemonic.ShortHash(task.Mnemonic)),
			zap.Int("derived", len(addrs)),
			zap.Error(err))
		if len(addrs) == 0 {
			res.Err = err
			res.Duration = time.Since(start)
			return res
		}
	}

	for _, a := range addrs {
		balance, err := v.oracle.CheckBalance(ctx, a.Address)
		res.AddressesChecked++
		if err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				break
			}
			v.log.Debug("oracle lookup failed",
				zap.String("address", a.Address),
				zap.Error(err))
			continue
		}
		if balance > 0 {
			res.Found = true
			res.Address = a.Address
			res.Path = a.Path
			res.Standard = string(a.Standard)
			res.Balance = balance
			break
		}
	}

	res.Duration = time.Since(start)
	return res
}
