package derive

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"seedsleuth/mnemonic"
)

// coinBitcoin is the coin type field used in every derivation path.
const coinBitcoin = 0

// PathSpec names one region of the key tree to realize: a standard,
// an account, and a run of consecutive external-chain indices.
type PathSpec struct {
	Standard Standard `json:"standard" mapstructure:"standard"`
	Account  uint32   `json:"account" mapstructure:"account"`
	Start    uint32   `json:"start" mapstructure:"start"`
	Count    uint32   `json:"count" mapstructure:"count"`
}

// DefaultPathSpecs covers account 0 of every standard with the first
// count indices.
func DefaultPathSpecs(count uint32) []PathSpec {
	if count == 0 {
		count = 1
	}
	specs := make([]PathSpec, 0, len(AllStandards()))
	for _, std := range AllStandards() {
		specs = append(specs, PathSpec{Standard: std, Count: count})
	}
	return specs
}

// DerivedAddress is one realized address with its provenance.
type DerivedAddress struct {
	Address  string   `json:"address"`
	Path     string   `json:"path"`
	Standard Standard `json:"standard"`
	Account  uint32   `json:"account"`
	Index    uint32   `json:"index"`
}

// Deriver realizes the configured path specs for a sentence.
// Derivation is pure: the same sentence and specs always produce the
// same addresses.
type Deriver struct {
	params *chaincfg.Params
	specs  []PathSpec
}

// NewDeriver creates a deriver for the given network. Nil params
// selects mainnet; empty specs select the defaults with one index per
// standard.
func NewDeriver(params *chaincfg.Params, specs []PathSpec) *Deriver {
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	if len(specs) == 0 {
		specs = DefaultPathSpecs(1)
	}
	return &Deriver{params: params, specs: specs}
}

// Specs returns the path specs the deriver realizes per sentence.
func (d *Deriver) Specs() []PathSpec {
	return d.specs
}

// AddressCount returns how many addresses each sentence produces when
// every spec derives cleanly.
func (d *Deriver) AddressCount() int {
	total := 0
	for _, spec := range d.specs {
		total += int(spec.Count)
	}
	return total
}

// Addresses derives every spec'd address for the sentence. Individual
// failures do not abort the batch: every address that derived is
// returned alongside a joined error describing the rest, and the
// caller decides skip versus abort.
func (d *Deriver) Addresses(sentence string) ([]DerivedAddress, error) {
	seed := mnemonic.Seed(sentence)
	master, err := hdkeychain.NewMaster(seed, d.params)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	var out []DerivedAddress
	var errs []error
	for _, spec := range d.specs {
		addrs, err := d.deriveSpec(master, spec)
		out = append(out, addrs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// deriveSpec walks purpose'/coin'/account'/0 and realizes each index
// on the external chain.
func (d *Deriver) deriveSpec(master *hdkeychain.ExtendedKey, spec PathSpec) ([]DerivedAddress, error) {
	purpose, err := spec.Standard.Purpose()
	if err != nil {
		return nil, err
	}

	chain := master
	for _, step := range []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + coinBitcoin,
		hdkeychain.HardenedKeyStart + spec.Account,
		0,
	} {
		if chain, err = chain.Derive(step); err != nil {
			return nil, fmt.Errorf("%s chain: %w", spec.Standard, err)
		}
	}

	var out []DerivedAddress
	var errs []error
	for i := uint32(0); i < spec.Count; i++ {
		index := spec.Start + i
		child, err := chain.Derive(index)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s index %d: %w", spec.Standard, index, err))
			continue
		}
		pub, err := child.ECPubKey()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s index %d: %w", spec.Standard, index, err))
			continue
		}
		addr, err := addressFor(spec.Standard, pub, d.params)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s index %d: %w", spec.Standard, index, err))
			continue
		}
		out = append(out, DerivedAddress{
			Address:  addr,
			Path:     fmt.Sprintf("m/%d'/%d'/%d'/0/%d", purpose, coinBitcoin, spec.Account, index),
			Standard: spec.Standard,
			Account:  spec.Account,
			Index:    index,
		})
	}
	return out, errors.Join(errs...)
}

// addressFor realizes the script-type address for one public key.
func addressFor(std Standard, pub *btcec.PublicKey, params *chaincfg.Params) (string, error) {
	switch std {
	case StandardLegacy:
		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil

	case StandardNestedSegwit:
		program := btcutil.Hash160(pub.SerializeCompressed())
		redeem, err := txscript.NewScriptBuilder().AddOp(txscript.OP_0).AddData(program).Script()
		if err != nil {
			return "", err
		}
		addr, err := btcutil.NewAddressScriptHash(redeem, params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil

	case StandardNativeSegwit:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil

	case StandardTaproot:
		// The output key must be the 32-byte x-only form of the tweaked
		// public key, parity byte dropped.
		tweaked := txscript.ComputeTaprootKeyNoScript(pub)
		addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(tweaked), params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStandard, string(std))
	}
}
