package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedsleuth/derive"
	"seedsleuth/engine"
)

// stubSource returns a canned address list.
type stubSource struct {
	addrs []derive.DerivedAddress
	err   error
}

func (s *stubSource) Addresses(sentence string) ([]derive.DerivedAddress, error) {
	return s.addrs, s.err
}

// stubOracle maps addresses to balances; unknown addresses error.
type stubOracle struct {
	balances map[string]int64
	calls    []string
}

func (o *stubOracle) CheckBalance(ctx context.Context, address string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	o.calls = append(o.calls, address)
	balance, ok := o.balances[address]
	if !ok {
		return 0, errors.New("endpoint unavailable")
	}
	return balance, nil
}

func addrList(addresses ...string) []derive.DerivedAddress {
	out := make([]derive.DerivedAddress, 0, len(addresses))
	for i, a := range addresses {
		out = append(out, derive.DerivedAddress{
			Address:  a,
			Path:     "m/84'/0'/0'/0/0",
			Standard: derive.StandardNativeSegwit,
			Index:    uint32(i),
		})
	}
	return out
}

func TestVerifyNoBalance(t *testing.T) {
	source := &stubSource{addrs: addrList("addr1", "addr2", "addr3")}
	oracleStub := &stubOracle{balances: map[string]int64{"addr1": 0, "addr2": 0, "addr3": 0}}
	v := NewVerifier(source, oracleStub, nil)

	res := v.Verify(context.Background(), engine.NewVerificationTask("some candidate", 0.5))
	require.NotNil(t, res)
	assert.False(t, res.Found)
	assert.Equal(t, 3, res.AddressesChecked)
	assert.False(t, res.Match())
}

func TestVerifyStopsAtFirstBalance(t *testing.T) {
	source := &stubSource{addrs: addrList("addr1", "addr2", "addr3")}
	oracleStub := &stubOracle{balances: map[string]int64{"addr1": 0, "addr2": 75000, "addr3": 0}}
	v := NewVerifier(source, oracleStub, nil)

	res := v.Verify(context.Background(), engine.NewVerificationTask("target candidate", 0.9))
	assert.True(t, res.Found)
	assert.Equal(t, "addr2", res.Address)
	assert.Equal(t, int64(75000), res.Balance)
	assert.Equal(t, string(derive.StandardNativeSegwit), res.Standard)
	assert.Equal(t, 2, res.AddressesChecked)
	assert.True(t, res.Match())
	// The third address is never queried.
	assert.Equal(t, []string{"addr1", "addr2"}, oracleStub.calls)
}

func TestVerifyOracleErrorsContinue(t *testing.T) {
	source := &stubSource{addrs: addrList("addr1", "addr2")}
	oracleStub := &stubOracle{balances: map[string]int64{"addr2": 50000}}
	v := NewVerifier(source, oracleStub, nil)

	res := v.Verify(context.Background(), engine.NewVerificationTask("flaky candidate", 0.5))
	assert.True(t, res.Found)
	assert.Equal(t, "addr2", res.Address)
	assert.Equal(t, 2, res.AddressesChecked)
}

func TestVerifyDerivationFailure(t *testing.T) {
	source := &stubSource{err: errors.New("bad seed")}
	v := NewVerifier(source, &stubOracle{}, nil)

	res := v.Verify(context.Background(), engine.NewVerificationTask("broken candidate", 0.5))
	assert.False(t, res.Found)
	assert.Error(t, res.Err)
	assert.Zero(t, res.AddressesChecked)
}

func TestVerifyPartialDerivationStillChecks(t *testing.T) {
	source := &stubSource{
		addrs: addrList("addr1"),
		err:   errors.New("taproot spec failed"),
	}
	oracleStub := &stubOracle{balances: map[string]int64{"addr1": 0}}
	v := NewVerifier(source, oracleStub, nil)

	res := v.Verify(context.Background(), engine.NewVerificationTask("partial candidate", 0.5))
	assert.False(t, res.Found)
	assert.Equal(t, 1, res.AddressesChecked)
	assert.Nil(t, res.Err)
}

func TestVerifyContextCancelled(t *testing.T) {
	source := &stubSource{addrs: addrList("addr1", "addr2", "addr3")}
	v := NewVerifier(source, &stubOracle{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := v.Verify(ctx, engine.NewVerificationTask("cancelled candidate", 0.5))
	assert.False(t, res.Found)
	assert.ErrorIs(t, res.Err, context.Canceled)
	// The loop stops on the first cancelled lookup.
	assert.Equal(t, 1, res.AddressesChecked)
}
