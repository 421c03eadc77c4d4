package token

import (
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// newPermitLedger creates a ledger whose creator is derived from a fresh
// secp256k1 key, so permits can be signed with a real signature.
func newPermitLedger(t *testing.T) (*Ledger, *ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)

	l, err := New(Config{
		Name:          "Test Token",
		Symbol:        "TST",
		Decimals:      18,
		ChainID:       1337,
		Address:       common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		MaxSupply:     uint256.NewInt(2000000),
		InitialSupply: uint256.NewInt(1000000),
		Creator:       owner,
		Options:       Options{Now: testClock()},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, key, owner
}

func futureDeadline() uint64 {
	return uint64(testClock()().Unix()) + 3600
}

func TestPermit(t *testing.T) {
	l, key, owner := newPermitLedger(t)

	deadline := futureDeadline()
	sig, err := SignPermit(key, l.DomainSeparator(), owner, spend, uint256.NewInt(500), l.Nonce(owner), deadline)
	if err != nil {
		t.Fatalf("SignPermit: %v", err)
	}

	if err := l.Permit(owner, spend, uint256.NewInt(500), deadline, sig); err != nil {
		t.Fatalf("Permit: %v", err)
	}
	if got := l.Allowance(owner, spend); !got.Eq(uint256.NewInt(500)) {
		t.Errorf("allowance = %s, want 500", got.Dec())
	}
	if got := l.Nonce(owner); got != 1 {
		t.Errorf("nonce = %d, want 1", got)
	}

	// Resubmitting the identical payload must fail, not silently no-op:
	// the digest now commits to the advanced nonce.
	if err := l.Permit(owner, spend, uint256.NewInt(500), deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("replay: got %v, want ErrInvalidSignature", err)
	}
	if got := l.Allowance(owner, spend); !got.Eq(uint256.NewInt(500)) {
		t.Errorf("replay changed allowance to %s", got.Dec())
	}
	if got := l.Nonce(owner); got != 1 {
		t.Errorf("replay advanced nonce to %d", got)
	}
}

func TestPermitDeadline(t *testing.T) {
	l, key, owner := newPermitLedger(t)
	now := uint64(testClock()().Unix())

	// Equality with the deadline is still valid.
	sig, err := SignPermit(key, l.DomainSeparator(), owner, spend, uint256.NewInt(10), l.Nonce(owner), now)
	if err != nil {
		t.Fatalf("SignPermit: %v", err)
	}
	if err := l.Permit(owner, spend, uint256.NewInt(10), now, sig); err != nil {
		t.Errorf("permit at deadline: %v", err)
	}

	// One second past is expired.
	past := now - 1
	sig, err = SignPermit(key, l.DomainSeparator(), owner, spend, uint256.NewInt(10), l.Nonce(owner), past)
	if err != nil {
		t.Fatalf("SignPermit: %v", err)
	}
	if err := l.Permit(owner, spend, uint256.NewInt(10), past, sig); !errors.Is(err, ErrExpired) {
		t.Errorf("expired permit: got %v, want ErrExpired", err)
	}
}

func TestPermitZeroIdentity(t *testing.T) {
	l, _, owner := newPermitLedger(t)

	err := l.Permit(common.Address{}, spend, uint256.NewInt(1), futureDeadline(), Signature{})
	if !errors.Is(err, ErrZeroAddress) {
		t.Errorf("zero owner: got %v, want ErrZeroAddress", err)
	}
	err = l.Permit(owner, common.Address{}, uint256.NewInt(1), futureDeadline(), Signature{})
	if !errors.Is(err, ErrZeroAddress) {
		t.Errorf("zero spender: got %v, want ErrZeroAddress", err)
	}
}

func TestPermitWrongSigner(t *testing.T) {
	l, _, owner := newPermitLedger(t)

	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	deadline := futureDeadline()
	sig, err := SignPermit(other, l.DomainSeparator(), owner, spend, uint256.NewInt(500), l.Nonce(owner), deadline)
	if err != nil {
		t.Fatalf("SignPermit: %v", err)
	}

	if err := l.Permit(owner, spend, uint256.NewInt(500), deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("wrong signer: got %v, want ErrInvalidSignature", err)
	}

	// A failed verification consumes nothing: the same intent can be
	// resubmitted with a corrected signature.
	if got := l.Nonce(owner); got != 0 {
		t.Errorf("failed permit advanced nonce to %d", got)
	}
	if !l.Allowance(owner, spend).IsZero() {
		t.Error("failed permit set an allowance")
	}
}

func TestPermitDomainBinding(t *testing.T) {
	l, key, owner := newPermitLedger(t)

	// Sign against a different deployment: same fields, other chain.
	foreign := domainSeparator(l.Name(), l.ChainID()+1, l.Address())
	deadline := futureDeadline()
	sig, err := SignPermit(key, foreign, owner, spend, uint256.NewInt(500), l.Nonce(owner), deadline)
	if err != nil {
		t.Fatalf("SignPermit: %v", err)
	}

	if err := l.Permit(owner, spend, uint256.NewInt(500), deadline, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("cross-chain permit: got %v, want ErrInvalidSignature", err)
	}
}

// stubRecoverer maps known digests to fixed identities, standing in for the
// external recovery service.
type stubRecoverer map[[32]byte]common.Address

func (r stubRecoverer) Recover(digest [32]byte, _ Signature) (common.Address, error) {
	return r[digest], nil
}

func TestPermitInjectedRecoverer(t *testing.T) {
	stub := stubRecoverer{}
	l, err := New(Config{
		Name:          "Test Token",
		Symbol:        "TST",
		ChainID:       1337,
		Address:       common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		MaxSupply:     uint256.NewInt(2000000),
		InitialSupply: uint256.NewInt(1000000),
		Creator:       alice,
		Options:       Options{Recover: stub, Now: testClock()},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	deadline := futureDeadline()
	digest := PermitDigest(l.DomainSeparator(), alice, spend, uint256.NewInt(42), l.Nonce(alice), deadline)
	stub[digest] = alice

	if err := l.Permit(alice, spend, uint256.NewInt(42), deadline, Signature{}); err != nil {
		t.Fatalf("Permit with stub recoverer: %v", err)
	}
	if got := l.Allowance(alice, spend); !got.Eq(uint256.NewInt(42)) {
		t.Errorf("allowance = %s, want 42", got.Dec())
	}

	// Unknown digest recovers the zero address, which must be rejected.
	if err := l.Permit(alice, spend, uint256.NewInt(43), deadline, Signature{}); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("zero recovery: got %v, want ErrInvalidSignature", err)
	}
}

func TestSignatureFromBytes(t *testing.T) {
	raw := make([]byte, 65)
	raw[0] = 0xaa
	raw[63] = 0xbb

	for v, want := range map[byte]byte{0: 0, 1: 1, 27: 0, 28: 1} {
		raw[64] = v
		sig, err := SignatureFromBytes(raw)
		if err != nil {
			t.Fatalf("v=%d: %v", v, err)
		}
		if sig.V != want {
			t.Errorf("v=%d normalized to %d, want %d", v, sig.V, want)
		}
	}

	raw[64] = 2
	if _, err := SignatureFromBytes(raw); err == nil {
		t.Error("recovery id 2 should be rejected")
	}
	if _, err := SignatureFromBytes(raw[:64]); err == nil {
		t.Error("64-byte signature should be rejected")
	}
}
