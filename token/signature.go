package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is the three-component ECDSA signature of a permit digest.
// V is the recovery identifier, normalized to 0 or 1.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// SignatureFromBytes parses a 65-byte [R || S || V] signature. V may be given
// as 0/1 or in the legacy 27/28 form.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != 65 {
		return Signature{}, fmt.Errorf("signature must be 65 bytes, got %d", len(b))
	}
	v := b[64]
	if v == 27 || v == 28 {
		v -= 27
	}
	if v > 1 {
		return Signature{}, fmt.Errorf("invalid recovery id %d", b[64])
	}
	var sig Signature
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	sig.V = v
	return sig, nil
}

// Bytes returns the signature in 65-byte [R || S || V] form with V in {0, 1}.
func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

// Recoverer recovers the signing identity from a digest and signature.
// Implementations return the zero address or an error when recovery fails.
type Recoverer interface {
	Recover(digest [32]byte, sig Signature) (common.Address, error)
}

// ECRecoverer recovers secp256k1 signatures, matching the usual
// keccak256/ecrecover contract environment.
type ECRecoverer struct{}

// Recover returns the address whose key produced sig over digest.
func (ECRecoverer) Recover(digest [32]byte, sig Signature) (common.Address, error) {
	pub, err := crypto.SigToPub(digest[:], sig.Bytes())
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
