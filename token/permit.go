package token

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Permit applies an offline-signed authorization: on success the allowance
// owner→spender is set to value and the owner's nonce advances by one, which
// permanently invalidates the signed digest for any later submission.
//
// The digest is reconstructed from the owner's current nonce, so a payload can
// verify at most once; a replay recovers a different identity and fails with
// ErrInvalidSignature. A failed verification leaves the ledger untouched,
// including the nonce, so a corrected signature for the same intent can still
// be submitted.
//
// The deadline is an inclusive unix timestamp. Permits are not gated by the
// halt flag; they move no value.
func (l *Ledger) Permit(owner, spender common.Address, value *uint256.Int, deadline uint64, sig Signature) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	now := l.now().Unix()
	if now < 0 || uint64(now) > deadline {
		return ErrExpired
	}

	digest := PermitDigest(l.separator, owner, spender, value, l.nonces[owner], deadline)
	recovered, err := l.recover.Recover(digest, sig)
	if err != nil || recovered == (common.Address{}) || recovered != owner {
		return ErrInvalidSignature
	}

	l.nonces[owner]++
	l.setAllowance(owner, spender, value)
	l.emit(Event{Type: EventApproval, From: owner, To: spender, Amount: value.Clone()})
	return nil
}

// SignPermit signs an authorization for the given domain separator with an
// ECDSA secp256k1 key. The nonce must be the owner's current ledger nonce at
// submission time.
func SignPermit(key *ecdsa.PrivateKey, separator [32]byte, owner, spender common.Address, value *uint256.Int, nonce, deadline uint64) (Signature, error) {
	digest := PermitDigest(separator, owner, spender, value, nonce, deadline)
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign permit digest: %w", err)
	}
	return SignatureFromBytes(raw)
}
