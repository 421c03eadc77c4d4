package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Schema strings hashed into every signed authorization. The permit schema is
// the EIP-2612 type string; the domain schema is the EIP-712 domain with
// name, version, chain id and verifying contract.
const (
	permitTypeString = "Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"
	domainTypeString = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	domainVersion    = "1"
)

var (
	permitTypehash = hash32([]byte(permitTypeString))
	domainTypehash = hash32([]byte(domainTypeString))
)

// PermitTypehash returns the fixed type tag bound into every permit digest.
func PermitTypehash() [32]byte {
	return permitTypehash
}

func hash32(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(data...))
	return out
}

// addressWord left-pads a 20-byte address to a 32-byte word.
func addressWord(a common.Address) [32]byte {
	var out [32]byte
	copy(out[12:], a[:])
	return out
}

func uint64Word(v uint64) [32]byte {
	return uint256.NewInt(v).Bytes32()
}

// domainSeparator scopes signed authorizations to one ledger instance on one
// chain. It is computed once at construction and never changes.
func domainSeparator(name string, chainID uint64, address common.Address) [32]byte {
	nameHash := hash32([]byte(name))
	versionHash := hash32([]byte(domainVersion))
	chainWord := uint64Word(chainID)
	addrWord := addressWord(address)
	return hash32(
		domainTypehash[:],
		nameHash[:],
		versionHash[:],
		chainWord[:],
		addrWord[:],
	)
}

// PermitDigest reconstructs the exact digest a holder signs to authorize an
// allowance: keccak256(0x19 0x01 || separator || structHash) where structHash
// commits to the permit type tag, owner, spender, value, the owner's current
// nonce, and the deadline, each as a 32-byte word.
func PermitDigest(separator [32]byte, owner, spender common.Address, value *uint256.Int, nonce, deadline uint64) [32]byte {
	ownerWord := addressWord(owner)
	spenderWord := addressWord(spender)
	valueWord := value.Bytes32()
	nonceWord := uint64Word(nonce)
	deadlineWord := uint64Word(deadline)
	structHash := hash32(
		permitTypehash[:],
		ownerWord[:],
		spenderWord[:],
		valueWord[:],
		nonceWord[:],
		deadlineWord[:],
	)
	return hash32([]byte{0x19, 0x01}, separator[:], structHash[:])
}
