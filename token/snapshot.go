package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Snapshot is the complete serializable state of a ledger instance.
// Zero balances and allowances are omitted.
type Snapshot struct {
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`

	MaxSupply   *uint256.Int `json:"maxSupply"`
	TotalSupply *uint256.Int `json:"totalSupply"`

	Balances   map[common.Address]*uint256.Int                    `json:"balances,omitempty"`
	Allowances map[common.Address]map[common.Address]*uint256.Int `json:"allowances,omitempty"`
	Nonces     map[common.Address]uint64                          `json:"nonces,omitempty"`

	Admin  common.Address `json:"admin"`
	Halted bool           `json:"halted"`
}

// Snapshot returns a deep copy of the ledger's current state.
func (l *Ledger) Snapshot() *Snapshot {
	s := &Snapshot{
		Name:        l.name,
		Symbol:      l.symbol,
		Decimals:    l.decimals,
		ChainID:     l.chainID,
		Address:     l.address,
		MaxSupply:   l.maxSupply.Clone(),
		TotalSupply: l.totalSupply.Clone(),
		Balances:    make(map[common.Address]*uint256.Int, len(l.balances)),
		Allowances:  make(map[common.Address]map[common.Address]*uint256.Int, len(l.allowances)),
		Nonces:      make(map[common.Address]uint64, len(l.nonces)),
		Admin:       l.admin,
		Halted:      l.halted,
	}
	for addr, b := range l.balances {
		s.Balances[addr] = b.Clone()
	}
	for owner, byOwner := range l.allowances {
		dst := make(map[common.Address]*uint256.Int, len(byOwner))
		for spender, v := range byOwner {
			dst[spender] = v.Clone()
		}
		s.Allowances[owner] = dst
	}
	for addr, n := range l.nonces {
		s.Nonces[addr] = n
	}
	return s
}

// FromSnapshot rebuilds a ledger from a snapshot, validating the ledger
// invariants: sum(balances) == totalSupply <= maxSupply, and no zero-address
// holders.
func FromSnapshot(s *Snapshot, opts Options) (*Ledger, error) {
	if s.MaxSupply == nil || s.TotalSupply == nil {
		return nil, fmt.Errorf("%w: missing supply", ErrInvalidSnapshot)
	}
	if s.Admin == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero admin", ErrInvalidSnapshot)
	}
	if s.TotalSupply.Gt(s.MaxSupply) {
		return nil, fmt.Errorf("%w: total supply exceeds cap", ErrInvalidSnapshot)
	}

	sum := new(uint256.Int)
	l := &Ledger{
		name:        s.Name,
		symbol:      s.Symbol,
		decimals:    s.Decimals,
		chainID:     s.ChainID,
		address:     s.Address,
		maxSupply:   s.MaxSupply.Clone(),
		totalSupply: s.TotalSupply.Clone(),
		balances:    make(map[common.Address]*uint256.Int, len(s.Balances)),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int, len(s.Allowances)),
		nonces:      make(map[common.Address]uint64, len(s.Nonces)),
		admin:       s.Admin,
		halted:      s.Halted,
		separator:   domainSeparator(s.Name, s.ChainID, s.Address),
	}
	l.applyOptions(opts)

	for addr, b := range s.Balances {
		if addr == (common.Address{}) {
			return nil, fmt.Errorf("%w: zero-address holder", ErrInvalidSnapshot)
		}
		if b == nil || b.IsZero() {
			continue
		}
		var overflow bool
		sum, overflow = new(uint256.Int).AddOverflow(sum, b)
		if overflow {
			return nil, fmt.Errorf("%w: balance sum overflows", ErrInvalidSnapshot)
		}
		l.balances[addr] = b.Clone()
	}
	if !sum.Eq(s.TotalSupply) {
		return nil, fmt.Errorf("%w: balances sum to %s, total supply is %s",
			ErrInvalidSnapshot, sum.Dec(), s.TotalSupply.Dec())
	}

	for owner, byOwner := range s.Allowances {
		for spender, v := range byOwner {
			if v == nil || v.IsZero() {
				continue
			}
			l.setAllowance(owner, spender, v)
		}
	}
	for addr, n := range s.Nonces {
		l.nonces[addr] = n
	}
	return l, nil
}
