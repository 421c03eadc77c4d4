// Package token implements a fungible-asset ledger with delegated transfer
// rights, a fixed supply cap, administrative halt/resume controls, and
// signature-based offline authorizations (permits).
//
// A Ledger owns all mutable state: total supply, per-holder balances,
// per-owner/per-spender allowances, and per-holder authorization nonces.
// Every mutation takes the caller identity as an explicit parameter and either
// applies completely or returns a sentinel error leaving state untouched.
// Arithmetic is 256-bit and checked; nothing wraps.
//
// The ledger itself is not safe for concurrent use. Hosts that serve multiple
// callers must serialize access, as the service package does.
package token

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Options carries the injected collaborators of a Ledger. Zero values select
// production defaults: secp256k1 recovery, the system clock, and no sink.
type Options struct {
	Recover Recoverer
	Now     func() time.Time
	Sink    Sink
}

// Config describes a new ledger instance.
type Config struct {
	Name     string
	Symbol   string
	Decimals uint8

	// ChainID and Address scope signed authorizations to this deployment.
	ChainID uint64
	Address common.Address

	// MaxSupply caps the total supply for the instance's lifetime.
	MaxSupply *uint256.Int

	// InitialSupply is credited to Creator at construction. May be nil.
	InitialSupply *uint256.Int

	// Creator receives the initial supply and becomes the admin.
	Creator common.Address

	Options
}

// Ledger is a single fungible-asset ledger instance.
type Ledger struct {
	name     string
	symbol   string
	decimals uint8
	chainID  uint64
	address  common.Address

	maxSupply   *uint256.Int
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	nonces      map[common.Address]uint64

	admin  common.Address
	halted bool

	separator [32]byte
	recover   Recoverer
	now       func() time.Time
	sink      Sink
}

// New creates a ledger and credits the initial supply to the creator.
func New(cfg Config) (*Ledger, error) {
	if cfg.Creator == (common.Address{}) {
		return nil, fmt.Errorf("creator: %w", ErrZeroAddress)
	}
	if cfg.MaxSupply == nil {
		return nil, fmt.Errorf("token: max supply is required")
	}

	l := &Ledger{
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		decimals:    cfg.Decimals,
		chainID:     cfg.ChainID,
		address:     cfg.Address,
		maxSupply:   cfg.MaxSupply.Clone(),
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
		nonces:      make(map[common.Address]uint64),
		admin:       cfg.Creator,
		separator:   domainSeparator(cfg.Name, cfg.ChainID, cfg.Address),
	}
	l.applyOptions(cfg.Options)

	if cfg.InitialSupply != nil && !cfg.InitialSupply.IsZero() {
		if err := l.credit(cfg.Creator, cfg.InitialSupply); err != nil {
			return nil, err
		}
		l.emit(Event{Type: EventTransfer, To: cfg.Creator, Amount: cfg.InitialSupply.Clone()})
	}
	return l, nil
}

func (l *Ledger) applyOptions(opts Options) {
	l.recover = opts.Recover
	l.now = opts.Now
	l.sink = opts.Sink
	if l.recover == nil {
		l.recover = ECRecoverer{}
	}
	if l.now == nil {
		l.now = time.Now
	}
}

// Name returns the instance name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the instance symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the display decimal count.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// ChainID returns the hosting chain identity bound into permits.
func (l *Ledger) ChainID() uint64 { return l.chainID }

// Address returns the instance address bound into permits.
func (l *Ledger) Address() common.Address { return l.address }

// MaxSupply returns the supply cap.
func (l *Ledger) MaxSupply() *uint256.Int { return l.maxSupply.Clone() }

// TotalSupply returns the current total supply.
func (l *Ledger) TotalSupply() *uint256.Int { return l.totalSupply.Clone() }

// Admin returns the current administrator.
func (l *Ledger) Admin() common.Address { return l.admin }

// Halted reports whether value-moving operations are suspended.
func (l *Ledger) Halted() bool { return l.halted }

// DomainSeparator returns the digest scoping permits to this instance.
func (l *Ledger) DomainSeparator() [32]byte { return l.separator }

// BalanceOf returns the balance of addr; zero for unseen identities.
func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	if b, ok := l.balances[addr]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Allowance returns what spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := l.allowances[owner]; ok {
		if v, ok := a[spender]; ok {
			return v.Clone()
		}
	}
	return new(uint256.Int)
}

// Nonce returns the next authorization nonce for owner.
func (l *Ledger) Nonce(owner common.Address) uint64 {
	return l.nonces[owner]
}

// Transfer moves amount from the caller to to.
func (l *Ledger) Transfer(caller, to common.Address, amount *uint256.Int) error {
	if l.halted {
		return ErrHalted
	}
	if err := l.move(caller, to, amount); err != nil {
		return err
	}
	l.emit(Event{Type: EventTransfer, From: caller, To: to, Amount: amount.Clone()})
	return nil
}

// TransferFrom moves amount from from to to, consuming the caller's allowance.
// The allowance consumption and the balance move apply together or not at all.
func (l *Ledger) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	if l.halted {
		return ErrHalted
	}
	if l.Allowance(from, caller).Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	l.consumeAllowance(from, caller, amount)
	l.emit(Event{Type: EventTransfer, From: from, To: to, Amount: amount.Clone()})
	return nil
}

// Approve sets the caller's allowance for spender to amount, overwriting any
// prior value. Approvals are not gated by the halt flag.
func (l *Ledger) Approve(caller, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	l.setAllowance(caller, spender, amount)
	l.emit(Event{Type: EventApproval, From: caller, To: spender, Amount: amount.Clone()})
	return nil
}

// IncreaseAllowance raises the caller's allowance for spender by added.
func (l *Ledger) IncreaseAllowance(caller, spender common.Address, added *uint256.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	next, overflow := new(uint256.Int).AddOverflow(l.Allowance(caller, spender), added)
	if overflow {
		return ErrAllowanceOverflow
	}
	l.setAllowance(caller, spender, next)
	l.emit(Event{Type: EventApproval, From: caller, To: spender, Amount: next.Clone()})
	return nil
}

// DecreaseAllowance lowers the caller's allowance for spender by subtracted.
// Decreasing below zero is a hard failure, not a floor at zero.
func (l *Ledger) DecreaseAllowance(caller, spender common.Address, subtracted *uint256.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	current := l.Allowance(caller, spender)
	if current.Lt(subtracted) {
		return ErrAllowanceUnderflow
	}
	next := new(uint256.Int).Sub(current, subtracted)
	l.setAllowance(caller, spender, next)
	l.emit(Event{Type: EventApproval, From: caller, To: spender, Amount: next.Clone()})
	return nil
}

// Mint credits amount to to. Admin only, and only while active.
func (l *Ledger) Mint(caller, to common.Address, amount *uint256.Int) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if l.halted {
		return ErrHalted
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	l.emit(Event{Type: EventTransfer, To: to, Amount: amount.Clone()})
	return nil
}

// Burn destroys amount from the caller's balance.
func (l *Ledger) Burn(caller common.Address, amount *uint256.Int) error {
	if l.halted {
		return ErrHalted
	}
	if err := l.debit(caller, amount); err != nil {
		return err
	}
	l.emit(Event{Type: EventTransfer, From: caller, Amount: amount.Clone()})
	return nil
}

// BurnFrom destroys amount from from's balance, consuming the caller's
// allowance.
func (l *Ledger) BurnFrom(caller, from common.Address, amount *uint256.Int) error {
	if l.halted {
		return ErrHalted
	}
	if l.Allowance(from, caller).Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.consumeAllowance(from, caller, amount)
	l.emit(Event{Type: EventTransfer, From: from, Amount: amount.Clone()})
	return nil
}

// TransferAdmin hands the admin role to newAdmin. Not gated by the halt flag.
func (l *Ledger) TransferAdmin(caller, newAdmin common.Address) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if newAdmin == (common.Address{}) {
		return ErrZeroAddress
	}
	prev := l.admin
	l.admin = newAdmin
	l.emit(Event{Type: EventOwnershipChanged, From: prev, To: newAdmin})
	return nil
}

// Halt suspends value-moving and supply-changing operations.
func (l *Ledger) Halt(caller common.Address) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if l.halted {
		return ErrAlreadyInRequestedState
	}
	l.halted = true
	l.emit(Event{Type: EventHalted})
	return nil
}

// Resume lifts a halt.
func (l *Ledger) Resume(caller common.Address) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if !l.halted {
		return ErrAlreadyInRequestedState
	}
	l.halted = false
	l.emit(Event{Type: EventResumed})
	return nil
}

func (l *Ledger) requireAdmin(caller common.Address) error {
	if caller != l.admin {
		return ErrNotAdmin
	}
	return nil
}

// credit increases to's balance and the total supply. Fails if the cap would
// be exceeded; the cap check also rules out balance overflow, since every
// balance is bounded by the total supply.
func (l *Ledger) credit(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	supply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, amount)
	if overflow || supply.Gt(l.maxSupply) {
		return ErrSupplyCapExceeded
	}
	l.totalSupply = supply
	l.setBalance(to, new(uint256.Int).Add(l.BalanceOf(to), amount))
	return nil
}

// debit decreases from's balance and the total supply.
func (l *Ledger) debit(from common.Address, amount *uint256.Int) error {
	balance := l.BalanceOf(from)
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	l.setBalance(from, new(uint256.Int).Sub(balance, amount))
	l.totalSupply = new(uint256.Int).Sub(l.totalSupply, amount)
	return nil
}

// move shifts amount between balances without touching the total supply.
func (l *Ledger) move(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	balance := l.BalanceOf(from)
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	l.setBalance(from, new(uint256.Int).Sub(balance, amount))
	l.setBalance(to, new(uint256.Int).Add(l.BalanceOf(to), amount))
	return nil
}

func (l *Ledger) setBalance(addr common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		delete(l.balances, addr)
		return
	}
	l.balances[addr] = amount
}

func (l *Ledger) setAllowance(owner, spender common.Address, amount *uint256.Int) {
	byOwner, ok := l.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = byOwner
	}
	if amount.IsZero() {
		delete(byOwner, spender)
		if len(byOwner) == 0 {
			delete(l.allowances, owner)
		}
		return
	}
	byOwner[spender] = amount.Clone()
}

// consumeAllowance subtracts amount; callers must have checked sufficiency.
func (l *Ledger) consumeAllowance(owner, spender common.Address, amount *uint256.Int) {
	remaining := new(uint256.Int).Sub(l.Allowance(owner, spender), amount)
	l.setAllowance(owner, spender, remaining)
}
