// Package service hosts a ledger for concurrent callers.
//
// The core ledger assumes serialized execution; Service provides that
// guarantee with a per-instance mutex, persists every successful mutation
// through the storage layer, and logs outcomes. A mutation that cannot be
// persisted is rolled back, so memory and database never diverge.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/pflow-xyz/go-ledger/storage"
	"github.com/pflow-xyz/go-ledger/token"
)

// Config describes a hosted ledger.
type Config struct {
	// Store persists state and journals events.
	Store *storage.Store

	// Ledger is used to create the instance when the store is empty.
	// Its Sink is ignored; events always go to the store's journal.
	Ledger token.Config

	Log zerolog.Logger
}

// Service is a mutex-serialized ledger host.
type Service struct {
	mu     sync.Mutex
	ledger *token.Ledger
	store  *storage.Store
	opts   token.Options
	log    zerolog.Logger
}

// Open loads the ledger from the store, or creates it from cfg.Ledger when
// the store is empty.
func Open(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("service: store is required")
	}
	opts := cfg.Ledger.Options
	opts.Sink = cfg.Store

	snap, err := cfg.Store.LoadSnapshot()
	switch {
	case errors.Is(err, storage.ErrNoLedger):
		if cfg.Ledger.Creator == (common.Address{}) {
			// No stored ledger and nothing to create one from.
			return nil, storage.ErrNoLedger
		}
		lcfg := cfg.Ledger
		lcfg.Options = opts
		ledger, err := token.New(lcfg)
		if err != nil {
			return nil, err
		}
		if err := cfg.Store.SaveSnapshot(ledger.Snapshot()); err != nil {
			return nil, fmt.Errorf("persist new ledger: %w", err)
		}
		cfg.Log.Info().Str("name", ledger.Name()).Str("symbol", ledger.Symbol()).Msg("ledger created")
		return &Service{ledger: ledger, store: cfg.Store, opts: opts, log: cfg.Log}, nil
	case err != nil:
		return nil, err
	}

	ledger, err := token.FromSnapshot(snap, opts)
	if err != nil {
		return nil, err
	}
	cfg.Log.Info().Str("name", ledger.Name()).Msg("ledger loaded")
	return &Service{ledger: ledger, store: cfg.Store, opts: opts, log: cfg.Log}, nil
}

// mutate serializes a ledger operation and persists the result. If the
// snapshot save fails, the in-memory mutation is discarded.
func (s *Service) mutate(ctx context.Context, op string, fn func(*token.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.ledger.Snapshot()
	if err := fn(s.ledger); err != nil {
		s.log.Debug().Str("op", op).Err(err).Msg("ledger operation rejected")
		return err
	}
	if err := s.store.SaveSnapshot(s.ledger.Snapshot()); err != nil {
		restored, rerr := token.FromSnapshot(before, s.opts)
		if rerr != nil {
			return fmt.Errorf("persist %s: %w (rollback failed: %v)", op, err, rerr)
		}
		s.ledger = restored
		return fmt.Errorf("persist %s: %w", op, err)
	}
	s.log.Info().Str("op", op).Msg("ledger operation applied")
	return nil
}

// Transfer moves amount from caller to to.
func (s *Service) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return s.mutate(ctx, "transfer", func(l *token.Ledger) error {
		return l.Transfer(caller, to, amount)
	})
}

// TransferFrom moves amount from from to to using caller's allowance.
func (s *Service) TransferFrom(ctx context.Context, caller, from, to common.Address, amount *uint256.Int) error {
	return s.mutate(ctx, "transfer_from", func(l *token.Ledger) error {
		return l.TransferFrom(caller, from, to, amount)
	})
}

// Approve sets caller's allowance for spender.
func (s *Service) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) error {
	return s.mutate(ctx, "approve", func(l *token.Ledger) error {
		return l.Approve(caller, spender, amount)
	})
}

// IncreaseAllowance raises caller's allowance for spender by added.
func (s *Service) IncreaseAllowance(ctx context.Context, caller, spender common.Address, added *uint256.Int) error {
	return s.mutate(ctx, "increase_allowance", func(l *token.Ledger) error {
		return l.IncreaseAllowance(caller, spender, added)
	})
}

// DecreaseAllowance lowers caller's allowance for spender by subtracted.
func (s *Service) DecreaseAllowance(ctx context.Context, caller, spender common.Address, subtracted *uint256.Int) error {
	return s.mutate(ctx, "decrease_allowance", func(l *token.Ledger) error {
		return l.DecreaseAllowance(caller, spender, subtracted)
	})
}

// Permit applies an offline-signed authorization.
func (s *Service) Permit(ctx context.Context, owner, spender common.Address, value *uint256.Int, deadline uint64, sig token.Signature) error {
	return s.mutate(ctx, "permit", func(l *token.Ledger) error {
		return l.Permit(owner, spender, value, deadline, sig)
	})
}

// Mint credits amount to to. Admin only.
func (s *Service) Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return s.mutate(ctx, "mint", func(l *token.Ledger) error {
		return l.Mint(caller, to, amount)
	})
}

// Burn destroys amount from caller's balance.
func (s *Service) Burn(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return s.mutate(ctx, "burn", func(l *token.Ledger) error {
		return l.Burn(caller, amount)
	})
}

// BurnFrom destroys amount from from's balance using caller's allowance.
func (s *Service) BurnFrom(ctx context.Context, caller, from common.Address, amount *uint256.Int) error {
	return s.mutate(ctx, "burn_from", func(l *token.Ledger) error {
		return l.BurnFrom(caller, from, amount)
	})
}

// TransferAdmin hands the admin role to newAdmin.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin common.Address) error {
	return s.mutate(ctx, "transfer_admin", func(l *token.Ledger) error {
		return l.TransferAdmin(caller, newAdmin)
	})
}

// Halt suspends value-moving operations.
func (s *Service) Halt(ctx context.Context, caller common.Address) error {
	return s.mutate(ctx, "halt", func(l *token.Ledger) error {
		return l.Halt(caller)
	})
}

// Resume lifts a halt.
func (s *Service) Resume(ctx context.Context, caller common.Address) error {
	return s.mutate(ctx, "resume", func(l *token.Ledger) error {
		return l.Resume(caller)
	})
}

// Balance returns the balance of addr.
func (s *Service) Balance(addr common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceOf(addr)
}

// Allowance returns what spender may move on behalf of owner.
func (s *Service) Allowance(owner, spender common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Allowance(owner, spender)
}

// Nonce returns the next authorization nonce for owner.
func (s *Service) Nonce(owner common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Nonce(owner)
}

// Snapshot returns a deep copy of the current ledger state.
func (s *Service) Snapshot() *token.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// DomainSeparator returns the digest scoping permits to this instance.
func (s *Service) DomainSeparator() [32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.DomainSeparator()
}

// Events returns the event journal in append order.
func (s *Service) Events() ([]token.Event, error) {
	return s.store.Events()
}
