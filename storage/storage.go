// Package storage persists ledger state and the event journal in SQLite.
//
// The snapshot tables hold the full ledger state and are rewritten in one
// transaction per save; the events table is append-only.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/pflow-xyz/go-ledger/token"
)

// ErrNoLedger is returned by LoadSnapshot when the database holds no ledger.
var ErrNoLedger = errors.New("storage: no ledger in database")

// Store handles SQLite persistence for one ledger instance.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an ephemeral store.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// table-lock errors between the snapshot and journal writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		chain_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		max_supply TEXT NOT NULL,
		total_supply TEXT NOT NULL,
		admin TEXT NOT NULL,
		halted INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS balances (
		address TEXT PRIMARY KEY,
		amount TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS allowances (
		owner TEXT NOT NULL,
		spender TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (owner, spender)
	);
	CREATE TABLE IF NOT EXISTS nonces (
		address TEXT PRIMARY KEY,
		nonce INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		from_addr TEXT NOT NULL,
		to_addr TEXT NOT NULL,
		amount TEXT,
		at TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the stored ledger state with snap, atomically.
func (s *Store) SaveSnapshot(snap *token.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	halted := 0
	if snap.Halted {
		halted = 1
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO meta
		(id, name, symbol, decimals, chain_id, address, max_supply, total_supply, admin, halted)
		VALUES (0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Name, snap.Symbol, snap.Decimals, int64(snap.ChainID), snap.Address.Hex(),
		snap.MaxSupply.Dec(), snap.TotalSupply.Dec(), snap.Admin.Hex(), halted)
	if err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	for _, table := range []string{"balances", "allowances", "nonces"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for addr, amount := range snap.Balances {
		if _, err := tx.Exec("INSERT INTO balances (address, amount) VALUES (?, ?)",
			addr.Hex(), amount.Dec()); err != nil {
			return fmt.Errorf("save balance: %w", err)
		}
	}
	for owner, byOwner := range snap.Allowances {
		for spender, amount := range byOwner {
			if _, err := tx.Exec("INSERT INTO allowances (owner, spender, amount) VALUES (?, ?, ?)",
				owner.Hex(), spender.Hex(), amount.Dec()); err != nil {
				return fmt.Errorf("save allowance: %w", err)
			}
		}
	}
	for addr, nonce := range snap.Nonces {
		if _, err := tx.Exec("INSERT INTO nonces (address, nonce) VALUES (?, ?)",
			addr.Hex(), int64(nonce)); err != nil {
			return fmt.Errorf("save nonce: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored ledger state. Returns ErrNoLedger when the
// database has not been initialized.
func (s *Store) LoadSnapshot() (*token.Snapshot, error) {
	snap := &token.Snapshot{
		Balances:   make(map[common.Address]*uint256.Int),
		Allowances: make(map[common.Address]map[common.Address]*uint256.Int),
		Nonces:     make(map[common.Address]uint64),
	}

	var address, maxSupply, totalSupply, admin string
	var chainID int64
	var halted int
	err := s.db.QueryRow(`SELECT name, symbol, decimals, chain_id, address,
		max_supply, total_supply, admin, halted FROM meta WHERE id = 0`).
		Scan(&snap.Name, &snap.Symbol, &snap.Decimals, &chainID, &address,
			&maxSupply, &totalSupply, &admin, &halted)
	if err == sql.ErrNoRows {
		return nil, ErrNoLedger
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	snap.ChainID = uint64(chainID)
	snap.Address = common.HexToAddress(address)
	snap.Admin = common.HexToAddress(admin)
	snap.Halted = halted != 0
	if snap.MaxSupply, err = uint256.FromDecimal(maxSupply); err != nil {
		return nil, fmt.Errorf("load max supply: %w", err)
	}
	if snap.TotalSupply, err = uint256.FromDecimal(totalSupply); err != nil {
		return nil, fmt.Errorf("load total supply: %w", err)
	}

	if err := s.loadBalances(snap); err != nil {
		return nil, err
	}
	if err := s.loadAllowances(snap); err != nil {
		return nil, err
	}
	if err := s.loadNonces(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadBalances(snap *token.Snapshot) error {
	rows, err := s.db.Query("SELECT address, amount FROM balances")
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr, amount string
		if err := rows.Scan(&addr, &amount); err != nil {
			return fmt.Errorf("scan balance: %w", err)
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return fmt.Errorf("balance %s: %w", addr, err)
		}
		snap.Balances[common.HexToAddress(addr)] = v
	}
	return rows.Err()
}

func (s *Store) loadAllowances(snap *token.Snapshot) error {
	rows, err := s.db.Query("SELECT owner, spender, amount FROM allowances")
	if err != nil {
		return fmt.Errorf("load allowances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var owner, spender, amount string
		if err := rows.Scan(&owner, &spender, &amount); err != nil {
			return fmt.Errorf("scan allowance: %w", err)
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return fmt.Errorf("allowance %s/%s: %w", owner, spender, err)
		}
		o := common.HexToAddress(owner)
		if snap.Allowances[o] == nil {
			snap.Allowances[o] = make(map[common.Address]*uint256.Int)
		}
		snap.Allowances[o][common.HexToAddress(spender)] = v
	}
	return rows.Err()
}

func (s *Store) loadNonces(snap *token.Snapshot) error {
	rows, err := s.db.Query("SELECT address, nonce FROM nonces")
	if err != nil {
		return fmt.Errorf("load nonces: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr string
		var nonce int64
		if err := rows.Scan(&addr, &nonce); err != nil {
			return fmt.Errorf("scan nonce: %w", err)
		}
		snap.Nonces[common.HexToAddress(addr)] = uint64(nonce)
	}
	return rows.Err()
}

// AppendEvent adds an event to the journal.
func (s *Store) AppendEvent(e token.Event) error {
	amount := sql.NullString{}
	if e.Amount != nil {
		amount = sql.NullString{String: e.Amount.Dec(), Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO events (id, type, from_addr, to_addr, amount, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.From.Hex(), e.To.Hex(), amount, e.At.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Emit implements token.Sink. Journal failures are logged, not propagated:
// the ledger mutation has already been applied and event delivery is an
// observability concern.
func (s *Store) Emit(e token.Event) {
	if err := s.AppendEvent(e); err != nil {
		s.log.Error().Err(err).Str("event", string(e.Type)).Msg("event journal write failed")
	}
}

// Events returns the journal in append order.
func (s *Store) Events() ([]token.Event, error) {
	rows, err := s.db.Query("SELECT id, type, from_addr, to_addr, amount, at FROM events ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []token.Event
	for rows.Next() {
		var e token.Event
		var typ, from, to, at string
		var amount sql.NullString
		if err := rows.Scan(&e.ID, &typ, &from, &to, &amount, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = token.EventType(typ)
		e.From = common.HexToAddress(from)
		e.To = common.HexToAddress(to)
		if amount.Valid {
			v, err := uint256.FromDecimal(amount.String)
			if err != nil {
				return nil, fmt.Errorf("event %s: amount: %w", e.ID, err)
			}
			e.Amount = v
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("event %s: timestamp: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
