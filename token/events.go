package token

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// EventType identifies a ledger notification.
type EventType string

const (
	EventTransfer         EventType = "transfer"
	EventApproval         EventType = "approval"
	EventOwnershipChanged EventType = "ownership_changed"
	EventHalted           EventType = "halted"
	EventResumed          EventType = "resumed"
)

// Event is a notification emitted after a successful ledger mutation.
// Field use depends on the type:
//   - transfer: From, To, Amount (mint and burn use the zero address endpoint)
//   - approval: From is the owner, To is the spender, Amount the allowance
//   - ownership_changed: From is the previous admin, To the new one
//   - halted, resumed: no parties
type Event struct {
	ID     string         `json:"id"`
	Type   EventType      `json:"type"`
	From   common.Address `json:"from,omitempty"`
	To     common.Address `json:"to,omitempty"`
	Amount *uint256.Int   `json:"amount,omitempty"`
	At     time.Time      `json:"at"`
}

// Sink receives events from a Ledger. Emit is called synchronously after the
// state change has been applied; implementations must not call back into the
// ledger.
type Sink interface {
	Emit(Event)
}

// MemorySink collects events in order, for tests and in-process consumers.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit appends the event to the sink.
func (s *MemorySink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of all collected events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Last returns the most recent event, or a zero Event if none were emitted.
func (s *MemorySink) Last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return Event{}
	}
	return s.events[len(s.events)-1]
}

func (l *Ledger) emit(e Event) {
	if l.sink == nil {
		return
	}
	e.ID = uuid.New().String()
	e.At = l.now()
	l.sink.Emit(e)
}
