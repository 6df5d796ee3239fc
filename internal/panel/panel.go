// Package panel drives the organizer and buyer views: it loads what a
// connected account should see, submits transactions through the wallet and
// re-reads the ledger after every successful submission.
//
// Each panel keeps one State per account with a single loading flag and a
// single error slot. A new operation overwrites the slot; success clears it.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/domain/ticket"
	"github.com/geocoder89/suiticket/internal/query"
	"github.com/geocoder89/suiticket/internal/session"
	"github.com/geocoder89/suiticket/internal/suirpc"
	"github.com/geocoder89/suiticket/internal/txbuilder"
	"github.com/geocoder89/suiticket/internal/wallet"
)

const (
	MsgConnectWallet = "Please connect your wallet first"
	MsgLoadEvents    = "Failed to load events"
	MsgLoadData      = "Failed to load data"
	MsgCreateEvent   = "Failed to create event"
	MsgMintTicket    = "Failed to mint ticket"
	MsgSoldOut       = "Event is sold out"
	MsgEventNotFound = "Event not found"
	msgUnknownError  = "Unknown error"
)

var (
	ErrNotConnected = errors.New("no wallet connected")
	ErrSoldOut      = errors.New("event is sold out")
	// ErrTransaction marks failures while signing, executing or confirming.
	ErrTransaction = errors.New("transaction failed")
	ErrLoad        = errors.New("load failed")
)

// ValidationError carries the human-readable form errors. Nothing was
// submitted when it is returned.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + strings.Join(e.Errors, "; ")
}

// Reader is the query surface the panels read from.
type Reader interface {
	OwnedEvents(ctx context.Context, owner string) query.Result[[]event.Event]
	OwnedTickets(ctx context.Context, owner string) query.Result[[]ticket.Ticket]
	OwnedCounter(ctx context.Context, owner string) query.Result[string]
	AllEvents(ctx context.Context) query.Result[[]event.Event]
}

// Confirmer waits until a digest is readable on the ledger.
type Confirmer interface {
	Await(ctx context.Context, digest string) (*suirpc.TransactionBlock, error)
}

type ActivityLog interface {
	Create(ctx context.Context, req activity.CreateRequest) (activity.Record, error)
}

// Deps are shared by both panels.
type Deps struct {
	Registry  contract.Registry
	Reader    Reader
	Signer    wallet.Signer
	Confirmer Confirmer
	Counters  session.CounterCache
	Activity  ActivityLog
	Log       *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

type State struct {
	Account string          `json:"account"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
	Digest  string          `json:"digest,omitempty"` // last submission that went through
	Events  []event.Event   `json:"events"`
	Tickets []ticket.Ticket `json:"tickets,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Events = append([]event.Event(nil), s.Events...)
	if out.Events == nil {
		out.Events = []event.Event{}
	}
	if s.Tickets != nil {
		out.Tickets = append([]ticket.Ticket(nil), s.Tickets...)
	}
	return out
}

// Store holds one State per account. Writes are whole-field; concurrent
// operations for the same account race and the last write wins.
type Store struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewStore() *Store {
	return &Store{states: make(map[string]*State)}
}

func (s *Store) Snapshot(account string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[account]
	if !ok {
		return State{Account: account, Events: []event.Event{}}
	}
	return st.clone()
}

func (s *Store) update(account string, fn func(st *State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[account]
	if !ok {
		st = &State{Account: account, Events: []event.Event{}}
		s.states[account] = st
	}
	fn(st)
	return st.clone()
}

// DismissError clears the error slot.
func (s *Store) DismissError(account string) State {
	return s.update(account, func(st *State) { st.Error = "" })
}

func (s *Store) Forget(account string) {
	s.mu.Lock()
	delete(s.states, account)
	s.mu.Unlock()
}

func (s *Store) begin(account string) {
	s.update(account, func(st *State) {
		st.Loading = true
		st.Digest = ""
		st.Error = ""
	})
}

func (s *Store) fail(account, msg string) State {
	return s.update(account, func(st *State) {
		st.Loading = false
		st.Error = msg
	})
}

// failMessage renders "<prefix>: <cause>" the way the error slot shows it.
func failMessage(prefix string, err error) string {
	msg := msgUnknownError
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return prefix + ": " + msg
}

// signAndRecord submits call for account and logs the resulting digest to
// the activity log. An empty digest without an error is wallet.ErrNoDigest.
func (d Deps) signAndRecord(ctx context.Context, account string, kind activity.Kind, call txbuilder.Call, objectID string) (string, error) {
	digest, err := d.Signer.SignAndExecute(ctx, account, call)
	if err != nil {
		return "", err
	}
	if digest == "" {
		return "", wallet.ErrNoDigest
	}

	if d.Activity != nil {
		if _, rerr := d.Activity.Create(ctx, activity.CreateRequest{
			Account:  account,
			Kind:     kind,
			Digest:   digest,
			Target:   call.Target,
			ObjectID: objectID,
		}); rerr != nil {
			d.logger().WarnContext(ctx, "record activity failed", "account", account, "digest", digest, "err", rerr)
		}
	}

	return digest, nil
}

func txErr(err error) error {
	return fmt.Errorf("%w: %w", ErrTransaction, err)
}

func disconnected() State {
	return State{Error: MsgConnectWallet, Events: []event.Event{}}
}
