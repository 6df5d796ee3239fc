// Package poller waits for a submitted transaction's execution result to
// become readable. A fullnode may not serve a transaction it has just
// accepted, so the lookup is retried a fixed number of times with a fixed
// delay between failed attempts.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/suiticket/internal/suirpc"
)

const (
	DefaultMaxAttempts = 5
	DefaultDelay       = 1000 * time.Millisecond
)

var (
	ErrNotFoundAfterRetries = errors.New("transaction not found after multiple retries")
	ErrTransactionFailed    = errors.New("transaction failed")
	ErrObjectNotInResult    = errors.New("created object not found in transaction result")
)

// Fetcher looks a transaction up by digest. A nil block with a nil error
// means the node answered but had nothing yet.
type Fetcher interface {
	GetTransactionBlock(ctx context.Context, digest string, opts suirpc.TransactionBlockOptions) (*suirpc.TransactionBlock, error)
}

type FetcherFunc func(ctx context.Context, digest string, opts suirpc.TransactionBlockOptions) (*suirpc.TransactionBlock, error)

func (f FetcherFunc) GetTransactionBlock(ctx context.Context, digest string, opts suirpc.TransactionBlockOptions) (*suirpc.TransactionBlock, error) {
	return f(ctx, digest, opts)
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics is optional; observability.Prom implements it.
type Metrics interface {
	PollAttempt(attempt int, failed bool)
	PollOutcome(outcome string)
}

type Phase int

const (
	PhaseAttempting Phase = iota
	PhaseSucceeded
	PhaseExhausted
	PhaseNotFound
	PhaseCanceled
)

func (p Phase) String() string {
	switch p {
	case PhaseAttempting:
		return "attempting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseExhausted:
		return "exhausted"
	case PhaseNotFound:
		return "not_found"
	case PhaseCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) Terminal() bool { return p != PhaseAttempting }

// State is one step of the machine. Attempt is the 1-based attempt that
// is about to run (Attempting) or that produced the terminal phase.
type State struct {
	Phase   Phase
	Attempt int
	Result  *suirpc.TransactionBlock
	LastErr error
}

// Next applies the outcome of the lookup made in s. sleep reports whether
// the caller must wait Delay before running the returned state.
func Next(s State, maxAttempts int, block *suirpc.TransactionBlock, fetchErr error) (next State, sleep bool) {
	if s.Phase.Terminal() {
		return s, false
	}

	switch {
	case fetchErr != nil && s.Attempt >= maxAttempts:
		return State{Phase: PhaseExhausted, Attempt: s.Attempt, LastErr: fetchErr}, false

	case fetchErr != nil:
		return State{Phase: PhaseAttempting, Attempt: s.Attempt + 1, LastErr: fetchErr}, true

	case block != nil:
		return State{Phase: PhaseSucceeded, Attempt: s.Attempt, Result: block}, false

	case s.Attempt >= maxAttempts:
		return State{Phase: PhaseNotFound, Attempt: s.Attempt}, false

	default:
		// empty answer: try again straight away, the delay only follows errors
		return State{Phase: PhaseAttempting, Attempt: s.Attempt + 1}, false
	}
}

type Poller struct {
	fetcher     Fetcher
	maxAttempts int
	delay       time.Duration
	sleeper     Sleeper
	metrics     Metrics
	log         *slog.Logger
}

type Option func(*Poller)

func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithDelay(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.delay = d
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(p *Poller) { p.sleeper = s }
}

func WithMetrics(m Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.log = l }
}

func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		sleeper:     realSleeper{},
		log:         slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Poller) MaxAttempts() int { return p.maxAttempts }

// Await runs the machine until a terminal phase. On Exhausted the returned
// error wraps the last fetch error.
func (p *Poller) Await(ctx context.Context, digest string) (*suirpc.TransactionBlock, error) {
	opts := suirpc.TransactionBlockOptions{ShowEffects: true, ShowObjectChanges: true}
	state := State{Phase: PhaseAttempting, Attempt: 1}

	for !state.Phase.Terminal() {
		block, err := p.fetcher.GetTransactionBlock(ctx, digest, opts)

		if p.metrics != nil {
			p.metrics.PollAttempt(state.Attempt, err != nil)
		}
		if err != nil {
			p.log.DebugContext(ctx, "transaction lookup failed", "digest", digest, "attempt", state.Attempt, "err", err)
		}

		var sleep bool
		state, sleep = Next(state, p.maxAttempts, block, err)

		if sleep {
			if serr := p.sleeper.Sleep(ctx, p.delay); serr != nil {
				state = State{Phase: PhaseCanceled, Attempt: state.Attempt - 1, LastErr: serr}
			}
		}
	}

	if p.metrics != nil {
		p.metrics.PollOutcome(state.Phase.String())
	}

	switch state.Phase {
	case PhaseSucceeded:
		p.log.DebugContext(ctx, "transaction confirmed", "digest", digest, "attempt", state.Attempt)
		return state.Result, nil

	case PhaseExhausted:
		p.log.WarnContext(ctx, "transaction lookup exhausted", "digest", digest, "attempts", state.Attempt, "err", state.LastErr)
		return nil, fmt.Errorf("transaction %s: %w", digest, state.LastErr)

	case PhaseCanceled:
		return nil, state.LastErr

	default:
		p.log.WarnContext(ctx, "transaction not found", "digest", digest, "attempts", state.Attempt)
		return nil, ErrNotFoundAfterRetries
	}
}

// CreatedObjectID checks block succeeded and returns the id of the first
// object it created with the given type.
func CreatedObjectID(block *suirpc.TransactionBlock, objectType string) (string, error) {
	if block == nil {
		return "", ErrNotFoundAfterRetries
	}

	if block.Effects == nil || block.Effects.Status.Status != suirpc.StatusSuccess {
		msg := ""
		if block.Effects != nil {
			msg = block.Effects.Status.Error
		}
		return "", fmt.Errorf("%w: %s", ErrTransactionFailed, msg)
	}

	for _, change := range block.ObjectChanges {
		if change.Type == suirpc.ChangeCreated && change.ObjectType == objectType && change.ObjectID != "" {
			return change.ObjectID, nil
		}
	}

	return "", ErrObjectNotInResult
}
