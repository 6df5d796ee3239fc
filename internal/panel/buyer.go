package panel

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/domain/ticket"
	"github.com/geocoder89/suiticket/internal/txbuilder"
	"github.com/geocoder89/suiticket/internal/wallet"
	"golang.org/x/sync/errgroup"
)

const MaxSeat = 1000

// SeatPicker chooses the seat number sent with a mint.
type SeatPicker interface {
	Pick() uint64
}

type SeatPickerFunc func() uint64

func (f SeatPickerFunc) Pick() uint64 { return f() }

// RandomSeats picks uniformly from 1..MaxSeat. Nothing prevents two
// tickets of one event from getting the same seat.
type RandomSeats struct{}

func (RandomSeats) Pick() uint64 { return rand.Uint64N(MaxSeat) + 1 }

type Buyer struct {
	deps  Deps
	seats SeatPicker
	store *Store
}

type BuyerOption func(*Buyer)

func WithSeatPicker(p SeatPicker) BuyerOption {
	return func(b *Buyer) {
		if p != nil {
			b.seats = p
		}
	}
}

func NewBuyer(deps Deps, opts ...BuyerOption) *Buyer {
	b := &Buyer{deps: deps, seats: RandomSeats{}, store: NewStore()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buyer) Snapshot(account string) State { return b.store.Snapshot(account) }

func (b *Buyer) DismissError(account string) State { return b.store.DismissError(account) }

func (b *Buyer) Disconnect(account string) { b.store.Forget(account) }

// Load reads every announced event and the tickets account owns, in
// parallel. If either read fails the previous collections are kept.
func (b *Buyer) Load(ctx context.Context, account string) (State, error) {
	if account == "" {
		return disconnected(), ErrNotConnected
	}

	b.store.update(account, func(st *State) { st.Loading = true })

	var (
		events  []event.Event
		tickets []ticket.Ticket
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res := b.deps.Reader.AllEvents(gctx)
		events = res.Data
		return res.Err
	})

	g.Go(func() error {
		res := b.deps.Reader.OwnedTickets(gctx, account)
		tickets = res.Data
		return res.Err
	})

	if err := g.Wait(); err != nil {
		b.deps.logger().ErrorContext(ctx, "load buyer data failed", "account", account, "err", err)
		return b.store.fail(account, MsgLoadData), errors.Join(ErrLoad, err)
	}

	if tickets == nil {
		tickets = []ticket.Ticket{}
	}

	return b.store.update(account, func(st *State) {
		st.Loading = false
		st.Events = events
		st.Tickets = tickets
	}), nil
}

// lookup finds eventID among the events account last saw, falling back to
// a fresh read of the EventCreated log.
func (b *Buyer) lookup(ctx context.Context, account, eventID string) (event.Event, error) {
	if e, err := event.FindByID(b.store.Snapshot(account).Events, eventID); err == nil {
		return e, nil
	}

	res := b.deps.Reader.AllEvents(ctx)
	if !res.OK() {
		return event.Event{}, errors.Join(ErrLoad, res.Err)
	}
	return event.FindByID(res.Data, eventID)
}

// MintTicket buys one ticket for eventID with a picked seat and re-reads
// the panel on success.
func (b *Buyer) MintTicket(ctx context.Context, account, eventID string) (State, error) {
	if account == "" {
		return disconnected(), ErrNotConnected
	}

	ev, err := b.lookup(ctx, account, eventID)
	if errors.Is(err, event.ErrNotFound) {
		return b.store.fail(account, MsgEventNotFound), err
	}
	if err != nil {
		return b.store.fail(account, MsgLoadData), err
	}

	if ev.SoldOut() {
		return b.store.fail(account, MsgSoldOut), ErrSoldOut
	}

	b.store.begin(account)

	seat := b.seats.Pick()
	call := txbuilder.MintTicket(b.deps.Registry, ev.ID, seat)

	digest, err := b.deps.signAndRecord(ctx, account, activity.KindMintTicket, call, ev.ID)
	if errors.Is(err, wallet.ErrNoDigest) {
		return b.store.fail(account, MsgMintTicket), txErr(err)
	}
	if err != nil {
		b.deps.logger().ErrorContext(ctx, "mint ticket failed", "account", account, "event_id", ev.ID, "err", err)
		return b.store.fail(account, failMessage(MsgMintTicket, err)), txErr(err)
	}

	b.deps.logger().InfoContext(ctx, "ticket submitted", "account", account, "event_id", ev.ID, "seat", seat, "digest", digest)

	_, _ = b.Load(ctx, account)

	return b.store.update(account, func(st *State) {
		st.Loading = false
		st.Error = ""
		st.Digest = digest
	}), nil
}
