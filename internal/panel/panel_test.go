package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/observability"
	"github.com/geocoder89/suiticket/internal/poller"
	"github.com/geocoder89/suiticket/internal/query"
	"github.com/geocoder89/suiticket/internal/query/querytest"
	"github.com/geocoder89/suiticket/internal/repo/memory"
	"github.com/geocoder89/suiticket/internal/session"
	"github.com/geocoder89/suiticket/internal/suirpc"
	"github.com/geocoder89/suiticket/internal/txbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	org   = "0xorg"
	buyer = "0xbuyer"
)

var reg = contract.New("0xpkg")

type fakeSigner struct {
	mu    sync.Mutex
	calls []txbuilder.Call
	fn    func(call txbuilder.Call) (string, error)
}

func (s *fakeSigner) Accounts(ctx context.Context) ([]string, error) {
	return []string{org, buyer}, nil
}

func (s *fakeSigner) SignAndExecute(ctx context.Context, sender string, call txbuilder.Call) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	n := len(s.calls)
	s.mu.Unlock()

	if s.fn != nil {
		return s.fn(call)
	}
	return fmt.Sprintf("digest-%d", n), nil
}

func (s *fakeSigner) targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Target)
	}
	return out
}

type fakeConfirmer struct {
	calls int
	fn    func(digest string) (*suirpc.TransactionBlock, error)
}

func (c *fakeConfirmer) Await(ctx context.Context, digest string) (*suirpc.TransactionBlock, error) {
	c.calls++
	return c.fn(digest)
}

func counterCreated(id string) func(string) (*suirpc.TransactionBlock, error) {
	return func(digest string) (*suirpc.TransactionBlock, error) {
		return &suirpc.TransactionBlock{
			Digest:  digest,
			Effects: &suirpc.Effects{Status: suirpc.ExecutionStatus{Status: suirpc.StatusSuccess}},
			ObjectChanges: []suirpc.ObjectChange{
				{Type: suirpc.ChangeCreated, ObjectType: reg.EventCounterType(), ObjectID: id},
			},
		}, nil
	}
}

func eventObj(id, organizer string, max, sold uint64) suirpc.ObjectData {
	return querytest.MoveObject(id, reg.EventType(), map[string]any{
		"name":         "Event " + id,
		"description":  "desc",
		"date":         "Dec 25, 2024",
		"location":     "Lagos",
		"image":        "",
		"max_tickets":  fmt.Sprint(max),
		"tickets_sold": fmt.Sprint(sold),
		"organizer":    organizer,
	})
}

func ticketObj(id, owner, eventID string, seat uint64) suirpc.ObjectData {
	return querytest.MoveObject(id, reg.TicketType(), map[string]any{
		"owner":       owner,
		"event_id":    eventID,
		"seat_number": fmt.Sprint(seat),
	})
}

type fixture struct {
	ledger    *querytest.Ledger
	signer    *fakeSigner
	confirmer *fakeConfirmer
	counters  *session.MemoryCounters
	activity  *memory.ActivityRepo
	deps      Deps
}

func newFixture() *fixture {
	f := &fixture{
		ledger:    querytest.New(),
		signer:    &fakeSigner{},
		confirmer: &fakeConfirmer{fn: counterCreated("0xcounter")},
		counters:  session.NewMemoryCounters(0),
		activity:  memory.NewActivityRepo(),
	}
	log := observability.Discard()
	f.deps = Deps{
		Registry:  reg,
		Reader:    query.NewService(f.ledger, reg, log),
		Signer:    f.signer,
		Confirmer: f.confirmer,
		Counters:  f.counters,
		Activity:  f.activity,
		Log:       log,
	}
	return f
}

func validForm() event.Form {
	return event.Form{
		Name:        "Launch",
		Description: "Launch party",
		Date:        "Dec 25, 2024",
		Location:    "Lagos",
		MaxTickets:  100,
	}
}

func TestOrganizer_NotConnected(t *testing.T) {
	f := newFixture()
	o := NewOrganizer(f.deps)

	st, err := o.CreateEvent(context.Background(), "", validForm())

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, MsgConnectWallet, st.Error)
	assert.Empty(t, f.signer.targets())
}

func TestOrganizer_CreateEvent_ValidationHasNoSideEffects(t *testing.T) {
	f := newFixture()
	o := NewOrganizer(f.deps)

	_, err := o.CreateEvent(context.Background(), org, event.Form{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		event.MsgNameRequired,
		event.MsgDescriptionRequired,
		event.MsgDateRequired,
		event.MsgLocationRequired,
		event.MsgMaxTicketsPositive,
	}, verr.Errors)

	assert.Empty(t, f.signer.targets())
	assert.Zero(t, f.confirmer.calls)
	assert.Zero(t, f.ledger.OwnedCalls)
}

func TestOrganizer_CreateEvent_InitializesCounterOnce(t *testing.T) {
	f := newFixture()
	o := NewOrganizer(f.deps)
	ctx := context.Background()

	// the created event shows up on reload
	f.signer.fn = func(call txbuilder.Call) (string, error) {
		if call.Target == reg.Target(contract.FunctionCreateEvent) {
			f.ledger.AddObject(org, eventObj("0xe1", org, 100, 0))
		}
		return "D-" + call.Target, nil
	}

	st, err := o.CreateEvent(ctx, org, validForm())
	require.NoError(t, err)

	assert.Empty(t, st.Error)
	assert.False(t, st.Loading)
	assert.Equal(t, "D-"+reg.Target(contract.FunctionCreateEvent), st.Digest)
	require.Len(t, st.Events, 1)
	assert.Equal(t, "0xe1", st.Events[0].ID)
	assert.Equal(t, 1, f.confirmer.calls)

	assert.Equal(t, []string{
		reg.Target(contract.FunctionEventCounterInit),
		reg.Target(contract.FunctionCreateEvent),
	}, f.signer.targets())

	create := f.signer.calls[1]
	assert.Equal(t, txbuilder.Object("0xcounter"), create.Arguments[0])
	assert.Equal(t, txbuilder.U64(100), create.Arguments[6])

	entry, err := f.counters.Get(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, session.Resolved("0xcounter"), entry)

	_, err = o.CreateEvent(ctx, org, validForm())
	require.NoError(t, err)

	assert.Equal(t, 1, f.confirmer.calls, "cached counter must not be re-initialized")
	assert.Len(t, f.signer.targets(), 3)

	records, err := f.activity.ListByAccount(ctx, org, 0, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	kinds := map[activity.Kind]int{}
	for _, r := range records {
		kinds[r.Kind]++
	}
	assert.Equal(t, 1, kinds[activity.KindInitCounter])
	assert.Equal(t, 2, kinds[activity.KindCreateEvent])
}

func TestOrganizer_Load_DiscoversExistingCounter(t *testing.T) {
	f := newFixture()
	f.ledger.AddObject(org, querytest.MoveObject("0xowned", reg.EventCounterType(), map[string]any{"count": "3"}))
	f.ledger.AddObject(org, eventObj("0xmine", org, 10, 1))
	f.ledger.AddObject(org, eventObj("0xgift", "0xsomeoneelse", 10, 1))

	o := NewOrganizer(f.deps)
	ctx := context.Background()

	st, err := o.Load(ctx, org)
	require.NoError(t, err)
	require.Len(t, st.Events, 1)
	assert.Equal(t, "0xmine", st.Events[0].ID)

	_, err = o.CreateEvent(ctx, org, validForm())
	require.NoError(t, err)

	assert.Zero(t, f.confirmer.calls)
	assert.Equal(t, []string{reg.Target(contract.FunctionCreateEvent)}, f.signer.targets())
	assert.Equal(t, txbuilder.Object("0xowned"), f.signer.calls[0].Arguments[0])
}

func TestOrganizer_CreateEvent_CounterLookupFailureDoesNotInitialize(t *testing.T) {
	f := newFixture()
	f.ledger.AddObject(org, querytest.MoveObject("0xowned", reg.EventCounterType(), map[string]any{"count": "3"}))
	f.ledger.OwnedFn = func(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error) {
		if q.Filter != nil && q.Filter.StructType == reg.EventCounterType() {
			return suirpc.OwnedObjectsPage{}, errors.New("connection refused")
		}
		return suirpc.OwnedObjectsPage{Data: []suirpc.ObjectResponse{}}, nil
	}
	o := NewOrganizer(f.deps)

	st, err := o.CreateEvent(context.Background(), org, validForm())

	assert.ErrorIs(t, err, ErrTransaction)
	assert.Equal(t, "Failed to create event: connection refused", st.Error)
	assert.False(t, st.Loading)
	assert.Empty(t, f.signer.targets(), "no counter may be initialized while the ledger read fails")
	assert.Zero(t, f.confirmer.calls)

	entry, err := f.counters.Get(context.Background(), org)
	require.NoError(t, err)
	assert.False(t, entry.Resolved())
}

func TestOrganizer_CreateEvent_PollerGivesUp(t *testing.T) {
	f := newFixture()
	f.confirmer.fn = func(string) (*suirpc.TransactionBlock, error) {
		return nil, poller.ErrNotFoundAfterRetries
	}
	o := NewOrganizer(f.deps)

	st, err := o.CreateEvent(context.Background(), org, validForm())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransaction)
	assert.ErrorIs(t, err, poller.ErrNotFoundAfterRetries)
	assert.Equal(t, "Failed to create event: transaction not found after multiple retries", st.Error)
	assert.False(t, st.Loading)
	assert.Len(t, f.signer.targets(), 1)

	entry, _ := f.counters.Get(context.Background(), org)
	assert.False(t, entry.Resolved())
}

func TestOrganizer_CreateEvent_SignerError(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.counters.Resolve(context.Background(), org, "0xcounter"))
	f.signer.fn = func(call txbuilder.Call) (string, error) {
		return "", errors.New("User rejected the request")
	}
	o := NewOrganizer(f.deps)

	st, err := o.CreateEvent(context.Background(), org, validForm())

	assert.ErrorIs(t, err, ErrTransaction)
	assert.Equal(t, "Failed to create event: User rejected the request", st.Error)
	assert.Empty(t, st.Digest)

	records, _ := f.activity.ListByAccount(context.Background(), org, 0, nil)
	assert.Empty(t, records)
}

func TestOrganizer_CreateEvent_NoDigest(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.counters.Resolve(context.Background(), org, "0xcounter"))
	f.signer.fn = func(call txbuilder.Call) (string, error) { return "", nil }
	o := NewOrganizer(f.deps)

	st, err := o.CreateEvent(context.Background(), org, validForm())

	assert.Error(t, err)
	assert.Equal(t, MsgCreateEvent, st.Error)
}

func TestOrganizer_Load_FailureKeepsEvents(t *testing.T) {
	f := newFixture()
	f.ledger.AddObject(org, eventObj("0xe1", org, 10, 0))
	o := NewOrganizer(f.deps)
	ctx := context.Background()

	_, err := o.Load(ctx, org)
	require.NoError(t, err)

	f.ledger.OwnedFn = func(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error) {
		return suirpc.OwnedObjectsPage{}, errors.New("connection refused")
	}

	st, err := o.Load(ctx, org)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Equal(t, MsgLoadEvents, st.Error)
	assert.Len(t, st.Events, 1)

	st = o.DismissError(org)
	assert.Empty(t, st.Error)
}

func TestOrganizer_Disconnect(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.counters.Resolve(ctx, org, "0xcounter"))
	o := NewOrganizer(f.deps)

	_, _ = o.Load(ctx, org)
	require.NoError(t, o.Disconnect(ctx, org))

	entry, err := f.counters.Get(ctx, org)
	require.NoError(t, err)
	assert.False(t, entry.Resolved())
	assert.Empty(t, o.Snapshot(org).Events)
}

func seededBuyerFixture() *fixture {
	f := newFixture()
	f.ledger.AddObject("", eventObj("0xopen", org, 100, 10))
	f.ledger.AddObject("", eventObj("0xfull", org, 5, 5))
	f.ledger.Announce(reg.EventCreatedType(), "0xopen")
	f.ledger.Announce(reg.EventCreatedType(), "0xfull")
	f.ledger.AddObject(buyer, ticketObj("0xt1", buyer, "0xopen", 7))
	return f
}

func TestBuyer_Load(t *testing.T) {
	f := seededBuyerFixture()
	b := NewBuyer(f.deps)

	st, err := b.Load(context.Background(), buyer)
	require.NoError(t, err)

	require.Len(t, st.Events, 2)
	assert.Equal(t, "0xfull", st.Events[0].ID)
	assert.Equal(t, "0xopen", st.Events[1].ID)
	require.Len(t, st.Tickets, 1)
	assert.Equal(t, uint64(7), st.Tickets[0].SeatNumber)
	assert.Empty(t, st.Error)
	assert.False(t, st.Loading)
}

func TestBuyer_Load_Failure(t *testing.T) {
	f := seededBuyerFixture()
	f.ledger.EventsFn = func(ctx context.Context, filter suirpc.EventFilter) (suirpc.EventPage, error) {
		return suirpc.EventPage{}, errors.New("503")
	}
	b := NewBuyer(f.deps)

	st, err := b.Load(context.Background(), buyer)

	assert.ErrorIs(t, err, ErrLoad)
	assert.Equal(t, MsgLoadData, st.Error)
}

func TestBuyer_MintTicket(t *testing.T) {
	f := seededBuyerFixture()
	b := NewBuyer(f.deps, WithSeatPicker(SeatPickerFunc(func() uint64 { return 42 })))
	ctx := context.Background()

	_, err := b.Load(ctx, buyer)
	require.NoError(t, err)

	f.signer.fn = func(call txbuilder.Call) (string, error) {
		f.ledger.AddObject(buyer, ticketObj("0xt2", buyer, "0xopen", 42))
		return "D", nil
	}

	st, err := b.MintTicket(ctx, buyer, "0xopen")
	require.NoError(t, err)

	assert.Empty(t, st.Error)
	assert.Equal(t, "D", st.Digest)
	assert.Len(t, st.Tickets, 2)

	require.Len(t, f.signer.calls, 1)
	assert.Equal(t, txbuilder.MintTicket(reg, "0xopen", 42), f.signer.calls[0])
	assert.Zero(t, f.confirmer.calls)

	records, _ := f.activity.ListByAccount(ctx, buyer, 0, nil)
	require.Len(t, records, 1)
	assert.Equal(t, activity.KindMintTicket, records[0].Kind)
	assert.Equal(t, "0xopen", records[0].ObjectID)
}

func TestBuyer_MintTicket_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		account string
		eventID string
		wantErr error
		wantMsg string
	}{
		{name: "not_connected", account: "", eventID: "0xopen", wantErr: ErrNotConnected, wantMsg: MsgConnectWallet},
		{name: "sold_out", account: buyer, eventID: "0xfull", wantErr: ErrSoldOut, wantMsg: MsgSoldOut},
		{name: "unknown_event", account: buyer, eventID: "0xnope", wantErr: event.ErrNotFound, wantMsg: MsgEventNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := seededBuyerFixture()
			b := NewBuyer(f.deps)

			st, err := b.MintTicket(context.Background(), tt.account, tt.eventID)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, st.Error)
			assert.Empty(t, f.signer.calls)
		})
	}
}

func TestBuyer_MintTicket_FailureThenSuccessOverwritesError(t *testing.T) {
	f := seededBuyerFixture()
	b := NewBuyer(f.deps)
	ctx := context.Background()

	f.signer.fn = func(call txbuilder.Call) (string, error) { return "", errors.New("Insufficient gas") }

	st, err := b.MintTicket(ctx, buyer, "0xopen")
	assert.ErrorIs(t, err, ErrTransaction)
	assert.Equal(t, "Failed to mint ticket: Insufficient gas", st.Error)

	f.signer.fn = nil

	st, err = b.MintTicket(ctx, buyer, "0xopen")
	require.NoError(t, err)
	assert.Empty(t, st.Error)
}

func TestRandomSeats_InRange(t *testing.T) {
	var p RandomSeats
	for i := 0; i < 500; i++ {
		seat := p.Pick()
		if seat < 1 || seat > MaxSeat {
			t.Fatalf("seat %d out of range", seat)
		}
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.update(buyer, func(st *State) { st.Events = []event.Event{{ID: "0xe1"}} })

	snap := s.Snapshot(buyer)
	snap.Events[0].ID = "mutated"

	assert.Equal(t, "0xe1", s.Snapshot(buyer).Events[0].ID)
}
