package query

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/observability"
	"github.com/geocoder89/suiticket/internal/query/querytest"
	"github.com/geocoder89/suiticket/internal/suirpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reg = contract.New("0xpkg")

func eventObj(id, organizer string, max, sold any) suirpc.ObjectData {
	return querytest.MoveObject(id, reg.EventType(), map[string]any{
		"name":         "Event " + id,
		"description":  "desc",
		"date":         "Dec 25, 2024",
		"location":     "Lagos",
		"image":        "",
		"max_tickets":  max,
		"tickets_sold": sold,
		"organizer":    organizer,
	})
}

func newService(l *querytest.Ledger) *Service {
	return NewService(l, reg, observability.Discard())
}

func TestOwnedEvents_DecodesAndSkipsBadObjects(t *testing.T) {
	l := querytest.New()
	l.AddObject("0xorg", eventObj("0xe1", "0xorg", "100", "3"))
	l.AddObject("0xorg", eventObj("0xe2", "0xorg", 50, 50))
	l.AddObject("0xorg", suirpc.ObjectData{ObjectID: "0xbroken", Type: reg.EventType()})
	l.AddObject("0xorg", querytest.MoveObject("0xbad", reg.EventType(), map[string]any{"max_tickets": "not-a-number"}))

	res := newService(l).OwnedEvents(context.Background(), "0xorg")
	require.True(t, res.OK())
	require.Len(t, res.Data, 2)

	assert.Equal(t, "0xe1", res.Data[0].ID)
	assert.Equal(t, uint64(100), res.Data[0].MaxTickets)
	assert.Equal(t, uint64(3), res.Data[0].TicketsSold)
	assert.Equal(t, "0xorg", res.Data[0].Organizer)
	assert.True(t, res.Data[1].SoldOut())
}

func TestOwnedEvents_TransportFailureDegradesToEmpty(t *testing.T) {
	boom := errors.New("connection refused")
	l := querytest.New()
	l.OwnedFn = func(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error) {
		return suirpc.OwnedObjectsPage{}, boom
	}

	res := newService(l).OwnedEvents(context.Background(), "0xorg")

	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, boom)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestOwnedTickets(t *testing.T) {
	l := querytest.New()
	l.AddObject("0xme", querytest.MoveObject("0xt1", reg.TicketType(), map[string]any{"owner": "0xme", "seat_number": "17", "event_id": "0xe1"}))
	l.AddObject("0xme", eventObj("0xe9", "0xme", "1", "0"))

	res := newService(l).OwnedTickets(context.Background(), "0xme")
	require.True(t, res.OK())
	require.Len(t, res.Data, 1)
	assert.Equal(t, uint64(17), res.Data[0].SeatNumber)
	assert.Equal(t, "0xe1", res.Data[0].EventID)
}

func TestOwnedTickets_TransportFailure(t *testing.T) {
	l := querytest.New()
	l.OwnedFn = func(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error) {
		return suirpc.OwnedObjectsPage{}, errors.New("timeout")
	}

	res := newService(l).OwnedTickets(context.Background(), "0xme")
	assert.Error(t, res.Err)
	assert.Empty(t, res.Data)
}

func TestOwnedObjects_FollowsPagination(t *testing.T) {
	l := querytest.New()
	next := "page-2"
	l.OwnedFn = func(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error) {
		if cursor == nil {
			o := eventObj("0xe1", owner, "1", "0")
			return suirpc.OwnedObjectsPage{Data: []suirpc.ObjectResponse{{Data: &o}}, NextCursor: &next, HasNextPage: true}, nil
		}
		require.Equal(t, next, *cursor)
		o := eventObj("0xe2", owner, "1", "0")
		return suirpc.OwnedObjectsPage{Data: []suirpc.ObjectResponse{{Data: &o}}}, nil
	}

	res := newService(l).OwnedEvents(context.Background(), "0xorg")
	require.True(t, res.OK())
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 2, l.OwnedCalls)
}

func TestOwnedCounter(t *testing.T) {
	l := querytest.New()
	svc := newService(l)

	res := svc.OwnedCounter(context.Background(), "0xorg")
	require.True(t, res.OK())
	assert.Equal(t, "", res.Data)

	l.AddObject("0xorg", querytest.MoveObject("0xcounter", reg.EventCounterType(), map[string]any{"count": "0"}))

	res = svc.OwnedCounter(context.Background(), "0xorg")
	require.True(t, res.OK())
	assert.Equal(t, "0xcounter", res.Data)
}

func TestAllEvents_ReadsCurrentStateAndDropsFailures(t *testing.T) {
	l := querytest.New()
	l.AddObject("", eventObj("0xe1", "0xa", "10", "1"))
	l.AddObject("", eventObj("0xe3", "0xb", "10", "9"))
	l.Announce(reg.EventCreatedType(), "0xe1")
	l.Announce(reg.EventCreatedType(), "0xe2") // never readable
	l.Announce(reg.EventCreatedType(), "0xe3")
	l.Announce("0xother::mod::Noise", "0xe4")

	res := newService(l).AllEvents(context.Background())
	require.True(t, res.OK())
	require.Len(t, res.Data, 2)

	// log order (newest first) is preserved
	assert.Equal(t, "0xe3", res.Data[0].ID)
	assert.Equal(t, uint64(9), res.Data[0].TicketsSold)
	assert.Equal(t, "0xe1", res.Data[1].ID)
	assert.Equal(t, 3, l.ObjectCalls)
}

func TestAllEvents_LogFailure(t *testing.T) {
	l := querytest.New()
	l.EventsFn = func(ctx context.Context, filter suirpc.EventFilter) (suirpc.EventPage, error) {
		return suirpc.EventPage{}, errors.New("rpc error -32000: overloaded")
	}

	res := newService(l).AllEvents(context.Background())
	assert.Error(t, res.Err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, 0, l.ObjectCalls)
}

func TestU64_AcceptsStringsAndNumbers(t *testing.T) {
	var n u64
	require.NoError(t, n.UnmarshalJSON([]byte(`"18446744073709551615"`)))
	assert.Equal(t, u64(^uint64(0)), n)

	require.NoError(t, n.UnmarshalJSON([]byte(`42`)))
	assert.Equal(t, u64(42), n)

	assert.Error(t, n.UnmarshalJSON([]byte(`"-1"`)))
}
