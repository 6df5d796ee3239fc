// Package query reads ledger objects owned by an address and the
// EventCreated log, decoding them into domain records.
//
// Reads never panic or propagate transport failures as a bare error: every
// call returns a Result whose Data is always usable (possibly empty) and
// whose Err says whether the read actually happened.
package query

import (
	"context"
	"log/slog"

	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/domain/ticket"
	"github.com/geocoder89/suiticket/internal/suirpc"
	"golang.org/x/sync/errgroup"
)

// Ledger is the slice of the fullnode RPC the query layer uses.
type Ledger interface {
	GetOwnedObjects(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error)
	GetObject(ctx context.Context, id string, opts suirpc.ObjectDataOptions) (suirpc.ObjectResponse, error)
	QueryEvents(ctx context.Context, filter suirpc.EventFilter, cursor *suirpc.EventID, descending bool) (suirpc.EventPage, error)
}

type Result[T any] struct {
	Data T
	Err  error
}

func (r Result[T]) OK() bool { return r.Err == nil }

const (
	maxPages       = 20
	pointReadLimit = 8
)

type Service struct {
	ledger Ledger
	reg    contract.Registry
	log    *slog.Logger
}

func NewService(ledger Ledger, reg contract.Registry, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{ledger: ledger, reg: reg, log: log}
}

// ownedObjects walks every page of objects of structType owned by owner.
func (s *Service) ownedObjects(ctx context.Context, owner, structType string) ([]suirpc.ObjectData, error) {
	q := suirpc.OwnedObjectsQuery{
		Filter:  &suirpc.ObjectFilter{StructType: structType},
		Options: suirpc.ObjectDataOptions{ShowContent: true, ShowType: true},
	}

	out := make([]suirpc.ObjectData, 0)
	var cursor *string

	for page := 0; page < maxPages; page++ {
		res, err := s.ledger.GetOwnedObjects(ctx, owner, q, cursor)
		if err != nil {
			return nil, err
		}

		for _, obj := range res.Data {
			if obj.Data != nil {
				out = append(out, *obj.Data)
			}
		}

		if !res.HasNextPage || res.NextCursor == nil {
			break
		}
		cursor = res.NextCursor
	}

	return out, nil
}

func (s *Service) OwnedEvents(ctx context.Context, owner string) Result[[]event.Event] {
	objs, err := s.ownedObjects(ctx, owner, s.reg.EventType())
	if err != nil {
		s.log.ErrorContext(ctx, "fetch owned events failed", "owner", owner, "err", err)
		return Result[[]event.Event]{Data: []event.Event{}, Err: err}
	}

	events := make([]event.Event, 0, len(objs))
	for _, obj := range objs {
		e, ok := decodeEvent(obj)
		if !ok {
			s.log.DebugContext(ctx, "skipping undecodable event object", "object_id", obj.ObjectID)
			continue
		}
		events = append(events, e)
	}

	return Result[[]event.Event]{Data: events}
}

func (s *Service) OwnedTickets(ctx context.Context, owner string) Result[[]ticket.Ticket] {
	objs, err := s.ownedObjects(ctx, owner, s.reg.TicketType())
	if err != nil {
		s.log.ErrorContext(ctx, "fetch owned tickets failed", "owner", owner, "err", err)
		return Result[[]ticket.Ticket]{Data: []ticket.Ticket{}, Err: err}
	}

	tickets := make([]ticket.Ticket, 0, len(objs))
	for _, obj := range objs {
		t, ok := decodeTicket(obj)
		if !ok {
			s.log.DebugContext(ctx, "skipping undecodable ticket object", "object_id", obj.ObjectID)
			continue
		}
		tickets = append(tickets, t)
	}

	return Result[[]ticket.Ticket]{Data: tickets}
}

// OwnedCounter finds an EventCounter already owned by owner. Data is ""
// when the owner has none yet.
func (s *Service) OwnedCounter(ctx context.Context, owner string) Result[string] {
	counterType := s.reg.EventCounterType()

	objs, err := s.ownedObjects(ctx, owner, counterType)
	if err != nil {
		s.log.ErrorContext(ctx, "fetch event counter failed", "owner", owner, "err", err)
		return Result[string]{Err: err}
	}

	for _, obj := range objs {
		if obj.Type == counterType && obj.ObjectID != "" {
			return Result[string]{Data: obj.ObjectID}
		}
	}

	return Result[string]{}
}

// AllEvents lists every event announced in the EventCreated log, newest
// first. The log only carries ids, so each event is re-read for its
// current ticketsSold. A failed point read drops that event only.
func (s *Service) AllEvents(ctx context.Context) Result[[]event.Event] {
	ids, err := s.createdEventIDs(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "query EventCreated log failed", "err", err)
		return Result[[]event.Event]{Data: []event.Event{}, Err: err}
	}

	slots := make([]*event.Event, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pointReadLimit)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			obj, err := s.ledger.GetObject(gctx, id, suirpc.ObjectDataOptions{ShowContent: true, ShowType: true})
			if err != nil {
				s.log.ErrorContext(gctx, "fetch event object failed", "event_id", id, "err", err)
				return nil
			}
			if obj.Data == nil {
				s.log.WarnContext(gctx, "event object missing", "event_id", id)
				return nil
			}

			e, ok := decodeEvent(*obj.Data)
			if !ok {
				s.log.DebugContext(gctx, "skipping undecodable event object", "event_id", id)
				return nil
			}
			slots[i] = &e
			return nil
		})
	}

	// point reads never return errors; failures were logged and dropped
	_ = g.Wait()

	events := make([]event.Event, 0, len(ids))
	for _, e := range slots {
		if e != nil {
			events = append(events, *e)
		}
	}

	return Result[[]event.Event]{Data: events}
}

func (s *Service) createdEventIDs(ctx context.Context) ([]string, error) {
	filter := suirpc.EventFilter{MoveEventType: s.reg.EventCreatedType()}

	ids := make([]string, 0)
	seen := make(map[string]struct{})
	var cursor *suirpc.EventID

	for page := 0; page < maxPages; page++ {
		res, err := s.ledger.QueryEvents(ctx, filter, cursor, true)
		if err != nil {
			return nil, err
		}

		for _, ev := range res.Data {
			id, ok := decodeCreatedEventID(ev.ParsedJSON)
			if !ok {
				s.log.DebugContext(ctx, "EventCreated without event_id", "tx_digest", ev.ID.TxDigest)
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		if !res.HasNextPage || res.NextCursor == nil {
			break
		}
		cursor = res.NextCursor
	}

	return ids, nil
}
