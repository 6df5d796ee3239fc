// Package querytest provides an in-memory ledger for tests.
package querytest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/geocoder89/suiticket/internal/suirpc"
)

var ErrObjectNotFound = errors.New("object not found")

// Ledger serves owned objects, point reads and the EventCreated log from
// maps. Function fields override the map-backed behavior when set.
type Ledger struct {
	mu sync.Mutex

	Owned   map[string][]suirpc.ObjectData // owner -> objects
	Objects map[string]suirpc.ObjectData   // id -> object
	Log     []suirpc.MoveEvent             // newest first

	OwnedFn  func(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error)
	ObjectFn func(ctx context.Context, id string) (suirpc.ObjectResponse, error)
	EventsFn func(ctx context.Context, filter suirpc.EventFilter) (suirpc.EventPage, error)

	OwnedCalls  int
	ObjectCalls int
	EventCalls  int
}

func New() *Ledger {
	return &Ledger{
		Owned:   make(map[string][]suirpc.ObjectData),
		Objects: make(map[string]suirpc.ObjectData),
	}
}

func (l *Ledger) GetOwnedObjects(ctx context.Context, owner string, q suirpc.OwnedObjectsQuery, cursor *string) (suirpc.OwnedObjectsPage, error) {
	l.mu.Lock()
	l.OwnedCalls++
	fn := l.OwnedFn
	l.mu.Unlock()

	if fn != nil {
		return fn(ctx, owner, q, cursor)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	page := suirpc.OwnedObjectsPage{Data: []suirpc.ObjectResponse{}}
	for _, obj := range l.Owned[owner] {
		if q.Filter != nil && q.Filter.StructType != "" && obj.Type != q.Filter.StructType {
			continue
		}
		o := obj
		page.Data = append(page.Data, suirpc.ObjectResponse{Data: &o})
	}
	return page, nil
}

func (l *Ledger) GetObject(ctx context.Context, id string, opts suirpc.ObjectDataOptions) (suirpc.ObjectResponse, error) {
	l.mu.Lock()
	l.ObjectCalls++
	fn := l.ObjectFn
	l.mu.Unlock()

	if fn != nil {
		return fn(ctx, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	obj, ok := l.Objects[id]
	if !ok {
		return suirpc.ObjectResponse{}, ErrObjectNotFound
	}
	return suirpc.ObjectResponse{Data: &obj}, nil
}

func (l *Ledger) QueryEvents(ctx context.Context, filter suirpc.EventFilter, cursor *suirpc.EventID, descending bool) (suirpc.EventPage, error) {
	l.mu.Lock()
	l.EventCalls++
	fn := l.EventsFn
	l.mu.Unlock()

	if fn != nil {
		return fn(ctx, filter)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	page := suirpc.EventPage{Data: []suirpc.MoveEvent{}}
	for _, ev := range l.Log {
		if filter.MoveEventType == "" || ev.Type == filter.MoveEventType {
			page.Data = append(page.Data, ev)
		}
	}
	return page, nil
}

// AddObject registers obj for point reads and, when owner is non-empty,
// as owned by owner.
func (l *Ledger) AddObject(owner string, obj suirpc.ObjectData) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Objects[obj.ObjectID] = obj
	if owner != "" {
		l.Owned[owner] = append(l.Owned[owner], obj)
	}
}

// Announce appends an EventCreated entry for eventID at the head of the log.
func (l *Ledger) Announce(eventType, eventID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	parsed, _ := json.Marshal(map[string]string{"event_id": eventID})
	ev := suirpc.MoveEvent{
		ID:         suirpc.EventID{TxDigest: "tx-" + eventID, EventSeq: "0"},
		Type:       eventType,
		ParsedJSON: parsed,
	}
	l.Log = append([]suirpc.MoveEvent{ev}, l.Log...)
}

// MoveObject builds an ObjectData with fields encoded as JSON.
func MoveObject(id, typeTag string, fields map[string]any) suirpc.ObjectData {
	raw, _ := json.Marshal(fields)
	return suirpc.ObjectData{
		ObjectID: id,
		Type:     typeTag,
		Content: &suirpc.ObjectContent{
			DataType: "moveObject",
			Type:     typeTag,
			Fields:   raw,
		},
	}
}
