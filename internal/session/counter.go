// Package session holds per-account state that lives only as long as a
// wallet session: the id of the account's EventCounter once it is known.
package session

import (
	"context"
	"time"

	"github.com/geocoder89/suiticket/internal/cache"
)

type CounterState int

const (
	StateUnresolved CounterState = iota
	StateResolved
)

func (s CounterState) String() string {
	if s == StateResolved {
		return "resolved"
	}
	return "unresolved"
}

// CounterEntry is what the cache knows about an account's counter. ID is
// only meaningful when State is StateResolved.
type CounterEntry struct {
	State CounterState
	ID    string
}

func (e CounterEntry) Resolved() bool { return e.State == StateResolved && e.ID != "" }

func Unresolved() CounterEntry { return CounterEntry{State: StateUnresolved} }

func Resolved(id string) CounterEntry { return CounterEntry{State: StateResolved, ID: id} }

type CounterCache interface {
	Get(ctx context.Context, account string) (CounterEntry, error)
	Resolve(ctx context.Context, account, counterID string) error
	Forget(ctx context.Context, account string) error
}

const DefaultTTL = 12 * time.Hour

// MemoryCounters keeps counter ids in process memory.
type MemoryCounters struct {
	c *cache.Cache[string]
}

func NewMemoryCounters(ttl time.Duration) *MemoryCounters {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCounters{c: cache.New[string](ttl)}
}

func (m *MemoryCounters) Get(ctx context.Context, account string) (CounterEntry, error) {
	id, ok := m.c.Get(account)
	if !ok || id == "" {
		return Unresolved(), nil
	}
	return Resolved(id), nil
}

func (m *MemoryCounters) Resolve(ctx context.Context, account, counterID string) error {
	if counterID == "" {
		return ErrEmptyCounterID
	}
	m.c.Set(account, counterID)
	return nil
}

func (m *MemoryCounters) Forget(ctx context.Context, account string) error {
	m.c.Delete(account)
	return nil
}
