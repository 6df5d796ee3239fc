package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/utils"
)

type ActivityRepo struct {
	mu    sync.RWMutex
	items map[string][]activity.Record // account -> records, append order
}

func NewActivityRepo() *ActivityRepo {
	return &ActivityRepo{
		items: make(map[string][]activity.Record),
	}
}

func (r *ActivityRepo) Create(ctx context.Context, req activity.CreateRequest) (activity.Record, error) {
	rec := activity.New(req)

	r.mu.Lock()
	r.items[rec.Account] = append(r.items[rec.Account], rec)
	r.mu.Unlock()

	return rec, nil
}

// ListByAccount returns newest first, at most limit records, starting after
// the cursor when one is given.
func (r *ActivityRepo) ListByAccount(ctx context.Context, account string, limit int, after *utils.ActivityCursor) ([]activity.Record, error) {
	r.mu.RLock()
	src := r.items[account]
	out := make([]activity.Record, 0, len(src))
	for _, rec := range src {
		if after == nil || after.Before(rec.CreatedAt, rec.ID) {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}
