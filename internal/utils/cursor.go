package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// ActivityCursor points at the last record of a page; the next page starts
// strictly after it in (createdAt DESC, id DESC) order.
type ActivityCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// Before reports whether a record sorts after the cursor position.
func (c ActivityCursor) Before(createdAt time.Time, id string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id < c.ID
	}
	return createdAt.Before(c.CreatedAt)
}

func EncodeActivityCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(ActivityCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeActivityCursor(cursor string) (ActivityCursor, error) {
	if cursor == "" {
		return ActivityCursor{}, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ActivityCursor{}, ErrInvalidCursor
	}

	var c ActivityCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return ActivityCursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return ActivityCursor{}, ErrInvalidCursor
	}
	return c, nil
}
