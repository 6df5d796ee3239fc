package utils

import (
	"errors"
	"testing"
	"time"
)

func TestActivityCursor_RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, err := EncodeActivityCursor(at, "r1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	c, err := DecodeActivityCursor(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.CreatedAt.Equal(at) || c.ID != "r1" {
		t.Fatalf("got %+v", c)
	}
}

func TestDecodeActivityCursor_Invalid(t *testing.T) {
	missingID, _ := EncodeActivityCursor(time.Now(), "")

	for _, raw := range []string{"", "not base64!", "bm90IGpzb24", missingID} {
		if _, err := DecodeActivityCursor(raw); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("%q: got %v, want ErrInvalidCursor", raw, err)
		}
	}
}

func TestActivityCursor_Before(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := ActivityCursor{CreatedAt: at, ID: "m"}

	tests := []struct {
		name string
		at   time.Time
		id   string
		want bool
	}{
		{"older", at.Add(-time.Second), "z", true},
		{"newer", at.Add(time.Second), "a", false},
		{"same time lower id", at, "a", true},
		{"same record", at, "m", false},
		{"same time higher id", at, "z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Before(tt.at, tt.id); got != tt.want {
				t.Fatalf("Before(%v, %q) = %v, want %v", tt.at, tt.id, got, tt.want)
			}
		})
	}
}
