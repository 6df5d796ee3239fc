package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/suiticket/internal/config"
)

func TestRun_StartupErrorsReturn(t *testing.T) {
	t.Run("missing secret outside dev", func(t *testing.T) {
		t.Setenv("APP_ENV", "prod")
		t.Setenv("JWT_SECRET", "")

		if err := run(); !errors.Is(err, config.ErrMissingJWTSecret) {
			t.Fatalf("got %v, want ErrMissingJWTSecret", err)
		}
	})

	t.Run("unknown activity backend", func(t *testing.T) {
		t.Setenv("APP_ENV", "dev")
		t.Setenv("SESSION_REDIS_ADDR", "")
		t.Setenv("TXLOG_BACKEND", "sqlite")

		err := run()
		if err == nil || !strings.Contains(err.Error(), "unknown TXLOG_BACKEND") {
			t.Fatalf("got %v, want unknown backend error", err)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		t.Setenv("APP_ENV", "dev")
		t.Setenv("SUI_NETWORK", "moonnet")

		if err := run(); err == nil || !strings.Contains(err.Error(), "moonnet") {
			t.Fatalf("got %v, want network error", err)
		}
	})
}
