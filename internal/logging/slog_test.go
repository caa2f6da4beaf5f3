// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandlerHandle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))

	logger.Warn("service restarted",
		"service", "recommend",
		"restarts", 3,
		"backoff", 2*time.Second,
		"err", errors.New("panic"),
	)

	m := decodeLine(t, strings.TrimSpace(buf.String()))
	want := map[string]any{
		"level":    "warn",
		"message":  "service restarted",
		"service":  "recommend",
		"restarts": float64(3),
		"err":      "panic",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
}

func TestSlogHandlerAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewSlogHandler(NewTestLogger(&buf)).
		WithAttrs([]slog.Attr{slog.String("tree", "root")}).
		WithGroup("svc")
	slog.New(h).Info("event", "name", "http", slog.Group("backoff", "n", 1))

	m := decodeLine(t, strings.TrimSpace(buf.String()))
	if m["tree"] != "root" {
		t.Errorf("tree = %v, want attr added before the group left unprefixed", m["tree"])
	}
	if m["svc.name"] != "http" {
		t.Errorf("svc.name = %v", m["svc.name"])
	}
	if m["svc.backoff.n"] != float64(1) {
		t.Errorf("svc.backoff.n = %v", m["svc.backoff.n"])
	}

	if NewSlogHandler(zerolog.Nop()).WithGroup("") == nil {
		t.Error("WithGroup(\"\") returned nil")
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	h := NewSlogHandler(zerolog.New(nil).Level(zerolog.WarnLevel))
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info enabled on warn logger")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error disabled on warn logger")
	}
}

func TestZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := zerologLevel(tt.in); got != tt.want {
				t.Errorf("zerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
