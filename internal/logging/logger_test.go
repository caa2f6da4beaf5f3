// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// capture points the global logger at a buffer for the duration of the test.
func capture(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	Init(cfg)
	t.Cleanup(func() { Init(Config{}) })
	return &buf
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line %q is not JSON: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	buf := capture(t, Config{Level: "warn"})

	Info().Msg("dropped")
	Warn().Str("feed", "json").Msg("kept")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Errorf("info entry written at warn level: %s", out)
	}
	m := decodeLine(t, out)
	if m["message"] != "kept" || m["level"] != "warn" || m["feed"] != "json" {
		t.Errorf("entry = %v", m)
	}
	if _, ok := m["time"]; !ok {
		t.Error("entry has no time field")
	}
}

func TestInitConsoleAndCaller(t *testing.T) {
	buf := capture(t, Config{Format: "console", Caller: true})
	Error().Msg("console line")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("console format wrote JSON: %s", out)
	}
	if !strings.Contains(out, "console line") || !strings.Contains(out, "logger_test.go") {
		t.Errorf("output = %q, want message and caller", out)
	}
}

func TestWithComponent(t *testing.T) {
	buf := capture(t, Config{})
	l := WithComponent("engine")
	l.Info().Msg("trained")

	m := decodeLine(t, strings.TrimSpace(buf.String()))
	if m["component"] != "engine" {
		t.Errorf("component = %v, want engine", m["component"])
	}
}

func TestCtx(t *testing.T) {
	buf := capture(t, Config{})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q", got)
	}

	Ctx(ctx).Info().Msg("with id")
	m := decodeLine(t, strings.TrimSpace(buf.String()))
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}

	if a, b := NewRequestID(), NewRequestID(); a == b || len(a) != 36 {
		t.Errorf("NewRequestID() = %q, %q", a, b)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { Init(Config{}) })

	Debug().Msg("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Errorf("SetLogger output = %q", buf.String())
	}
}
