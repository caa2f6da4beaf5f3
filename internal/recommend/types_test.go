// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package recommend

import (
	"errors"
	"math"
	"testing"
)

func TestAlgorithm_RoundTrip(t *testing.T) {
	for _, a := range Algorithms() {
		got, err := ParseAlgorithm(a.String())
		if err != nil {
			t.Errorf("ParseAlgorithm(%q) error = %v", a.String(), err)
			continue
		}
		if got != a {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", a.String(), got, a)
		}
	}
	if n := len(Algorithms()); n != 5 {
		t.Errorf("len(Algorithms()) = %d, want 5", n)
	}
}

func TestParseAlgorithm_Unknown(t *testing.T) {
	_, err := ParseAlgorithm("popular")
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("ParseAlgorithm(popular) error = %v, want ErrUnknownAlgorithm", err)
	}
	if Algorithm(42).Valid() {
		t.Error("Algorithm(42).Valid() = true, want false")
	}
	if got := Algorithm(42).String(); got != "unknown" {
		t.Errorf("Algorithm(42).String() = %q, want unknown", got)
	}
}

func TestParseFeedbackMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    FeedbackMethod
		wantErr bool
	}{
		{in: "rl", want: FeedbackReinforcement},
		{in: " Reinforcement ", want: FeedbackReinforcement},
		{in: "gradient", want: FeedbackGradient},
		{in: "bandit", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFeedbackMethod(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFeedbackMethod) {
					t.Errorf("ParseFeedbackMethod(%q) error = %v, want ErrUnknownFeedbackMethod", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFeedbackMethod(%q) = (%v, %v), want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestMovie_Year(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"1999-03-31", 1999},
		{"2010", 2010},
		{"", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		m := Movie{ReleaseDate: tt.date}
		if got := m.Year(); got != tt.want {
			t.Errorf("Year(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestWeights_Normalize(t *testing.T) {
	w := Weights{Content: 0.4, Collaborative: 1.2}.Normalize()
	if math.Abs(w.Content+w.Collaborative-1) > 1e-12 {
		t.Errorf("Normalize() sum = %f, want 1", w.Content+w.Collaborative)
	}
	if math.Abs(w.Content-0.25) > 1e-12 {
		t.Errorf("Normalize().Content = %f, want 0.25", w.Content)
	}

	if got := (Weights{}).Normalize(); got != DefaultWeights() {
		t.Errorf("zero Normalize() = %+v, want default", got)
	}
}
