package source

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

func TestPolicy_NormalizeDefaults(t *testing.T) {
	p := Policy{Sources: []string{"yahoo"}}
	if err := p.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Mode != ModeSequential {
		t.Errorf("expected default mode %s, got %s", ModeSequential, p.Mode)
	}
	if p.MinPoints != 1 || p.MinQuality != 0.5 {
		t.Errorf("unexpected thresholds: points=%d quality=%v", p.MinPoints, p.MinQuality)
	}
	if p.CallTimeout != 10*time.Second || p.Freshness != 15*time.Minute {
		t.Errorf("unexpected durations: %v %v", p.CallTimeout, p.Freshness)
	}
	if p.Backoff.Initial != 500*time.Millisecond || p.Backoff.Max != 10*time.Second || p.Backoff.Multiplier != 2 {
		t.Errorf("unexpected backoff: %+v", p.Backoff)
	}
	if p.MaxRetries != 0 {
		t.Errorf("retries must stay as given, got %d", p.MaxRetries)
	}
}

func TestPolicy_NormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		p    Policy
	}{
		{"no sources", Policy{}},
		{"empty source name", Policy{Sources: []string{""}}},
		{"unknown mode", Policy{Sources: []string{"a"}, Mode: "fastest"}},
		{"negative retries", Policy{Sources: []string{"a"}, MaxRetries: -1}},
		{"quality above one", Policy{Sources: []string{"a"}, MinQuality: 1.5}},
		{"max backoff below initial", Policy{Sources: []string{"a"}, Backoff: Backoff{Initial: time.Second, Max: time.Millisecond}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Normalize()
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("expected config invalid, got %v", err)
			}
		})
	}
}
