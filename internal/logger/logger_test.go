package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/newthinker/meridian/internal/core"
)

func TestNew_Development(t *testing.T) {
	log, err := New(Config{Development: true})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("development logger should log debug")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		warnOff bool
	}{
		{"debug", true, false},
		{"info", false, false},
		{"error", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(Config{Level: tt.level, Format: "console"})
			if err != nil {
				t.Fatalf("failed to create logger: %v", err)
			}
			if got := log.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if got := !log.Core().Enabled(zapcore.WarnLevel); got != tt.warnOff {
				t.Errorf("warn disabled = %v, want %v", got, tt.warnOff)
			}
		})
	}
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(Config{})
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
