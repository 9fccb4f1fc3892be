package service

import (
	"context"
	"testing"
)

func TestInterpretFallbackJoinsLabels(t *testing.T) {
	s := NewInterpretService(&InterpretConfig{}, testLogger())
	if s.IsEnabled() {
		t.Fatal("service without an API key should report disabled")
	}

	got, err := s.Interpret(context.Background(), []string{"I", "want", "water"}, nil)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got != "I want water" {
		t.Errorf("fallback utterance = %q", got)
	}
}

func TestInterpretRejectsEmptySelection(t *testing.T) {
	s := NewInterpretService(&InterpretConfig{}, testLogger())
	if _, err := s.Interpret(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty label list")
	}
}

func TestInterpretEnabledRequiresBothFlagAndKey(t *testing.T) {
	tests := []struct {
		name    string
		cfg     InterpretConfig
		enabled bool
	}{
		{"flag only", InterpretConfig{Enabled: true}, false},
		{"key only", InterpretConfig{APIKey: "k"}, false},
		{"flag and key", InterpretConfig{Enabled: true, APIKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewInterpretService(&tt.cfg, testLogger()).IsEnabled(); got != tt.enabled {
				t.Errorf("IsEnabled() = %v, expected %v", got, tt.enabled)
			}
		})
	}
}
