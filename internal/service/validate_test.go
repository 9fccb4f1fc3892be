package service

import (
	"strings"
	"testing"
)

func TestSelectionValidator(t *testing.T) {
	v := NewSelectionValidator(&ValidatorConfig{MinCards: 1, MaxCards: 4})
	presented := []string{"a", "b", "c", "d", "e", "f"}

	tests := []struct {
		name       string
		selected   []string
		presented  []string
		valid      bool
		wantCount  int
		wantReason string
	}{
		{
			name:      "single valid card",
			selected:  []string{"a"},
			presented: presented,
			valid:     true,
			wantCount: 1,
		},
		{
			name:      "full valid selection",
			selected:  []string{"a", "c", "e", "f"},
			presented: presented,
			valid:     true,
			wantCount: 4,
		},
		{
			name:       "empty selection",
			selected:   nil,
			presented:  presented,
			wantReason: "no cards selected",
		},
		{
			name:       "empty menu",
			selected:   []string{"a"},
			presented:  nil,
			wantReason: "no cards were presented",
		},
		{
			name:       "above maximum",
			selected:   []string{"a", "b", "c", "d", "e"},
			presented:  presented,
			wantReason: "maximum",
		},
		{
			name:       "duplicate selection",
			selected:   []string{"a", "b", "a"},
			presented:  presented,
			wantReason: "more than once",
		},
		{
			name:       "card not on the menu",
			selected:   []string{"a", "zzz"},
			presented:  presented,
			wantReason: "not among the presented",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.selected, tt.presented)
			if result.Valid != tt.valid {
				t.Fatalf("Valid = %v, expected %v (reason: %q)", result.Valid, tt.valid, result.Reason)
			}
			if tt.valid && result.Count != tt.wantCount {
				t.Errorf("Count = %d, expected %d", result.Count, tt.wantCount)
			}
			if !tt.valid && !strings.Contains(result.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, expected it to mention %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestSelectionValidatorMinimumBound(t *testing.T) {
	v := NewSelectionValidator(&ValidatorConfig{MinCards: 2, MaxCards: 4})

	result := v.Validate([]string{"a"}, []string{"a", "b", "c"})
	if result.Valid {
		t.Fatal("expected selection below minimum to be invalid")
	}
	if !strings.Contains(result.Reason, "minimum") {
		t.Errorf("Reason = %q, expected it to mention the minimum", result.Reason)
	}
}

func TestSelectionValidatorRuleOrder(t *testing.T) {
	v := NewSelectionValidator(&ValidatorConfig{MinCards: 1, MaxCards: 2})

	// Oversized and duplicated: cardinality is reported first
	result := v.Validate([]string{"a", "a", "a"}, []string{"a", "b"})
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if !strings.Contains(result.Reason, "maximum") {
		t.Errorf("Reason = %q, expected the cardinality rule to fire first", result.Reason)
	}
}
