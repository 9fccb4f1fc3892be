package service

import (
	"fmt"

	"github.com/pictolab/pictoreco/internal/domain"
)

// ValidatorConfig holds the cardinality bounds for selection validation.
type ValidatorConfig struct {
	MinCards int
	MaxCards int
}

// SelectionValidator checks a user's chosen cards against the presented set.
// Stateless; violations come back as a structured invalid result so the
// caller can re-prompt, never as an error.
type SelectionValidator struct {
	minCards int
	maxCards int
}

// NewSelectionValidator creates a validator with the given bounds.
func NewSelectionValidator(cfg *ValidatorConfig) *SelectionValidator {
	return &SelectionValidator{
		minCards: cfg.MinCards,
		maxCards: cfg.MaxCards,
	}
}

// Validate applies the selection rules in order and reports the first
// violation.
// Parameters:
//   - selected: card IDs the user chose.
//   - presented: card IDs that were on screen.
//
// Returns:
//   - domain.ValidationResult: Valid with the selection count on success;
//     invalid with a human-readable reason otherwise.
func (v *SelectionValidator) Validate(selected, presented []string) domain.ValidationResult {
	if len(selected) == 0 {
		return invalid("no cards selected")
	}
	if len(presented) == 0 {
		return invalid("no cards were presented")
	}
	if len(selected) < v.minCards {
		return invalid(fmt.Sprintf("selected %d cards, minimum is %d", len(selected), v.minCards))
	}
	if len(selected) > v.maxCards {
		return invalid(fmt.Sprintf("selected %d cards, maximum is %d", len(selected), v.maxCards))
	}

	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			return invalid(fmt.Sprintf("card %s selected more than once", id))
		}
		seen[id] = struct{}{}
	}

	menu := make(map[string]struct{}, len(presented))
	for _, id := range presented {
		menu[id] = struct{}{}
	}
	for _, id := range selected {
		if _, ok := menu[id]; !ok {
			return invalid(fmt.Sprintf("card %s was not among the presented options", id))
		}
	}

	return domain.ValidationResult{Valid: true, Count: len(selected)}
}

func invalid(reason string) domain.ValidationResult {
	return domain.ValidationResult{Valid: false, Reason: reason}
}
