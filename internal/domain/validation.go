package domain

// ValidationResult is the outcome of checking a user's chosen cards against the
// presented set. Rule violations are reported here, not as errors, so callers
// can re-prompt the user with the reason.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Count  int    `json:"count"`
	Reason string `json:"reason,omitempty"`
}
