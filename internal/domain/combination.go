package domain

import "time"

// Combination is an ordered, duplicate-free sequence of card IDs produced either
// for on-screen display or as one synthetic training sample. Immutable once
// returned.
type Combination struct {
	ID        string    `json:"id"`
	Items     []string  `json:"items"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// HasDuplicates reports whether any card ID occurs more than once.
func (c *Combination) HasDuplicates() bool {
	seen := make(map[string]struct{}, len(c.Items))
	for _, id := range c.Items {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
