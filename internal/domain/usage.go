package domain

import "time"

// Scope values for UsageCounter rows.
const (
	UsageScopeItem    = "item"
	UsageScopeCluster = "cluster"
)

// UsageCounter is the persisted form of one ledger counter, keyed by session,
// scope (item or cluster) and subject key. Used to carry fairness state across
// process restarts for interactive sessions; bulk generation runs never persist.
type UsageCounter struct {
	SessionID string    `gorm:"type:text;primaryKey" json:"session_id"`
	Scope     string    `gorm:"type:text;primaryKey" json:"scope"`
	Key       string    `gorm:"type:text;primaryKey" json:"key"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UsageCounter.
func (UsageCounter) TableName() string {
	return "usage_counters"
}
