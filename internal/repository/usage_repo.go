package repository

import (
	"context"
	"strconv"

	"github.com/pictolab/pictoreco/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository persists ledger counters per interactive session. Bulk
// generation runs never go through here; their ledgers are process-local.
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// SaveCounters writes a full ledger snapshot for a session, upserting by
// (session, scope, key).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: owning session.
//   - items: item ID -> count snapshot.
//   - clusters: cluster ID -> count snapshot.
// Returns:
//   - error: non-nil if any write fails.
func (r *UsageRepository) SaveCounters(ctx context.Context, sessionID string, items map[string]int, clusters map[int]int) error {
	rows := make([]domain.UsageCounter, 0, len(items)+len(clusters))
	for id, count := range items {
		rows = append(rows, domain.UsageCounter{
			SessionID: sessionID,
			Scope:     domain.UsageScopeItem,
			Key:       id,
			Count:     count,
		})
	}
	for id, count := range clusters {
		rows = append(rows, domain.UsageCounter{
			SessionID: sessionID,
			Scope:     domain.UsageScopeCluster,
			Key:       strconv.Itoa(id),
			Count:     count,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "scope"}, {Name: "key"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

// LoadCounters restores a session's ledger snapshot.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to restore.
// Returns:
//   - map[string]int: item counts (empty when nothing persisted).
//   - map[int]int: cluster counts.
//   - error: non-nil if the query fails or a cluster key is malformed.
func (r *UsageRepository) LoadCounters(ctx context.Context, sessionID string) (map[string]int, map[int]int, error) {
	var rows []domain.UsageCounter
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	items := make(map[string]int)
	clusters := make(map[int]int)
	for _, row := range rows {
		switch row.Scope {
		case domain.UsageScopeItem:
			items[row.Key] = row.Count
		case domain.UsageScopeCluster:
			id, err := strconv.Atoi(row.Key)
			if err != nil {
				return nil, nil, err
			}
			clusters[id] = row.Count
		}
	}
	return items, clusters, nil
}
