package domain

import "time"

// RecommendationPage is one presented set of cards for a board. Pages are
// append-only per board and ordered by 1-based page number; they are never
// mutated or removed once appended.
type RecommendationPage struct {
	ID         uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	BoardID    string      `gorm:"type:text;not null;uniqueIndex:idx_pages_board_page" json:"board_id"`
	PageNumber int         `gorm:"not null;uniqueIndex:idx_pages_board_page" json:"page_number"`
	Items      StringArray `gorm:"type:text" json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName returns the database table name for RecommendationPage.
func (RecommendationPage) TableName() string {
	return "recommendation_pages"
}

// HistorySummary describes the page history of one board.
type HistorySummary struct {
	BoardID       string `json:"board_id"`
	TotalPages    int    `json:"total_pages"`
	LatestPage    int    `json:"latest_page"`
	PerPageCounts []int  `json:"per_page_counts"`
}
