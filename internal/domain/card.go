package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CardStatus represents the availability status of a card record.
// Values include CardStatusActive and CardStatusDisabled.
type CardStatus string

const (
	CardStatusActive   CardStatus = "active"
	CardStatusDisabled CardStatus = "disabled"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Card represents one pictogram card in the fixed universe.
// The embedding vector itself lives in the engine's vector store, keyed by ID;
// this record carries the display metadata.
type Card struct {
	ID         string      `gorm:"type:text;primaryKey" json:"id"`
	Label      string      `gorm:"type:text;not null" json:"label"`
	ClusterID  int         `gorm:"not null;index:idx_cards_cluster" json:"cluster_id"`
	Tags       StringArray `gorm:"type:text" json:"tags"`
	StorageKey string      `gorm:"type:text" json:"storage_key"`
	Format     string      `json:"format"`
	Status     CardStatus  `gorm:"type:text;index:idx_cards_status;default:active" json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Card.
func (Card) TableName() string {
	return "cards"
}

// CardView is a card enriched with a resolved image URL for API responses.
type CardView struct {
	Card
	ImageURL string `json:"image_url,omitempty"`
}
