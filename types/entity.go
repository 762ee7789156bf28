package types

import "time"

// Entity carries the bookkeeping timestamps shared by every Tariff record.
// Embed it in domain types; the engine stamps it on create and update.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity with current timestamps.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}
