package domain

import "time"

// Timestamps records when a library, book, patron, loan or reservation was
// created and last changed.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch marks the entity as modified at now.
func (t *Timestamps) Touch(now time.Time) {
	t.UpdatedAt = now
}

// InitTimestamps stamps a new entity.
func (t *Timestamps) InitTimestamps(now time.Time) {
	t.CreatedAt = now
	t.UpdatedAt = now
}
