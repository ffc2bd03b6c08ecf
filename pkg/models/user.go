package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns every work item and derived record in the system. The guard and
// eligibility rules are always scoped to a single user.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
