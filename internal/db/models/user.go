package models

import "time"

// User is a broadcast target. Presence in the table means the user is
// assumed reachable until a delivery proves otherwise.
type User struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
