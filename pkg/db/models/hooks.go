package models

import "github.com/google/uuid"

// ensureID assigns a fresh uuid when the primary key is still zero. Ids are
// generated in Go so the same models work against Postgres and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
