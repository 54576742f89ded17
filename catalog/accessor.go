package catalog

import "database/sql"

// Accessor is the DB layer entrypoint for services and providers.
type Accessor struct {
	db *sql.DB
}

func NewAccessor(db *sql.DB) *Accessor {
	return &Accessor{db: db}
}
