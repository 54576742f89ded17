package reservation

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type ProviderRemover interface {
	RemoveProvider(ctx context.Context, id uuid.UUID) error
}

// Accessor is the only writer of reservation rows.
type Accessor struct {
	db        *sql.DB
	providers ProviderRemover
}

func NewAccessor(db *sql.DB, providers ProviderRemover) *Accessor {
	return &Accessor{
		db:        db,
		providers: providers,
	}
}
