package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barbershop/access"
	"barbershop/apperr"
)

// Entry is what the directory knows about an account. The zero value means
// no override and not revoked.
type Entry struct {
	Role    *access.Role
	Revoked bool
}

// Directory stores role overrides set by admins and revoked accounts.
type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Lookup(ctx context.Context, accountID string) (Entry, error) {
	var role sql.NullString
	var revokedAt sql.NullTime

	query := `SELECT role, revoked_at FROM account_roles WHERE account_id = $1`
	if err := d.db.QueryRowContext(ctx, query, accountID).Scan(&role, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, nil
		}
		return Entry{}, apperr.Upstream("scan", err)
	}

	e := Entry{Revoked: revokedAt.Valid}
	if role.Valid {
		r := access.NormalizeRole(role.String)
		e.Role = &r
	}
	return e, nil
}

// SetRole records an admin's role change for accountID. Only client and
// provider can be assigned.
func (d *Directory) SetRole(ctx context.Context, accountID string, role access.Role, now time.Time) error {
	if accountID == "" {
		return apperr.Validation("account ID is required")
	}
	if role != access.Client && role != access.Provider {
		return apperr.Validation("role must be client or provider")
	}

	query := `INSERT INTO account_roles (account_id, role, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (account_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`
	if _, err := d.db.ExecContext(ctx, query, accountID, role.String(), now); err != nil {
		return apperr.Upstream("exec context", err)
	}
	return nil
}

// Revoke ends every session of accountID at the next sensitive operation.
func (d *Directory) Revoke(ctx context.Context, accountID string, now time.Time) error {
	query := `INSERT INTO account_roles (account_id, revoked_at, updated_at) VALUES ($1, $2, $2)
ON CONFLICT (account_id) DO UPDATE SET revoked_at = EXCLUDED.revoked_at, updated_at = EXCLUDED.updated_at`
	if _, err := d.db.ExecContext(ctx, query, accountID, now); err != nil {
		return apperr.Upstream("exec context", err)
	}
	return nil
}

func (d *Directory) Restore(ctx context.Context, accountID string, now time.Time) error {
	query := `UPDATE account_roles SET revoked_at = NULL, updated_at = $2 WHERE account_id = $1`
	res, err := d.db.ExecContext(ctx, query, accountID, now)
	if err != nil {
		return apperr.Upstream("exec context", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperr.Upstream("rows affected", err)
	} else if n == 0 {
		return fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	return nil
}
