package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"barbershop/apperr"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func (a *Accessor) ListServices(ctx context.Context) ([]Service, error) {
	query := `SELECT id, name, price_cents, category FROM services ORDER BY price_cents, name`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Upstream("query context", err)
	}
	defer rows.Close()

	services := []Service{}
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.Category); err != nil {
			return nil, apperr.Upstream("scan", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("rows", err)
	}
	return services, nil
}

func (a *Accessor) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	var s Service

	query := `SELECT id, name, price_cents, category FROM services WHERE id = $1`
	row := a.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&s.ID, &s.Name, &s.Price, &s.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Service{}, fmt.Errorf("service %s: %w", id, apperr.ErrNotFound)
		}
		return Service{}, apperr.Upstream("scan", err)
	}
	return s, nil
}

// CreateService adds a service to the catalog. Existing services are never
// edited; reservations keep their own price snapshot.
func (a *Accessor) CreateService(ctx context.Context, s Service) (Service, error) {
	if err := s.Validate(); err != nil {
		return Service{}, fmt.Errorf("validate: %w", err)
	}

	s.ID = uuid.New()
	query := `INSERT INTO services (id, name, price_cents, category) VALUES ($1, $2, $3, $4)`
	if _, err := a.db.ExecContext(ctx, query, s.ID, s.Name, s.Price, s.Category); err != nil {
		if pqCode(err) == uniqueViolation {
			return Service{}, apperr.Validation("a service with this name already exists")
		}
		return Service{}, apperr.Upstream("exec context", err)
	}
	return s, nil
}

const providerColumns = `id, display_name, photo_ref, linked_account_id`

func scanProvider(row interface{ Scan(...any) error }) (Provider, error) {
	var p Provider
	var linked sql.NullString
	if err := row.Scan(&p.ID, &p.DisplayName, &p.PhotoRef, &linked); err != nil {
		return Provider{}, err
	}
	if linked.Valid {
		p.LinkedAccountID = &linked.String
	}
	return p, nil
}

func (a *Accessor) ListProviders(ctx context.Context) ([]Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY display_name`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Upstream("query context", err)
	}
	defer rows.Close()

	providers := []Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, apperr.Upstream("scan", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("rows", err)
	}
	return providers, nil
}

func (a *Accessor) GetProvider(ctx context.Context, id uuid.UUID) (Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`
	p, err := scanProvider(a.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Provider{}, fmt.Errorf("provider %s: %w", id, apperr.ErrNotFound)
		}
		return Provider{}, apperr.Upstream("scan", err)
	}
	return p, nil
}

// GetProviderByAccount resolves the provider record linked to an identity account.
func (a *Accessor) GetProviderByAccount(ctx context.Context, accountID string) (Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE linked_account_id = $1`
	p, err := scanProvider(a.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Provider{}, fmt.Errorf("provider for account %s: %w", accountID, apperr.ErrNotFound)
		}
		return Provider{}, apperr.Upstream("scan", err)
	}
	return p, nil
}

func (a *Accessor) CreateProvider(ctx context.Context, p Provider) (Provider, error) {
	if err := p.Validate(); err != nil {
		return Provider{}, fmt.Errorf("validate: %w", err)
	}

	p.ID = uuid.New()
	query := `INSERT INTO providers (id, display_name, photo_ref, linked_account_id) VALUES ($1, $2, $3, $4)`
	if _, err := a.db.ExecContext(ctx, query, p.ID, p.DisplayName, p.PhotoRef, p.LinkedAccountID); err != nil {
		if pqCode(err) == uniqueViolation {
			return Provider{}, apperr.Validation("this account is already linked to another provider")
		}
		return Provider{}, apperr.Upstream("exec context", err)
	}
	return p, nil
}

// UpdateProvider rewrites the display name and photo of an existing provider.
// The linked account is left as it is.
func (a *Accessor) UpdateProvider(ctx context.Context, p Provider) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	query := `UPDATE providers SET display_name = $1, photo_ref = $2 WHERE id = $3`
	res, err := a.db.ExecContext(ctx, query, p.DisplayName, p.PhotoRef, p.ID)
	if err != nil {
		return apperr.Upstream("exec context", err)
	}
	return expectOneRow(res, "provider", p.ID)
}

func (a *Accessor) SetProviderPhoto(ctx context.Context, id uuid.UUID, photoRef string) error {
	query := `UPDATE providers SET photo_ref = $1 WHERE id = $2`
	res, err := a.db.ExecContext(ctx, query, photoRef, id)
	if err != nil {
		return apperr.Upstream("exec context", err)
	}
	return expectOneRow(res, "provider", id)
}

// RemoveProvider deletes the provider row. Callers go through
// reservation.Accessor.DeleteProvider, which refuses when reservations exist;
// a reservation inserted after that check trips the foreign key instead.
func (a *Accessor) RemoveProvider(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM providers WHERE id = $1`
	res, err := a.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return fmt.Errorf("provider %s: %w", id, apperr.ErrHasReservations)
		}
		return apperr.Upstream("exec context", err)
	}
	return expectOneRow(res, "provider", id)
}

func expectOneRow(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Upstream("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
	}
	return nil
}
