package reservation

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"barbershop/apperr"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	uniqueViolation    = "23505"
	slotUniqueKey      = "reservations_provider_slot_key"
	reservationColumns = `id, provider_id, service_name, price_cents, reservation_date::text, slot_time, client_account_id, contact_name, contact_email, created_at`
)

// CreateReservation stores candidate if its (provider, date, time) slot is free.
// The pre-check spares a failed insert in the common case; the unique
// constraint on the table decides races.
func (a *Accessor) CreateReservation(ctx context.Context, candidate Reservation, now time.Time) (*Reservation, error) {
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	taken, err := a.slotTaken(ctx, candidate.ProviderID, candidate.Date, candidate.Time)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%s %s: %w", candidate.Date, candidate.Time, apperr.ErrSlotConflict)
	}

	id := uuid.New()
	var token string
	var tokenHash *string
	if candidate.IsGuest() {
		token = uuid.NewString()
		h := hashToken(token)
		tokenHash = &h
	}

	query := `INSERT INTO reservations (id, provider_id, service_name, price_cents, reservation_date, slot_time, client_account_id, contact_name, contact_email, cancel_token_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := a.db.ExecContext(ctx, query,
		id, candidate.ProviderID, candidate.ServiceName, candidate.Price, candidate.Date, candidate.Time,
		candidate.ClientAccountID, candidate.ContactName, candidate.ContactEmail, tokenHash, now,
	); err != nil {
		if isSlotConflict(err) {
			return nil, fmt.Errorf("%s %s: %w", candidate.Date, candidate.Time, apperr.ErrSlotConflict)
		}
		return nil, apperr.Upstream("exec context", err)
	}

	created := candidate
	created.ID = id
	created.CreatedAt = now
	created.CancelToken = token
	return &created, nil
}

func (a *Accessor) slotTaken(ctx context.Context, providerID uuid.UUID, date, slot string) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM reservations WHERE provider_id = $1 AND reservation_date = $2 AND slot_time = $3)`
	if err := a.db.QueryRowContext(ctx, query, providerID, date, slot).Scan(&taken); err != nil {
		return false, apperr.Upstream("scan", err)
	}
	return taken, nil
}

func isSlotConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == slotUniqueKey
}

// BookedTimes returns the slot labels already reserved for a provider on date.
func (a *Accessor) BookedTimes(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	query := `SELECT slot_time FROM reservations WHERE provider_id = $1 AND reservation_date = $2`
	rows, err := a.db.QueryContext(ctx, query, providerID, date)
	if err != nil {
		return nil, apperr.Upstream("query context", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, apperr.Upstream("scan", err)
		}
		times = append(times, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("rows", err)
	}
	return times, nil
}

func (a *Accessor) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	r, err := scanReservation(a.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s: %w", id, apperr.ErrNotFound)
		}
		return nil, apperr.Upstream("scan", err)
	}
	return &r, nil
}

func (a *Accessor) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reservations WHERE id = $1`
	res, err := a.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperr.Upstream("exec context", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Upstream("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("reservation %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CancelWithToken deletes a guest reservation whose cancellation token matches.
func (a *Accessor) CancelWithToken(ctx context.Context, id uuid.UUID, token string) error {
	var stored sql.NullString
	query := `SELECT cancel_token_hash FROM reservations WHERE id = $1`
	if err := a.db.QueryRowContext(ctx, query, id).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reservation %s: %w", id, apperr.ErrNotFound)
		}
		return apperr.Upstream("scan", err)
	}
	if !stored.Valid || token == "" ||
		subtle.ConstantTimeCompare([]byte(stored.String), []byte(hashToken(token))) != 1 {
		return fmt.Errorf("cancel reservation %s: %w", id, apperr.ErrForbidden)
	}
	return a.DeleteReservation(ctx, id)
}

// DeleteProvider removes a provider that no reservation references.
func (a *Accessor) DeleteProvider(ctx context.Context, providerID uuid.UUID) error {
	var referenced bool
	query := `SELECT EXISTS (SELECT 1 FROM reservations WHERE provider_id = $1)`
	if err := a.db.QueryRowContext(ctx, query, providerID).Scan(&referenced); err != nil {
		return apperr.Upstream("scan", err)
	}
	if referenced {
		return fmt.Errorf("provider %s: %w", providerID, apperr.ErrHasReservations)
	}

	if err := a.providers.RemoveProvider(ctx, providerID); err != nil {
		return fmt.Errorf("remove provider: %w", err)
	}
	return nil
}

func (a *Accessor) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE provider_id = $1 ORDER BY reservation_date, slot_time`
	return a.list(ctx, query, providerID)
}

// ListBetween returns reservations with from <= date <= to.
func (a *Accessor) ListBetween(ctx context.Context, from, to string) ([]Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_date BETWEEN $1 AND $2 ORDER BY reservation_date, slot_time`
	return a.list(ctx, query, from, to)
}

func (a *Accessor) ListByClient(ctx context.Context, accountID string) ([]Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE client_account_id = $1 ORDER BY reservation_date, slot_time`
	return a.list(ctx, query, accountID)
}

func (a *Accessor) ListAll(ctx context.Context) ([]Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY reservation_date, slot_time`
	return a.list(ctx, query)
}

func (a *Accessor) list(ctx context.Context, query string, args ...any) ([]Reservation, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Upstream("query context", err)
	}
	defer rows.Close()

	reservations := []Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, apperr.Upstream("scan", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("rows", err)
	}
	return reservations, nil
}

func scanReservation(row interface{ Scan(...any) error }) (Reservation, error) {
	var r Reservation
	var client, name, email sql.NullString
	if err := row.Scan(&r.ID, &r.ProviderID, &r.ServiceName, &r.Price, &r.Date, &r.Time,
		&client, &name, &email, &r.CreatedAt); err != nil {
		return Reservation{}, err
	}
	r.ClientAccountID = nullable(client)
	r.ContactName = nullable(name)
	r.ContactEmail = nullable(email)
	return r, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
