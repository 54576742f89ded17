package catalog_test

import (
	"database/sql"
	"regexp"
	"testing"

	"barbershop/apperr"
	"barbershop/catalog"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServices(t *testing.T) {
	t.Parallel()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := catalog.NewAccessor(db)
	corteID := uuid.New()

	t.Run("list services", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "name", "price_cents", "category"}).
			AddRow(uuid.New().String(), "Barba", int64(1000), "barba").
			AddRow(corteID.String(), "Corte de Cabelo", int64(1500), "cabelo")
		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, price_cents, category FROM services ORDER BY price_cents, name`)).
			WillReturnRows(rows)

		services, err := a.ListServices(t.Context())
		require.NoError(t, err)
		require.Len(t, services, 2)
		assert.Equal(t, "Barba", services[0].Name)
		assert.Equal(t, int64(1500), services[1].Price)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("get service - no rows", func(t *testing.T) {
		missing := uuid.New()
		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, price_cents, category FROM services WHERE id = $1`)).
			WithArgs(missing).
			WillReturnError(sql.ErrNoRows)

		_, err := a.GetService(t.Context(), missing)
		require.ErrorIs(t, err, apperr.ErrNotFound)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("get service - store down", func(t *testing.T) {
		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, price_cents, category FROM services WHERE id = $1`)).
			WithArgs(corteID).
			WillReturnError(sql.ErrConnDone)

		_, err := a.GetService(t.Context(), corteID)
		require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	})

	t.Run("create service", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO services (id, name, price_cents, category) VALUES ($1, $2, $3, $4)`)).
			WithArgs(sqlmock.AnyArg(), "Sobrancelha", int64(500), "extra").
			WillReturnResult(sqlmock.NewResult(1, 1))

		s, err := a.CreateService(t.Context(), catalog.Service{Name: "Sobrancelha", Price: 500, Category: "extra"})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, s.ID)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("create service with a taken name", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO services (id, name, price_cents, category) VALUES ($1, $2, $3, $4)`)).
			WithArgs(sqlmock.AnyArg(), "Barba", int64(1000), "barba").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "services_name_key"})

		_, err := a.CreateService(t.Context(), catalog.Service{Name: "Barba", Price: 1000, Category: "barba"})
		require.True(t, apperr.IsValidation(err))
		assert.NotErrorIs(t, err, apperr.ErrUpstreamUnavailable)
		assert.Equal(t, "Please check the highlighted fields: a service with this name already exists", apperr.Message(err))

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("complimentary service is allowed", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO services`)).
			WithArgs(sqlmock.AnyArg(), "Cortesia", int64(0), "").
			WillReturnResult(sqlmock.NewResult(1, 1))

		_, err := a.CreateService(t.Context(), catalog.Service{Name: "Cortesia"})
		require.NoError(t, err)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("list services with a corrupt row", func(t *testing.T) {
		dbMock.ExpectQuery(regexp.QuoteMeta(`FROM services ORDER BY price_cents, name`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price_cents", "category"}).
				AddRow("not-a-uuid", "Barba", int64(1000), "barba"))

		_, err := a.ListServices(t.Context())
		require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("create service validation error", func(t *testing.T) {
		_, err := a.CreateService(t.Context(), catalog.Service{Name: " "})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestProviders(t *testing.T) {
	t.Parallel()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := catalog.NewAccessor(db)
	providerID := uuid.New()
	columns := []string{"id", "display_name", "photo_ref", "linked_account_id"}

	t.Run("create provider", func(t *testing.T) {
		account := "acc-123"
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO providers (id, display_name, photo_ref, linked_account_id) VALUES ($1, $2, $3, $4)`)).
			WithArgs(sqlmock.AnyArg(), "João", "", &account).
			WillReturnResult(sqlmock.NewResult(1, 1))

		p, err := a.CreateProvider(t.Context(), catalog.Provider{DisplayName: "João", LinkedAccountID: &account})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, p.ID)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("create provider with a linked account in use", func(t *testing.T) {
		account := "acc-123"
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO providers`)).
			WithArgs(sqlmock.AnyArg(), "Miguel", "", &account).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "providers_linked_account_id_key"})

		_, err := a.CreateProvider(t.Context(), catalog.Provider{DisplayName: "Miguel", LinkedAccountID: &account})
		require.True(t, apperr.IsValidation(err))
		assert.NotErrorIs(t, err, apperr.ErrUpstreamUnavailable)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("list providers", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow(providerID.String(), "João", "https://cdn/joao.jpg", "acc-123").
			AddRow(uuid.New().String(), "Miguel", "", nil)
		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, display_name, photo_ref, linked_account_id FROM providers ORDER BY display_name`)).
			WillReturnRows(rows)

		providers, err := a.ListProviders(t.Context())
		require.NoError(t, err)
		require.Len(t, providers, 2)
		require.NotNil(t, providers[0].LinkedAccountID)
		assert.Equal(t, "acc-123", *providers[0].LinkedAccountID)
		assert.Nil(t, providers[1].LinkedAccountID)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("get provider by account", func(t *testing.T) {
		dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT id, display_name, photo_ref, linked_account_id FROM providers WHERE linked_account_id = $1`)).
			WithArgs("acc-123").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(providerID.String(), "João", "", "acc-123"))

		p, err := a.GetProviderByAccount(t.Context(), "acc-123")
		require.NoError(t, err)
		assert.Equal(t, providerID, p.ID)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("set photo - missing provider", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE providers SET photo_ref = $1 WHERE id = $2`)).
			WithArgs("https://cdn/x.jpg", providerID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := a.SetProviderPhoto(t.Context(), providerID, "https://cdn/x.jpg")
		require.ErrorIs(t, err, apperr.ErrNotFound)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("update provider", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE providers SET display_name = $1, photo_ref = $2 WHERE id = $3`)).
			WithArgs("João Silva", "https://cdn/joao.jpg", providerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := a.UpdateProvider(t.Context(), catalog.Provider{ID: providerID, DisplayName: "João Silva", PhotoRef: "https://cdn/joao.jpg"})
		require.NoError(t, err)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("update provider - missing", func(t *testing.T) {
		missing := uuid.New()
		dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE providers SET display_name = $1, photo_ref = $2 WHERE id = $3`)).
			WithArgs("João", "", missing).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := a.UpdateProvider(t.Context(), catalog.Provider{ID: missing, DisplayName: "João"})
		require.ErrorIs(t, err, apperr.ErrNotFound)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("update provider - blank name", func(t *testing.T) {
		err := a.UpdateProvider(t.Context(), catalog.Provider{ID: providerID, DisplayName: "  "})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("remove provider blocked by foreign key", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM providers WHERE id = $1`)).
			WithArgs(providerID).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "reservations_provider_id_fkey"})

		err := a.RemoveProvider(t.Context(), providerID)
		require.ErrorIs(t, err, apperr.ErrHasReservations)

		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("remove provider", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM providers WHERE id = $1`)).
			WithArgs(providerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, a.RemoveProvider(t.Context(), providerID))
		require.NoError(t, dbMock.ExpectationsWereMet())
	})
}
