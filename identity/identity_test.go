package identity_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"barbershop/access"
	"barbershop/apperr"
	"barbershop/identity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	secret = "test-secret"
	issuer = "barbershop-test"
)

var ana = access.User{AccountID: "acc-ana", Email: "ana@example.com", DisplayName: "Ana", Role: access.Client}

func TestVerifier(t *testing.T) {
	v := identity.NewVerifier(secret, issuer)
	iss := identity.NewIssuer(secret, issuer)

	t.Run("round trip", func(t *testing.T) {
		token, err := iss.Issue(ana, time.Hour)
		require.NoError(t, err)

		u, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, ana, u)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := iss.Issue(ana, -time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, identity.ErrTokenExpired)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := identity.NewIssuer("other", issuer).Issue(ana, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := identity.NewIssuer(secret, "someone-else").Issue(ana, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("legacy role claim", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "acc-joao",
			"iss":  issuer,
			"exp":  time.Now().Add(time.Hour).Unix(),
			"role": "barbeiro",
		}).SignedString([]byte(secret))
		require.NoError(t, err)

		u, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, access.Provider, u.Role)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := iss.Issue(access.User{Role: access.Client}, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})
}

func TestDirectory(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d := identity.NewDirectory(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lookup := regexp.QuoteMeta(`SELECT role, revoked_at FROM account_roles WHERE account_id = $1`)

	t.Run("lookup unknown account", func(t *testing.T) {
		dbMock.ExpectQuery(lookup).WithArgs("acc-ana").WillReturnError(sql.ErrNoRows)

		e, err := d.Lookup(t.Context(), "acc-ana")
		require.NoError(t, err)
		assert.Equal(t, identity.Entry{}, e)
		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("lookup override and revocation", func(t *testing.T) {
		dbMock.ExpectQuery(lookup).WithArgs("acc-joao").
			WillReturnRows(sqlmock.NewRows([]string{"role", "revoked_at"}).AddRow("provider", now))

		e, err := d.Lookup(t.Context(), "acc-joao")
		require.NoError(t, err)
		require.NotNil(t, e.Role)
		assert.Equal(t, access.Provider, *e.Role)
		assert.True(t, e.Revoked)
		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("lookup store down", func(t *testing.T) {
		dbMock.ExpectQuery(lookup).WithArgs("acc-ana").WillReturnError(sql.ErrConnDone)

		_, err := d.Lookup(t.Context(), "acc-ana")
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	})

	t.Run("set role", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO account_roles (account_id, role, updated_at) VALUES ($1, $2, $3)`)).
			WithArgs("acc-joao", "provider", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, d.SetRole(t.Context(), "acc-joao", access.Provider, now))
		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("admin is not assignable", func(t *testing.T) {
		err := d.SetRole(t.Context(), "acc-joao", access.Admin, now)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("revoke", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO account_roles (account_id, revoked_at, updated_at) VALUES ($1, $2, $2)`)).
			WithArgs("acc-ana", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, d.Revoke(t.Context(), "acc-ana", now))
		require.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("restore unknown account", func(t *testing.T) {
		dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE account_roles SET revoked_at = NULL, updated_at = $2 WHERE account_id = $1`)).
			WithArgs("acc-x", now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, d.Restore(t.Context(), "acc-x", now), apperr.ErrNotFound)
	})
}

type MockDirectory struct {
	testifymock.Mock
}

func (m *MockDirectory) Lookup(ctx context.Context, accountID string) (identity.Entry, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(identity.Entry), args.Error(1)
}

func TestAuthenticator(t *testing.T) {
	iss := identity.NewIssuer(secret, issuer)
	token, err := iss.Issue(ana, time.Hour)
	require.NoError(t, err)

	t.Run("no header is a guest", func(t *testing.T) {
		a := identity.NewAuthenticator(identity.NewVerifier(secret, issuer), new(MockDirectory))
		u, err := a.CurrentUser(httptest.NewRequest("GET", "/api/services", nil))
		require.NoError(t, err)
		assert.False(t, u.Authenticated())
	})

	t.Run("malformed header", func(t *testing.T) {
		a := identity.NewAuthenticator(identity.NewVerifier(secret, issuer), new(MockDirectory))
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Basic abc")
		_, err := a.CurrentUser(r)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("role override applies", func(t *testing.T) {
		dir := new(MockDirectory)
		provider := access.Provider
		dir.On("Lookup", testifymock.Anything, "acc-ana").Return(identity.Entry{Role: &provider}, nil)

		a := identity.NewAuthenticator(identity.NewVerifier(secret, issuer), dir)
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		u, err := a.CurrentUser(r)
		require.NoError(t, err)
		assert.Equal(t, access.Provider, u.Role)
		assert.Equal(t, "acc-ana", u.AccountID)
	})

	t.Run("revoked account", func(t *testing.T) {
		dir := new(MockDirectory)
		dir.On("Lookup", testifymock.Anything, "acc-ana").Return(identity.Entry{Revoked: true}, nil)

		a := identity.NewAuthenticator(identity.NewVerifier(secret, issuer), dir)
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		_, err := a.CurrentUser(r)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		assert.ErrorIs(t, a.ValidateSession(t.Context(), ana), apperr.ErrUnauthenticated)
	})

	t.Run("directory unavailable", func(t *testing.T) {
		dir := new(MockDirectory)
		dir.On("Lookup", testifymock.Anything, "acc-ana").
			Return(identity.Entry{}, apperr.Upstream("scan", errors.New("connection refused")))

		a := identity.NewAuthenticator(identity.NewVerifier(secret, issuer), dir)
		assert.ErrorIs(t, a.ValidateSession(t.Context(), ana), apperr.ErrUpstreamUnavailable)
	})

	t.Run("guest sessions are always valid", func(t *testing.T) {
		dir := new(MockDirectory)
		a := identity.NewAuthenticator(identity.NewVerifier(secret, issuer), dir)
		require.NoError(t, a.ValidateSession(t.Context(), access.User{}))
		dir.AssertNotCalled(t, "Lookup", testifymock.Anything, testifymock.Anything)
	})
}
