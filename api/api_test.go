package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"barbershop/access"
	"barbershop/api"
	"barbershop/apperr"
	"barbershop/notify"

	"github.com/DATA-DOG/go-sqlmock"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	now   = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	admin = access.User{AccountID: "acc-admin", Email: "admin@barbearia.pt", Role: access.Admin}
	ana   = access.User{AccountID: "acc-ana", Email: "ana@example.com", DisplayName: "Ana", Role: access.Client}
	joao  = access.User{AccountID: "acc-joao", Email: "joao@barbearia.pt", Role: access.Provider}
)

// stubAuth treats the bearer token as a key into users.
type stubAuth struct {
	users   map[string]access.User
	revoked map[string]bool
}

func (s stubAuth) CurrentUser(r *http.Request) (access.User, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return access.User{}, nil
	}
	u, ok := s.users[strings.TrimPrefix(h, "Bearer ")]
	if !ok {
		return access.User{}, apperr.ErrUnauthenticated
	}
	return u, nil
}

func (s stubAuth) ValidateSession(_ context.Context, u access.User) error {
	if s.revoked[u.AccountID] {
		return apperr.ErrUnauthenticated
	}
	return nil
}

type MockRoles struct {
	testifymock.Mock
}

func (m *MockRoles) SetRole(ctx context.Context, accountID string, role access.Role, at time.Time) error {
	return m.Called(ctx, accountID, role, at).Error(0)
}

func (m *MockRoles) Revoke(ctx context.Context, accountID string, at time.Time) error {
	return m.Called(ctx, accountID, at).Error(0)
}

func (m *MockRoles) Restore(ctx context.Context, accountID string, at time.Time) error {
	return m.Called(ctx, accountID, at).Error(0)
}

type fakePhotos struct {
	key  string
	body string
}

func (f *fakePhotos) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.key, f.body = key, string(b)
	return "https://cdn.barbearia.pt/" + key, nil
}

type chanMailer chan notify.EmailMessage

func (c chanMailer) Send(_ context.Context, msg notify.EmailMessage) error {
	c <- msg
	return nil
}

type env struct {
	api    *api.API
	db     sqlmock.Sqlmock
	roles  *MockRoles
	photos *fakePhotos
	mail   chanMailer
	auth   stubAuth
}

func setupAPI(t *testing.T) *env {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:     dbMock,
		roles:  new(MockRoles),
		photos: &fakePhotos{},
		mail:   make(chanMailer, 4),
		auth: stubAuth{
			users:   map[string]access.User{"admin": admin, "ana": ana, "joao": joao},
			revoked: map[string]bool{},
		},
	}
	e.api = api.NewAPI(db, api.Deps{
		Auth:          e.auth,
		Roles:         e.roles,
		Photos:        e.photos,
		Mailer:        e.mail,
		Location:      time.UTC,
		Now:           func() time.Time { return now },
		SlotGrid:      []string{"09:00", "10:00", "11:00"},
		PublicBaseURL: "https://barbearia.pt",
	})
	e.api.RegisterRoutes()
	return e
}

// do sends a request as the user named by token ("" for a guest).
func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.api.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var res api.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Equal(t, rec.Code, res.Status)
	body, ok := res.Response.(map[string]any)
	require.True(t, ok, "response is %T", res.Response)
	return body
}
