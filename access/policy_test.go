package access_test

import (
	"encoding/json"
	"testing"

	"barbershop/access"
	"barbershop/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		claim string
		want  access.Role
	}{
		{"admin", access.Admin},
		{" Admin ", access.Admin},
		{"barber", access.Provider},
		{"barbeiro", access.Provider},
		{"BARBEIROS", access.Provider},
		{"provider", access.Provider},
		{"cliente", access.Client},
		{"client", access.Client},
		{"", access.Client},
		{"something-else", access.Client},
	}
	for _, tt := range tests {
		t.Run(tt.claim, func(t *testing.T) {
			assert.Equal(t, tt.want, access.NormalizeRole(tt.claim))
		})
	}
}

func TestParseAssignableRole(t *testing.T) {
	role, ok := access.ParseAssignableRole("Barbeiro")
	require.True(t, ok)
	assert.Equal(t, access.Provider, role)

	role, ok = access.ParseAssignableRole("cliente")
	require.True(t, ok)
	assert.Equal(t, access.Client, role)

	_, ok = access.ParseAssignableRole("admin")
	assert.False(t, ok)
}

func TestCheck(t *testing.T) {
	guest := access.User{}
	client := access.User{AccountID: "c1", Role: access.Client}
	provider := access.User{AccountID: "p1", Role: access.Provider}
	admin := access.User{AccountID: "a1", Role: access.Admin}

	t.Run("everyone can book", func(t *testing.T) {
		for _, u := range []access.User{guest, client, provider, admin} {
			assert.NoError(t, access.Check(access.CreateReservation, u))
		}
	})

	t.Run("guest must sign in for history", func(t *testing.T) {
		err := access.Check(access.ViewOwnHistory, guest)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		assert.NoError(t, access.Check(access.ViewOwnHistory, client))
	})

	t.Run("agenda is for providers and admins", func(t *testing.T) {
		assert.ErrorIs(t, access.Check(access.ViewProviderAgenda, client), apperr.ErrForbidden)
		assert.NoError(t, access.Check(access.ViewProviderAgenda, provider))
		assert.NoError(t, access.Check(access.ViewAllAgenda, admin))
	})

	t.Run("mutations are admin only", func(t *testing.T) {
		for _, op := range []access.Operation{access.DeleteProvider, access.DeleteReservation, access.ChangeRole, access.ViewRevenue} {
			assert.ErrorIs(t, access.Check(op, provider), apperr.ErrForbidden, op.String())
			assert.NoError(t, access.Check(op, admin), op.String())
		}
	})

	t.Run("role without account is not authenticated", func(t *testing.T) {
		assert.False(t, access.Allowed(access.ViewRevenue, access.User{Role: access.Admin}))
	})
}

func TestAgendaViews(t *testing.T) {
	assert.Nil(t, access.AgendaViews(access.User{}))
	assert.Equal(t, []access.View{access.ViewClient}, access.AgendaViews(access.User{AccountID: "c", Role: access.Client}))
	assert.Equal(t, access.ViewToday, access.AgendaViews(access.User{AccountID: "p", Role: access.Provider})[0])
	assert.Equal(t, access.ViewAll, access.AgendaViews(access.User{AccountID: "a", Role: access.Admin})[0])
}

func TestUserContext(t *testing.T) {
	assert.Equal(t, access.User{}, access.UserFromContext(t.Context()))

	u := access.User{AccountID: "x", Role: access.Client}
	assert.Equal(t, u, access.UserFromContext(access.WithUser(t.Context(), u)))

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"account_id":"x","role":"client"}`, string(b))
}
