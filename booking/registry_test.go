package booking_test

import (
	"testing"

	"barbershop/access"
	"barbershop/apperr"
	"barbershop/booking"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := booking.NewRegistry(booking.Deps{})

	guestID, guestFlow := r.Start(access.User{})
	anaID, _ := r.Start(ana)
	assert.Equal(t, 2, r.Len())

	got, err := r.Get(guestID, access.User{})
	require.NoError(t, err)
	assert.Same(t, guestFlow, got)

	_, err = r.Get(anaID, access.User{AccountID: "someone-else", Role: access.Client})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = r.Get(anaID, ana)
	require.NoError(t, err)

	_, err = r.Get(uuid.New(), ana)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	r.Remove(guestID)
	r.Remove(uuid.New())
	assert.Equal(t, 1, r.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "guest_contact_info", booking.GuestContactInfo.String())
	assert.Equal(t, "state(42)", booking.State(42).String())

	b, err := booking.Committed.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"committed"`, string(b))
}
