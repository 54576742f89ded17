// Package agenda derives read-only schedule views from a reservation snapshot.
// Every call recomputes from the slice it is given; inputs are not modified.
package agenda

import (
	"cmp"
	"slices"
	"time"

	"barbershop/reservation"

	"github.com/google/uuid"
)

// Day is one date's reservations, ordered by time.
type Day struct {
	Date         string                    `json:"date"`
	Reservations []reservation.Reservation `json:"reservations"`
}

// History splits a client's reservations around now.
type History struct {
	Upcoming []reservation.Reservation `json:"upcoming"`
	Past     []reservation.Reservation `json:"past"`
}

// now must already be in the facility timezone.
func Today(rs []reservation.Reservation, providerID uuid.UUID, now time.Time) []reservation.Reservation {
	today := now.Format(reservation.DateLayout)
	out := filter(rs, func(r reservation.Reservation) bool {
		return r.ProviderID == providerID && r.Date == today
	})
	slices.SortStableFunc(out, ascending)
	return out
}

// Mine is every reservation of the provider, latest first.
func Mine(rs []reservation.Reservation, providerID uuid.UUID) []reservation.Reservation {
	out := filter(rs, func(r reservation.Reservation) bool {
		return r.ProviderID == providerID
	})
	slices.SortStableFunc(out, descending)
	return out
}

// All groups every reservation by date, earliest day first.
func All(rs []reservation.Reservation) []Day {
	sorted := slices.Clone(rs)
	slices.SortStableFunc(sorted, ascending)

	days := []Day{}
	for _, r := range sorted {
		if n := len(days); n > 0 && days[n-1].Date == r.Date {
			days[n-1].Reservations = append(days[n-1].Reservations, r)
			continue
		}
		days = append(days, Day{Date: r.Date, Reservations: []reservation.Reservation{r}})
	}
	return days
}

// Client partitions the account's reservations into upcoming (starting at or
// after now, soonest first) and past (most recent first).
func Client(rs []reservation.Reservation, accountID string, now time.Time) History {
	nowKey := now.Format(reservation.DateLayout + " " + reservation.TimeLayout)
	h := History{
		Upcoming: []reservation.Reservation{},
		Past:     []reservation.Reservation{},
	}
	for _, r := range rs {
		if r.ClientAccountID == nil || *r.ClientAccountID != accountID {
			continue
		}
		if key(r) >= nowKey {
			h.Upcoming = append(h.Upcoming, r)
		} else {
			h.Past = append(h.Past, r)
		}
	}
	slices.SortStableFunc(h.Upcoming, ascending)
	slices.SortStableFunc(h.Past, descending)
	return h
}

func filter(rs []reservation.Reservation, keep func(reservation.Reservation) bool) []reservation.Reservation {
	out := []reservation.Reservation{}
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Date and slot labels are fixed width, so their concatenation sorts chronologically.
func key(r reservation.Reservation) string {
	return r.Date + " " + r.Time
}

func ascending(a, b reservation.Reservation) int {
	return cmp.Compare(key(a), key(b))
}

func descending(a, b reservation.Reservation) int {
	return cmp.Compare(key(b), key(a))
}
