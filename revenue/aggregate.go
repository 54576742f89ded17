// Package revenue rolls reservation prices up by service over a calendar window.
package revenue

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"barbershop/apperr"
	"barbershop/reservation"
)

type Window string

const (
	Day   Window = "day"
	Month Window = "month"
	Year  Window = "year"
)

var windowAliases = map[string]Window{
	"day":    Day,
	"diario": Day,
	"month":  Month,
	"mensal": Month,
	"year":   Year,
	"anual":  Year,
}

// ParseWindow accepts day, month or year and their Portuguese labels.
// An empty string means Day.
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Day, nil
	}
	w, ok := windowAliases[s]
	if !ok {
		return "", fmt.Errorf("window %q: %w", s, apperr.Validation("window must be day, month or year"))
	}
	return w, nil
}

// prefix is the leading part of a YYYY-MM-DD date that must match now.
func (w Window) prefix(now time.Time) string {
	switch w {
	case Year:
		return now.Format("2006")
	case Month:
		return now.Format("2006-01")
	default:
		return now.Format(reservation.DateLayout)
	}
}

type ServiceAmount struct {
	Service string `json:"service"`
	Amount  int64  `json:"amount_cents"`
}

type Summary struct {
	Window    Window          `json:"window"`
	Total     int64           `json:"total_cents"`
	Count     int             `json:"count"`
	ByService []ServiceAmount `json:"by_service"`
}

// Aggregate totals the reservations that fall in window relative to now.
// now must already be in the facility timezone. ByService keeps the order
// in which services were first seen.
func Aggregate(rs []reservation.Reservation, window Window, now time.Time) Summary {
	want := window.prefix(now)
	s := Summary{Window: window, ByService: []ServiceAmount{}}
	index := map[string]int{}

	for _, r := range rs {
		if !strings.HasPrefix(r.Date, want) {
			continue
		}
		s.Total += r.Price
		s.Count++

		i, seen := index[r.ServiceName]
		if !seen {
			i = len(s.ByService)
			index[r.ServiceName] = i
			s.ByService = append(s.ByService, ServiceAmount{Service: r.ServiceName})
		}
		s.ByService[i].Amount += r.Price
	}
	return s
}

// Share is amount as a fraction of the total, 0 when nothing was earned.
func (s Summary) Share(amount int64) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(amount) / float64(s.Total)
}

// SortedByAmount returns ByService ordered by amount descending, then by name.
func (s Summary) SortedByAmount() []ServiceAmount {
	out := slices.Clone(s.ByService)
	slices.SortStableFunc(out, func(a, b ServiceAmount) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Service, b.Service)
	})
	return out
}

// Top is the best-earning service, false when the window is empty.
func (s Summary) Top() (ServiceAmount, bool) {
	sorted := s.SortedByAmount()
	if len(sorted) == 0 {
		return ServiceAmount{}, false
	}
	return sorted[0], true
}
