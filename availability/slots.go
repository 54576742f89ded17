// Package availability computes the bookable slot labels for a provider and day.
package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultGrid is the facility's daily slot grid, one slot per hour.
var DefaultGrid = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00", "18:00"}

// Subtract returns the grid labels that are not in booked, in grid order.
func Subtract(grid, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	free := make([]string, 0, len(grid))
	for _, slot := range grid {
		if _, ok := taken[slot]; !ok {
			free = append(free, slot)
		}
	}
	return free
}

// ParseGrid reads a comma separated list of zero-padded HH:MM labels.
// Labels must be strictly increasing.
func ParseGrid(s string) ([]string, error) {
	var grid []string
	var prev time.Time
	for i, raw := range strings.Split(s, ",") {
		label := strings.TrimSpace(raw)
		t, err := time.Parse("15:04", label)
		if err != nil || t.Format("15:04") != label {
			return nil, fmt.Errorf("slot %q: must be HH:MM", label)
		}
		if i > 0 && !t.After(prev) {
			return nil, fmt.Errorf("slot %q: grid must be strictly increasing", label)
		}
		prev = t
		grid = append(grid, label)
	}
	return grid, nil
}

type BookedTimesReader interface {
	BookedTimes(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)
}

// Engine answers availability queries against the reservation store. It
// does not check that the provider exists or that date is in the future.
type Engine struct {
	grid  []string
	store BookedTimesReader
}

func NewEngine(store BookedTimesReader, grid []string) *Engine {
	if len(grid) == 0 {
		grid = DefaultGrid
	}
	return &Engine{
		grid:  append([]string(nil), grid...),
		store: store,
	}
}

func (e *Engine) Grid() []string {
	return append([]string(nil), e.grid...)
}

func (e *Engine) AvailableSlots(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	booked, err := e.store.BookedTimes(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("booked times: %w", err)
	}
	return Subtract(e.grid, booked), nil
}
