// Package access decides which operations and agenda views a caller may use.
package access

import (
	"context"
	"fmt"

	"barbershop/apperr"
)

type Operation int

const (
	CreateReservation Operation = iota
	ViewOwnHistory
	ViewProviderAgenda
	ViewAllAgenda
	ViewRevenue
	DeleteReservation
	CreateProvider
	DeleteProvider
	UploadPhoto
	ManageCatalog
	ChangeRole
)

var operationNames = map[Operation]string{
	CreateReservation:  "create reservation",
	ViewOwnHistory:     "view own history",
	ViewProviderAgenda: "view provider agenda",
	ViewAllAgenda:      "view all reservations",
	ViewRevenue:        "view revenue",
	DeleteReservation:  "delete reservation",
	CreateProvider:     "create provider",
	DeleteProvider:     "delete provider",
	UploadPhoto:        "upload photo",
	ManageCatalog:      "manage catalog",
	ChangeRole:         "change role",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// minimum role per operation
var requiredRole = map[Operation]Role{
	CreateReservation:  Guest,
	ViewOwnHistory:     Client,
	ViewProviderAgenda: Provider,
	ViewAllAgenda:      Provider,
	ViewRevenue:        Admin,
	DeleteReservation:  Admin,
	CreateProvider:     Admin,
	DeleteProvider:     Admin,
	UploadPhoto:        Admin,
	ManageCatalog:      Admin,
	ChangeRole:         Admin,
}

// Allowed is a pure function of (operation, user).
func Allowed(op Operation, u User) bool {
	required, ok := requiredRole[op]
	if !ok {
		return false
	}
	if required == Guest {
		return true
	}
	return u.Authenticated() && u.Role >= required
}

// Check is Allowed expressed as an error: guests get ErrUnauthenticated,
// signed-in users without the role get ErrForbidden.
func Check(op Operation, u User) error {
	if Allowed(op, u) {
		return nil
	}
	if !u.Authenticated() {
		return fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}
	return fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
}

// View names an agenda projection.
type View string

const (
	ViewToday  View = "today"
	ViewMine   View = "mine"
	ViewAll    View = "all"
	ViewClient View = "client"
)

// AgendaViews lists the views offered to u, default first.
func AgendaViews(u User) []View {
	if !u.Authenticated() {
		return nil
	}
	switch u.Role {
	case Provider:
		return []View{ViewToday, ViewMine, ViewAll}
	case Admin:
		return []View{ViewAll, ViewToday, ViewMine}
	default:
		return []View{ViewClient}
	}
}

type ctxKey struct{}

// WithUser attaches the current user to ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the current user, or a guest.
func UserFromContext(ctx context.Context) User {
	u, _ := ctx.Value(ctxKey{}).(User)
	return u
}
