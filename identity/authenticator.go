package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"barbershop/access"
	"barbershop/apperr"
)

type RoleDirectory interface {
	Lookup(ctx context.Context, accountID string) (Entry, error)
}

// Authenticator resolves the caller of a request.
type Authenticator struct {
	verifier  *Verifier
	directory RoleDirectory
}

func NewAuthenticator(verifier *Verifier, directory RoleDirectory) *Authenticator {
	return &Authenticator{verifier: verifier, directory: directory}
}

// CurrentUser returns a guest when the request carries no bearer token.
// A token that is present but unusable is an error, not a guest.
func (a *Authenticator) CurrentUser(r *http.Request) (access.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return access.User{}, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return access.User{}, ErrTokenInvalid
	}

	u, err := a.verifier.Verify(strings.TrimSpace(raw))
	if err != nil {
		return access.User{}, err
	}

	entry, err := a.directory.Lookup(r.Context(), u.AccountID)
	if err != nil {
		return access.User{}, fmt.Errorf("lookup account: %w", err)
	}
	if entry.Revoked {
		return access.User{}, fmt.Errorf("account %s revoked: %w", u.AccountID, apperr.ErrUnauthenticated)
	}
	if entry.Role != nil && u.Role != access.Admin {
		u.Role = *entry.Role
	}
	return u, nil
}

// ValidateSession checks, at the start of a sensitive operation, that a
// signed-in user's account is still active. Guests always pass.
func (a *Authenticator) ValidateSession(ctx context.Context, u access.User) error {
	if !u.Authenticated() {
		return nil
	}
	entry, err := a.directory.Lookup(ctx, u.AccountID)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if entry.Revoked {
		return fmt.Errorf("account %s revoked: %w", u.AccountID, apperr.ErrUnauthenticated)
	}
	return nil
}
