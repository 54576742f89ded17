package booking

import (
	"fmt"
	"sync"

	"barbershop/access"
	"barbershop/apperr"

	"github.com/google/uuid"
)

// Registry holds the workflows in progress on this process. A workflow
// started by a signed-in client is only visible to that client.
type Registry struct {
	mu        sync.Mutex
	deps      Deps
	workflows map[uuid.UUID]*Workflow
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, workflows: make(map[uuid.UUID]*Workflow)}
}

func (r *Registry) Start(u access.User) (uuid.UUID, *Workflow) {
	id := uuid.New()
	w := New(r.deps, u)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[id] = w
	return id, w
}

// Detached returns a workflow for u that is not tracked by the registry.
func (r *Registry) Detached(u access.User) *Workflow {
	return New(r.deps, u)
}

func (r *Registry) Get(id uuid.UUID, u access.User) (*Workflow, error) {
	r.mu.Lock()
	w, ok := r.workflows[id]
	r.mu.Unlock()

	if !ok || (w.user.Authenticated() && w.user.AccountID != u.AccountID) {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	return w, nil
}

// Remove discards a workflow. Removing an unknown id is a no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workflows, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}
