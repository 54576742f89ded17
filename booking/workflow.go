// Package booking drives one client through choosing a service, a barber and
// a slot, and commits the result as a single reservation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"barbershop/access"
	"barbershop/apperr"
	"barbershop/catalog"
	"barbershop/notify"
	"barbershop/reservation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSubmissionInFlight = errors.New("a confirmation for this booking is already in progress")
	ErrInvalidTransition  = errors.New("action not available at this step")
)

const emailTimeout = 30 * time.Second

type Catalog interface {
	GetService(ctx context.Context, id uuid.UUID) (catalog.Service, error)
	GetProvider(ctx context.Context, id uuid.UUID) (catalog.Provider, error)
}

type SlotFinder interface {
	AvailableSlots(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)
}

type Store interface {
	CreateReservation(ctx context.Context, candidate reservation.Reservation, now time.Time) (*reservation.Reservation, error)
}

type SessionValidator interface {
	ValidateSession(ctx context.Context, u access.User) error
}

// Deps are the collaborators a workflow calls. Mailer and CancelURL may be nil.
type Deps struct {
	Catalog  Catalog
	Slots    SlotFinder
	Store    Store
	Sessions SessionValidator
	Mailer   notify.EmailSender
	Logger   *zap.Logger

	Now      func() time.Time
	Location *time.Location

	// CancelURL builds the guest cancellation link for a new reservation.
	CancelURL func(r reservation.Reservation) string
}

type Workflow struct {
	deps Deps
	user access.User

	mu         sync.Mutex
	state      State
	submitting bool
	service    *catalog.Service
	provider   *catalog.Provider
	date       string
	slot       string
	slots      []string
	slotsDate  string
	contact    contact
	committed  *reservation.Reservation
}

type contact struct {
	name  string
	email string
}

// Snapshot is a read-only copy of a workflow's progress.
type Snapshot struct {
	State        State                    `json:"state"`
	Service      *catalog.Service         `json:"service,omitempty"`
	Provider     *catalog.Provider        `json:"provider,omitempty"`
	Date         string                   `json:"date,omitempty"`
	Time         string                   `json:"time,omitempty"`
	Slots        []string                 `json:"slots,omitempty"`
	ContactName  string                   `json:"contact_name,omitempty"`
	ContactEmail string                   `json:"contact_email,omitempty"`
	Submitting   bool                     `json:"submitting"`
	Reservation  *reservation.Reservation `json:"reservation,omitempty"`
}

// New starts a workflow for u at ChooseService.
func New(deps Deps, u access.User) *Workflow {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &Workflow{deps: deps, user: u, state: ChooseService}
}

func (w *Workflow) User() access.User { return w.user }

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		State:        w.state,
		Date:         w.date,
		Time:         w.slot,
		ContactName:  w.contact.name,
		ContactEmail: w.contact.email,
		Submitting:   w.submitting,
	}
	if w.service != nil {
		svc := *w.service
		s.Service = &svc
	}
	if w.provider != nil {
		p := *w.provider
		s.Provider = &p
	}
	if w.slotsDate != "" {
		s.Slots = slices.Clone(w.slots)
	}
	if w.committed != nil {
		r := *w.committed
		s.Reservation = &r
	}
	return s
}

// lockAt locks w and checks that it sits at want with no confirmation running.
// On error w is unlocked.
func (w *Workflow) lockAt(want State) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if w.state != want {
		got := w.state
		w.mu.Unlock()
		return fmt.Errorf("%w: at %s, need %s", ErrInvalidTransition, got, want)
	}
	return nil
}

func (w *Workflow) SelectService(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.Validation("service is required")
	}
	if err := w.lockAt(ChooseService); err != nil {
		return err
	}
	w.mu.Unlock()

	svc, err := w.deps.Catalog.GetService(ctx, id)
	if err != nil {
		return fmt.Errorf("get service: %w", err)
	}

	if err := w.lockAt(ChooseService); err != nil {
		return err
	}
	defer w.mu.Unlock()
	w.service = &svc
	w.state = ChooseProvider
	return nil
}

func (w *Workflow) SelectProvider(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.Validation("barber is required")
	}
	if err := w.lockAt(ChooseProvider); err != nil {
		return err
	}
	w.mu.Unlock()

	p, err := w.deps.Catalog.GetProvider(ctx, id)
	if err != nil {
		return fmt.Errorf("get provider: %w", err)
	}

	if err := w.lockAt(ChooseProvider); err != nil {
		return err
	}
	defer w.mu.Unlock()
	if w.provider == nil || w.provider.ID != p.ID {
		w.date, w.slot = "", ""
		w.slots, w.slotsDate = nil, ""
	}
	w.provider = &p
	w.state = ChooseDateTime
	return nil
}

// Slots refreshes and returns the free slots of the chosen barber on date.
func (w *Workflow) Slots(ctx context.Context, date string) ([]string, error) {
	if err := w.lockAt(ChooseDateTime); err != nil {
		return nil, err
	}
	providerID := w.provider.ID
	w.mu.Unlock()

	if err := w.checkDate(date, ""); err != nil {
		return nil, err
	}
	slots, err := w.deps.Slots.AvailableSlots(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("available slots: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.slots, w.slotsDate = slots, date
	return slices.Clone(slots), nil
}

// SelectDateTime accepts slot only if it is still free. A taken slot leaves
// the workflow at ChooseDateTime with the refreshed slot list.
func (w *Workflow) SelectDateTime(ctx context.Context, date, slot string) error {
	if err := w.lockAt(ChooseDateTime); err != nil {
		return err
	}
	w.mu.Unlock()
	return w.chooseDateTime(ctx, date, slot)
}

func (w *Workflow) chooseDateTime(ctx context.Context, date, slot string) error {
	if err := w.checkDate(date, slot); err != nil {
		return err
	}

	slots, err := w.Slots(ctx, date)
	if err != nil {
		return err
	}
	if !slices.Contains(slots, slot) {
		return fmt.Errorf("%s %s: %w", date, slot, apperr.ErrSlotConflict)
	}

	if err := w.lockAt(ChooseDateTime); err != nil {
		return err
	}
	defer w.mu.Unlock()
	w.date, w.slot = date, slot
	if w.user.Authenticated() {
		w.state = Confirm
	} else {
		w.state = GuestContactInfo
	}
	return nil
}

// checkDate refuses malformed dates and days before today in the facility
// timezone. With a slot, it also refuses a slot that has already started today.
func (w *Workflow) checkDate(date, slot string) error {
	if _, err := time.Parse(reservation.DateLayout, date); err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	now := w.deps.Now().In(w.deps.Location)
	today := now.Format(reservation.DateLayout)
	if date < today {
		return apperr.Validation("date must not be in the past")
	}
	if slot == "" {
		return nil
	}
	if !reservation.ValidTime(slot) {
		return apperr.Validation("time must be HH:MM")
	}
	if date == today && slot <= now.Format(reservation.TimeLayout) {
		return apperr.Validation("time has already passed")
	}
	return nil
}

func (w *Workflow) SetContact(name, email string) error {
	c := contact{name: strings.TrimSpace(name), email: strings.TrimSpace(email)}
	if err := c.validate(); err != nil {
		return err
	}
	if err := w.lockAt(GuestContactInfo); err != nil {
		return err
	}
	defer w.mu.Unlock()
	w.contact = c
	w.state = Confirm
	return nil
}

func (c contact) validate() error {
	var fields []string
	if c.name == "" {
		fields = append(fields, "contact name is required")
	}
	if c.email == "" {
		fields = append(fields, "contact email is required")
	} else if !strings.Contains(c.email, "@") {
		fields = append(fields, "contact email is invalid")
	}
	return apperr.Validation(fields...)
}

// Next re-runs the forward guard of the current step using the choices the
// workflow already holds.
func (w *Workflow) Next(ctx context.Context) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	state := w.state
	var (
		serviceID, providerID uuid.UUID
		date, slot            = w.date, w.slot
		c                     = w.contact
	)
	if w.service != nil {
		serviceID = w.service.ID
	}
	if w.provider != nil {
		providerID = w.provider.ID
	}
	w.mu.Unlock()

	switch state {
	case ChooseService:
		return w.SelectService(ctx, serviceID)
	case ChooseProvider:
		return w.SelectProvider(ctx, providerID)
	case ChooseDateTime:
		if date == "" || slot == "" {
			return apperr.Validation("date and time are required")
		}
		return w.SelectDateTime(ctx, date, slot)
	case GuestContactInfo:
		return w.SetContact(c.name, c.email)
	default:
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, state)
	}
}

// Back moves one step backwards. Choices are kept.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmissionInFlight
	}

	switch w.state {
	case ChooseProvider:
		w.state = ChooseService
	case ChooseDateTime:
		w.state = ChooseProvider
	case GuestContactInfo:
		w.state = ChooseDateTime
	case Confirm:
		if w.user.Authenticated() {
			w.state = ChooseDateTime
		} else {
			w.state = GuestContactInfo
		}
	default:
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, w.state)
	}
	return nil
}

// Confirm stores the reservation. It makes exactly one store call per
// invocation and refuses to start while another one is running.
func (w *Workflow) Confirm(ctx context.Context) (*reservation.Reservation, error) {
	if err := w.lockAt(Confirm); err != nil {
		return nil, err
	}
	w.submitting = true
	candidate := w.candidate()
	providerName := w.provider.DisplayName
	w.mu.Unlock()

	created, err := w.commit(ctx, candidate)

	var refreshed []string
	var refreshErr error
	if errors.Is(err, apperr.ErrSlotConflict) {
		refreshed, refreshErr = w.deps.Slots.AvailableSlots(ctx, candidate.ProviderID, candidate.Date)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	switch {
	case errors.Is(err, apperr.ErrSlotConflict):
		w.state = ChooseDateTime
		w.slot = ""
		if refreshErr == nil {
			w.slots, w.slotsDate = refreshed, candidate.Date
		} else {
			w.slots, w.slotsDate = nil, ""
			w.deps.Logger.Warn("refresh slots after conflict",
				zap.String("provider_id", candidate.ProviderID.String()), zap.Error(refreshErr))
		}
		return nil, err
	case err != nil:
		return nil, err
	}

	w.state = Committed
	w.committed = created

	w.deps.Logger.Info("reservation committed",
		zap.String("reservation_id", created.ID.String()),
		zap.String("provider_id", created.ProviderID.String()),
		zap.String("date", created.Date),
		zap.String("time", created.Time))

	if w.deps.Mailer != nil {
		go w.sendConfirmation(context.WithoutCancel(ctx), *created, providerName)
	}
	return created, nil
}

func (w *Workflow) commit(ctx context.Context, candidate reservation.Reservation) (*reservation.Reservation, error) {
	if w.user.Authenticated() && w.deps.Sessions != nil {
		if err := w.deps.Sessions.ValidateSession(ctx, w.user); err != nil {
			return nil, fmt.Errorf("validate session: %w", err)
		}
	}
	created, err := w.deps.Store.CreateReservation(ctx, candidate, w.deps.Now())
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	return created, nil
}

// candidate must be called with w.mu held.
func (w *Workflow) candidate() reservation.Reservation {
	r := reservation.Reservation{
		ProviderID:  w.provider.ID,
		ServiceName: w.service.Name,
		Price:       w.service.Price,
		Date:        w.date,
		Time:        w.slot,
	}
	if w.user.Authenticated() {
		account := w.user.AccountID
		r.ClientAccountID = &account
	} else {
		name, email := w.contact.name, w.contact.email
		r.ContactName, r.ContactEmail = &name, &email
	}
	return r
}

func (w *Workflow) sendConfirmation(ctx context.Context, r reservation.Reservation, providerName string) {
	ctx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()

	to := r.RecipientEmail(w.user.Email)
	if to == "" {
		return
	}
	name := w.user.DisplayName
	var cancelURL string
	if r.IsGuest() {
		name = *r.ContactName
		if r.CancelToken != "" && w.deps.CancelURL != nil {
			cancelURL = w.deps.CancelURL(r)
		}
	}

	msg := notify.ConfirmationEmail(to, name, r, providerName, cancelURL)
	if err := w.deps.Mailer.Send(ctx, msg); err != nil {
		w.deps.Logger.Warn("send confirmation email",
			zap.String("reservation_id", r.ID.String()), zap.Error(err))
	}
}
