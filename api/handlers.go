package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"barbershop/access"
	"barbershop/availability"
	"barbershop/booking"
	"barbershop/catalog"
	"barbershop/notify"
	"barbershop/reservation"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Authenticator interface {
	CurrentUser(r *http.Request) (access.User, error)
	ValidateSession(ctx context.Context, u access.User) error
}

type RoleDirectory interface {
	SetRole(ctx context.Context, accountID string, role access.Role, now time.Time) error
	Revoke(ctx context.Context, accountID string, now time.Time) error
	Restore(ctx context.Context, accountID string, now time.Time) error
}

type PhotoUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Deps configures an API. Logger, Location and Now have defaults; Mailer
// and Photos may be nil.
type Deps struct {
	Auth   Authenticator
	Roles  RoleDirectory
	Photos PhotoUploader
	Mailer notify.EmailSender
	Logger *zap.Logger

	Location       *time.Location
	Now            func() time.Time
	SlotGrid       []string
	PublicBaseURL  string
	AllowedOrigins []string
}

type API struct {
	router *mux.Router
	db     *sql.DB

	auth    Authenticator
	roles   RoleDirectory
	photos  PhotoUploader
	logger  *zap.Logger
	loc     *time.Location
	now     func() time.Time
	grid    []string
	origins []string

	bookings *booking.Registry
}

func NewAPI(db *sql.DB, deps Deps) *API {
	r := mux.NewRouter()
	r = r.PathPrefix("/api").Subrouter()

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(deps.SlotGrid) == 0 {
		deps.SlotGrid = availability.DefaultGrid
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	a := &API{
		router:  r,
		db:      db,
		auth:    deps.Auth,
		roles:   deps.Roles,
		photos:  deps.Photos,
		logger:  deps.Logger,
		loc:     deps.Location,
		now:     deps.Now,
		grid:    slices.Clone(deps.SlotGrid),
		origins: deps.AllowedOrigins,
	}

	a.bookings = booking.NewRegistry(booking.Deps{
		Catalog:  a.catalog(),
		Slots:    a.engine(),
		Store:    a.reservations(),
		Sessions: deps.Auth,
		Mailer:   deps.Mailer,
		Logger:   deps.Logger,
		Now:      deps.Now,
		Location: deps.Location,
		CancelURL: func(res reservation.Reservation) string {
			return cancelURL(deps.PublicBaseURL, res.ID, res.CancelToken)
		},
	})
	return a
}

func (a *API) catalog() *catalog.Accessor {
	return catalog.NewAccessor(a.db)
}

func (a *API) reservations() *reservation.Accessor {
	return reservation.NewAccessor(a.db, a.catalog())
}

func (a *API) engine() *availability.Engine {
	return availability.NewEngine(a.reservations(), a.grid)
}

// today is the facility's current instant.
func (a *API) today() time.Time {
	return a.now().In(a.loc)
}

func (a *API) Router() *mux.Router {
	return a.router
}

func (a *API) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(a.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return handlers.LoggingHandler(os.Stdout, cors(a.router))
}

type Response struct {
	Status   int `json:"status"`
	Response any `json:"response"`
}

func (a *API) Response(w http.ResponseWriter, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(Response{
		Status:   status,
		Response: data,
	})
	if err != nil {
		a.logger.Error("encode response", zap.Error(err))
	}
}

func (a *API) RegisterRoutes() {
	a.router.Use(a.authenticate)

	a.router.HandleFunc("/health", a.health).Methods(http.MethodGet)
	a.router.HandleFunc("/me", a.getMe).Methods(http.MethodGet)
	a.router.HandleFunc("/me/reservations", a.getMyReservations).Methods(http.MethodGet)

	a.router.HandleFunc("/services", a.getServices).Methods(http.MethodGet)
	a.router.HandleFunc("/services", a.createService).Methods(http.MethodPost)

	a.router.HandleFunc("/providers", a.getProviders).Methods(http.MethodGet)
	a.router.HandleFunc("/providers", a.createProvider).Methods(http.MethodPost)
	a.router.HandleFunc("/providers/{id}", a.updateProvider).Methods(http.MethodPut)
	a.router.HandleFunc("/providers/{id}", a.deleteProvider).Methods(http.MethodDelete)
	a.router.HandleFunc("/providers/{id}/photo", a.uploadProviderPhoto).Methods(http.MethodPut)
	a.router.HandleFunc("/providers/{id}/slots", a.getProviderSlots).Methods(http.MethodGet)

	a.router.HandleFunc("/reservations", a.createReservation).Methods(http.MethodPost)
	a.router.HandleFunc("/reservations/{id}", a.deleteReservation).Methods(http.MethodDelete)
	a.router.HandleFunc("/reservations/{id}/cancel", a.cancelReservation).Methods(http.MethodPost)

	a.router.HandleFunc("/agenda/today", a.getAgendaToday).Methods(http.MethodGet)
	a.router.HandleFunc("/agenda/mine", a.getAgendaMine).Methods(http.MethodGet)
	a.router.HandleFunc("/agenda/all", a.getAgendaAll).Methods(http.MethodGet)
	a.router.HandleFunc("/revenue", a.getRevenue).Methods(http.MethodGet)

	a.router.HandleFunc("/accounts/{id}/role", a.setAccountRole).Methods(http.MethodPut)
	a.router.HandleFunc("/accounts/{id}/sessions", a.revokeAccount).Methods(http.MethodDelete)
	a.router.HandleFunc("/accounts/{id}/sessions", a.restoreAccount).Methods(http.MethodPost)

	a.router.HandleFunc("/bookings", a.startBooking).Methods(http.MethodPost)
	a.router.HandleFunc("/bookings/{id}", a.getBooking).Methods(http.MethodGet)
	a.router.HandleFunc("/bookings/{id}", a.abandonBooking).Methods(http.MethodDelete)
	a.router.HandleFunc("/bookings/{id}/service", a.selectBookingService).Methods(http.MethodPut)
	a.router.HandleFunc("/bookings/{id}/provider", a.selectBookingProvider).Methods(http.MethodPut)
	a.router.HandleFunc("/bookings/{id}/slots", a.getBookingSlots).Methods(http.MethodGet)
	a.router.HandleFunc("/bookings/{id}/datetime", a.selectBookingDateTime).Methods(http.MethodPut)
	a.router.HandleFunc("/bookings/{id}/contact", a.setBookingContact).Methods(http.MethodPut)
	a.router.HandleFunc("/bookings/{id}/next", a.nextBookingStep).Methods(http.MethodPost)
	a.router.HandleFunc("/bookings/{id}/back", a.previousBookingStep).Methods(http.MethodPost)
	a.router.HandleFunc("/bookings/{id}/confirm", a.confirmBooking).Methods(http.MethodPost)
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}
