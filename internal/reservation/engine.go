// Package reservation holds the appointment state machine. An appointment is
// either Available or Reserved by exactly one user; Reserve and Cancel are
// the only transitions between the two.
package reservation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/store"
)

// Store is the persistence contract the engine needs. Save must be a
// compare-and-swap on Appointment.Version and report store.ErrStale when
// the row moved on.
type Store interface {
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindAvailable(ctx context.Context) ([]model.Appointment, error)
	ListByOwner(ctx context.Context, userID string) ([]model.Appointment, error)
	Save(ctx context.Context, a *model.Appointment) (*model.Appointment, error)
}

type OwnerResolver interface {
	ResolveOwner(ctx context.Context, userID string) (*model.Owner, error)
}

// Result is an appointment plus its owner's display info, nil when available.
type Result struct {
	Appointment model.Appointment
	Owner       *model.Owner
}

type Engine struct {
	store  Store
	owners OwnerResolver
	events Publisher
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(st Store, owners OwnerResolver, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		owners: owners,
		events: nopPublisher{},
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// transition is one edge of the state machine. check runs against the
// persisted state before apply mutates it.
type transition struct {
	event string
	check func(a *model.Appointment, callerID string) error
	apply func(a *model.Appointment, callerID string)
}

var (
	reserveEdge = transition{
		event: EventReserved,
		check: func(a *model.Appointment, _ string) error {
			if !a.IsAvailable {
				return ErrConflict
			}
			return nil
		},
		apply: func(a *model.Appointment, callerID string) { a.Reserve(callerID) },
	}

	cancelEdge = transition{
		event: EventCancelled,
		check: func(a *model.Appointment, callerID string) error {
			if a.IsAvailable {
				return ErrInvalidState
			}
			if !a.OwnedBy(callerID) {
				return ErrForbidden
			}
			return nil
		},
		apply: func(a *model.Appointment, _ string) { a.Release() },
	}
)

func byDateThenStart(a, b model.Appointment) int {
	switch {
	case a.Before(&b):
		return -1
	case b.Before(&a):
		return 1
	}
	return 0
}

// ListAvailable returns every unreserved appointment ordered by date, then
// start time.
func (e *Engine) ListAvailable(ctx context.Context) ([]model.Appointment, error) {
	rows, err := e.store.FindAvailable(ctx)
	if err != nil {
		return nil, storeFailure("list available", err)
	}
	out := slices.DeleteFunc(rows, func(a model.Appointment) bool {
		return !a.IsAvailable || a.ReservedBy != nil
	})
	slices.SortFunc(out, byDateThenStart)
	if out == nil {
		out = []model.Appointment{}
	}
	return out, nil
}

// ListMine returns the appointments callerID currently holds.
func (e *Engine) ListMine(ctx context.Context, callerID string) ([]Result, error) {
	rows, err := e.store.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, storeFailure("list mine", err)
	}
	rows = slices.DeleteFunc(rows, func(a model.Appointment) bool { return !a.OwnedBy(callerID) })
	return e.describeAll(ctx, rows), nil
}

// Reserve moves an Available appointment to Reserved(callerID). It is not
// idempotent: reserving a slot the caller already holds is a conflict.
func (e *Engine) Reserve(ctx context.Context, appointmentID, callerID string) (*Result, error) {
	return e.run(ctx, reserveEdge, appointmentID, callerID)
}

// Cancel moves Reserved(callerID) back to Available.
func (e *Engine) Cancel(ctx context.Context, appointmentID, callerID string) (*Result, error) {
	return e.run(ctx, cancelEdge, appointmentID, callerID)
}

func (e *Engine) run(ctx context.Context, t transition, appointmentID, callerID string) (*Result, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	a, err := e.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := t.check(a, callerID); err != nil {
		return nil, err
	}
	t.apply(a, callerID)

	saved, err := e.store.Save(ctx, a)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStale):
		// lost a race; report what the winner left behind
		cur, lerr := e.load(ctx, appointmentID)
		if lerr != nil {
			return nil, lerr
		}
		if cerr := t.check(cur, callerID); cerr != nil {
			return nil, cerr
		}
		return nil, ErrConflict
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, storeFailure(t.event, err)
	}

	e.log.InfoContext(ctx, t.event,
		"appointment_id", saved.ID,
		"caller_id", callerID,
		"version", saved.Version,
	)
	e.publish(ctx, t.event, saved, callerID)
	res := e.describe(ctx, *saved)
	return &res, nil
}

func (e *Engine) load(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := e.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeFailure("load appointment", err)
	}
	return a, nil
}

func (e *Engine) publish(ctx context.Context, kind string, a *model.Appointment, callerID string) {
	ev := Event{
		Type:          kind,
		AppointmentID: a.ID,
		UserID:        callerID,
		Date:          a.Date,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Version:       a.Version,
		OccurredAt:    e.now().UTC(),
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.WarnContext(ctx, "event publish failed",
			"event", kind, "appointment_id", a.ID, "err", err)
	}
}

// describe attaches owner info. The transition is already committed, so a
// lookup failure degrades to an id-only owner instead of failing the call.
func (e *Engine) describe(ctx context.Context, a model.Appointment) Result {
	res := Result{Appointment: a}
	if a.ReservedBy == nil {
		return res
	}
	owner, err := e.owners.ResolveOwner(ctx, *a.ReservedBy)
	if err != nil {
		e.log.WarnContext(ctx, "owner lookup failed",
			"appointment_id", a.ID, "owner_id", *a.ReservedBy, "err", err)
		owner = &model.Owner{ID: *a.ReservedBy}
	}
	res.Owner = owner
	return res
}

func (e *Engine) describeAll(ctx context.Context, rows []model.Appointment) []Result {
	slices.SortFunc(rows, byDateThenStart)
	out := make([]Result, 0, len(rows))
	for _, a := range rows {
		out = append(out, e.describe(ctx, a))
	}
	return out
}
