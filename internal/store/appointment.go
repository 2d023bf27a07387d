package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"appointment-booking-api/internal/model"
)

const appointmentCols = `id, date, start_time, end_time, is_available, reserved_by,
	version, created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a          model.Appointment
		date       pgtype.Date
		start, end pgtype.Time
	)
	if err := row.Scan(&a.ID, &date, &start, &end, &a.IsAvailable, &a.ReservedBy,
		&a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Date = model.DateOf(date.Time)
	a.StartTime = model.TimeOfDayFromMicros(start.Microseconds)
	a.EndTime = model.TimeOfDayFromMicros(end.Microseconds)
	return &a, nil
}

func pgDate(d model.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func pgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Micros(), Valid: true}
}

func (s *Store) queryAppointments(ctx context.Context, op, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}
		out = append(out, *a)
	}
	return out, mapErr(op, rows.Err())
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("find appointment", err)
	}
	return a, nil
}

func (s *Store) FindAvailable(ctx context.Context) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, "find available",
		`SELECT `+appointmentCols+` FROM appointments
		 WHERE is_available
		 ORDER BY date, start_time, id`)
}

func (s *Store) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, "list appointments",
		`SELECT `+appointmentCols+` FROM appointments
		 ORDER BY date, start_time, id`)
}

func (s *Store) ListByOwner(ctx context.Context, userID string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, "list by owner",
		`SELECT `+appointmentCols+` FROM appointments
		 WHERE reserved_by = $1
		 ORDER BY date, start_time, id`, userID)
}

// Save writes the reservation state only if the row still carries a.Version.
// The compare and the write are one statement, so two callers holding the
// same version cannot both succeed.
func (s *Store) Save(ctx context.Context, a *model.Appointment) (*model.Appointment, error) {
	saved, err := scanAppointment(s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET is_available = $3, reserved_by = $4, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING `+appointmentCols,
		a.ID, a.Version, a.IsAvailable, a.ReservedBy,
	))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapErr("save appointment", err)
	}

	// no row matched: either gone or someone else won
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1)`, a.ID,
	).Scan(&exists); err != nil {
		return nil, mapErr("save appointment", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStale
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, date, start_time, end_time, is_available, reserved_by)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING version, created_at, updated_at`,
		a.ID, pgDate(a.Date), pgTime(a.StartTime), pgTime(a.EndTime), a.IsAvailable, a.ReservedBy,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)
	return mapErr("create appointment", err)
}
