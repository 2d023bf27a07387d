// Package provision fills the appointment table with bookable slots.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/store"
)

// Window describes slots of Length between Start and End on every day from
// From to To inclusive.
type Window struct {
	From, To     model.Date
	Start, End   model.TimeOfDay
	Length       time.Duration
	SkipWeekends bool
}

func (w Window) Validate() error {
	switch {
	case w.From.IsZero() || w.To.IsZero():
		return errors.New("date range required")
	case w.To.Compare(w.From) < 0:
		return fmt.Errorf("end date %s before start date %s", w.To, w.From)
	case !w.Start.Valid() || !w.End.Valid() || w.End <= w.Start:
		return fmt.Errorf("daily window %s-%s is empty", w.Start, w.End)
	case w.Length < time.Minute || w.Length%time.Minute != 0:
		return fmt.Errorf("slot length %v must be a whole number of minutes", w.Length)
	}
	return nil
}

// Slots expands the window into available appointments. A trailing piece of
// the daily window shorter than Length is dropped.
func Slots(w Window) ([]model.Appointment, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	step := int(w.Length / time.Minute)
	var out []model.Appointment
	for day := w.From; day.Compare(w.To) <= 0; day = day.AddDays(1) {
		if w.SkipWeekends {
			if wd := day.Time().Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
		}
		for start := w.Start; int(start)+step <= int(w.End); start += model.TimeOfDay(step) {
			out = append(out, model.Appointment{
				ID:          uuid.New().String(),
				Date:        day,
				StartTime:   start,
				EndTime:     start + model.TimeOfDay(step),
				IsAvailable: true,
			})
		}
	}
	return out, nil
}

type Creator interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
}

type Report struct {
	Created int
	Skipped int
}

// Run creates every slot of w. Slots that already exist are counted as
// skipped, so running twice is harmless.
func Run(ctx context.Context, st Creator, w Window, log *slog.Logger) (Report, error) {
	slots, err := Slots(w)
	if err != nil {
		return Report{}, err
	}
	var rep Report
	for i := range slots {
		a := &slots[i]
		err := st.CreateAppointment(ctx, a)
		switch {
		case err == nil:
			rep.Created++
		case errors.Is(err, store.ErrDuplicate):
			rep.Skipped++
			log.DebugContext(ctx, "slot exists", "date", a.Date, "start", a.StartTime)
		default:
			return rep, fmt.Errorf("create slot %s %s: %w", a.Date, a.StartTime, err)
		}
	}
	return rep, nil
}
