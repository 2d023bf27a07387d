package provision

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/store"
)

var june1 = model.NewDate(2024, time.June, 1) // a Saturday

func TestSlotsSplitsWindow(t *testing.T) {
	tests := []struct {
		name   string
		start  model.TimeOfDay
		end    model.TimeOfDay
		length time.Duration
		want   []string
	}{
		{"exact", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0), time.Hour, []string{"09:00", "10:00", "11:00"}},
		{"trailing partial", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 30), time.Hour, []string{"09:00", "10:00", "11:00"}},
		{"half hours", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(10, 0), 30 * time.Minute, []string{"09:00", "09:30"}},
		{"too short", model.NewTimeOfDay(9, 0), model.NewTimeOfDay(9, 45), time.Hour, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slots(Window{From: june1, To: june1, Start: tt.start, End: tt.end, Length: tt.length})
			if err != nil {
				t.Fatalf("slots: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d slots, want %d", len(got), len(tt.want))
			}
			for i, a := range got {
				if a.StartTime.String() != tt.want[i] {
					t.Errorf("slot %d starts %s, want %s", i, a.StartTime, tt.want[i])
				}
				if a.EndTime-a.StartTime != model.TimeOfDay(tt.length/time.Minute) {
					t.Errorf("slot %d length %d", i, a.EndTime-a.StartTime)
				}
				if !a.Valid() || !a.IsAvailable {
					t.Errorf("slot %d invalid: %+v", i, a)
				}
			}
		})
	}
}

func TestSlotsDateRange(t *testing.T) {
	w := Window{
		From: june1, To: june1.AddDays(6),
		Start: model.NewTimeOfDay(9, 0), End: model.NewTimeOfDay(11, 0), Length: time.Hour,
	}
	all, _ := Slots(w)
	if len(all) != 14 {
		t.Errorf("all days: got %d", len(all))
	}
	w.SkipWeekends = true
	weekdays, _ := Slots(w)
	if len(weekdays) != 10 {
		t.Errorf("weekdays: got %d", len(weekdays))
	}
}

func TestValidate(t *testing.T) {
	base := Window{From: june1, To: june1, Start: model.NewTimeOfDay(9, 0), End: model.NewTimeOfDay(12, 0), Length: time.Hour}
	tests := []struct {
		name string
		mod  func(*Window)
	}{
		{"reversed dates", func(w *Window) { w.To = june1.AddDays(-1) }},
		{"empty window", func(w *Window) { w.End = w.Start }},
		{"zero length", func(w *Window) { w.Length = 0 }},
		{"sub-minute length", func(w *Window) { w.Length = 90 * time.Second }},
		{"missing dates", func(w *Window) { w.From = model.Date{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := base
			tt.mod(&w)
			if _, err := Slots(w); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunSkipsExisting(t *testing.T) {
	st := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := Window{From: june1, To: june1.AddDays(1), Start: model.NewTimeOfDay(9, 0), End: model.NewTimeOfDay(12, 0), Length: time.Hour}

	rep, err := Run(context.Background(), st, w, log)
	if err != nil || rep.Created != 6 || rep.Skipped != 0 {
		t.Fatalf("first run: %+v %v", rep, err)
	}
	rep, err = Run(context.Background(), st, w, log)
	if err != nil || rep.Created != 0 || rep.Skipped != 6 {
		t.Fatalf("second run: %+v %v", rep, err)
	}
	avail, _ := st.FindAvailable(context.Background())
	if len(avail) != 6 {
		t.Errorf("stored: %d", len(avail))
	}
}
