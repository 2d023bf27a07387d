package reservation

import (
	"context"
	"time"

	"appointment-booking-api/internal/model"
)

const (
	EventReserved  = "appointment.reserved"
	EventCancelled = "appointment.cancelled"
)

// Event describes a committed transition.
type Event struct {
	Type          string          `json:"type"`
	AppointmentID string          `json:"appointmentId"`
	UserID        string          `json:"userId"`
	Date          model.Date      `json:"date"`
	StartTime     model.TimeOfDay `json:"startTime"`
	EndTime       model.TimeOfDay `json:"endTime"`
	Version       int64           `json:"version"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
