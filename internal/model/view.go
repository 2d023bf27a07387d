package model

import "time"

// View is the wire shape of an appointment. ReservedBy is null, never
// omitted, when the slot is available.
type View struct {
	ID          string    `json:"_id"`
	Date        Date      `json:"date"`
	StartTime   TimeOfDay `json:"startTime"`
	EndTime     TimeOfDay `json:"endTime"`
	IsAvailable bool      `json:"isAvailable"`
	ReservedBy  *Owner    `json:"reservedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewView(a Appointment, owner *Owner) View {
	return View{
		ID:          a.ID,
		Date:        a.Date,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		IsAvailable: a.IsAvailable,
		ReservedBy:  owner,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}
