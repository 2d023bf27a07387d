package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Owner is the part of a User shown next to a reservation.
type Owner struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Appointment struct {
	ID          string
	Date        Date
	StartTime   TimeOfDay
	EndTime     TimeOfDay
	IsAvailable bool
	ReservedBy  *string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Valid reports whether the availability flag agrees with the owner reference
// and the slot has a positive length.
func (a *Appointment) Valid() bool {
	if a.IsAvailable != (a.ReservedBy == nil) {
		return false
	}
	return a.StartTime < a.EndTime
}

// OwnedBy reports whether the appointment is reserved by userID.
func (a *Appointment) OwnedBy(userID string) bool {
	return a.ReservedBy != nil && *a.ReservedBy == userID
}

// Reserve moves the slot to the reserved state. Callers check preconditions.
func (a *Appointment) Reserve(userID string) {
	owner := userID
	a.IsAvailable = false
	a.ReservedBy = &owner
}

// Release clears the owner and makes the slot available again.
func (a *Appointment) Release() {
	a.IsAvailable = true
	a.ReservedBy = nil
}

// Clone returns a deep copy so stored rows never alias caller memory.
func (a Appointment) Clone() Appointment {
	if a.ReservedBy != nil {
		owner := *a.ReservedBy
		a.ReservedBy = &owner
	}
	return a
}

// Before orders appointments by date, then start time, then id.
func (a *Appointment) Before(b *Appointment) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID < b.ID
}
