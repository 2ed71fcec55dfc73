package persistence

import "time"

// Room represents a studio catalog entry. Rooms are master data owned by
// administration; the scheduling core only reads them.
type Room struct {
	ID             string
	Name           string
	Location       string
	Capacity       int
	IgnoreConflict bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reservation represents a booking row stored in persistence.
//
// Date is an opaque "2006-01-02" day key and FromTime/ToTime are zero-padded
// "HH:MM" wall-clock strings; neither carries timezone information.
type Reservation struct {
	ID            string
	RoomID        string
	Date          string
	FromTime      string
	ToTime        string
	BreakMinutes  int
	CustomerID    *string
	ProjectID     *string
	EditorID      *string
	ContactPerson string
	Status        string
	Remarks       string
	IsCancelled   bool
	CancelReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
