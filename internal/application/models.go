package application

import "time"

// Status tracks a booking's lifecycle from tentative to completion.
type Status string

const (
	// StatusTentative is the default state of a newly created booking.
	StatusTentative Status = "tentative"
	// StatusConfirmed marks a booking the customer has committed to.
	StatusConfirmed Status = "confirmed"
	// StatusPlanning marks a booking still being scoped with the customer.
	StatusPlanning Status = "planning"
	// StatusCompleted marks a booking whose session has taken place.
	StatusCompleted Status = "completed"
	// StatusCancelled marks a soft-deleted booking.
	StatusCancelled Status = "cancelled"
)

func validStatus(status Status) bool {
	switch status {
	case StatusTentative, StatusConfirmed, StatusPlanning, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Room represents a studio catalog entry exposed by the application services.
// A room with IgnoreConflict set never reports booking conflicts.
type Room struct {
	ID             string
	Name           string
	Location       string
	Capacity       int
	IgnoreConflict bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name           string
	Location       string
	Capacity       int
	IgnoreConflict bool
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Input RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	RoomID string
	Input  RoomInput
}

// Reservation represents a persisted booking.
//
// Date is an opaque "2006-01-02" day key; FromTime and ToTime are zero-padded
// "HH:MM" wall-clock strings compared lexically by the conflict detector.
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
	Status        Status
	Remarks       string
	IsCancelled   bool
	CancelReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DurationMinutes returns the booked minutes net of break time. A window whose
// end appears before its start is treated as a same-day duration by adding 24
// hours; the conflict detector applies no such adjustment.
func (r Reservation) DurationMinutes() int {
	from, okFrom := minutesOfDay(r.FromTime)
	to, okTo := minutesOfDay(r.ToTime)
	if !okFrom || !okTo {
		return 0
	}
	elapsed := to - from
	if elapsed < 0 {
		elapsed += 24 * 60
	}
	elapsed -= r.BreakMinutes
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// ReservationInput captures caller provided booking fields.
type ReservationInput struct {
	RoomID        string
	Date          string
	FromTime      string
	ToTime        string
	BreakMinutes  int
	CustomerID    *string
	ProjectID     *string
	EditorID      *string
	ContactPerson string
	Status        Status
	Remarks       string
}

// CreateReservationParams wraps the data required to create a booking. Force
// persists the booking even when it collides with an existing reservation;
// the override is caller supplied, never inferred.
type CreateReservationParams struct {
	Input ReservationInput
	Force bool
}

// UpdateReservationParams wraps the data required to edit an existing booking.
type UpdateReservationParams struct {
	ReservationID string
	Input         ReservationInput
	Force         bool
}

// CancelReservationParams wraps the data required to cancel a booking.
// Cancellation is a soft delete; the row is retained with its reason.
type CancelReservationParams struct {
	ReservationID string
	Reason        string
}

// CheckConflictParams wraps the arguments of a standalone conflict probe.
type CheckConflictParams struct {
	RoomID               string
	Date                 string
	FromTime             string
	ToTime               string
	ExcludeReservationID string
}

// ListReservationsParams wraps the data required to list bookings.
type ListReservationsParams struct {
	RoomID           *string
	DateFrom         *string
	DateTo           *string
	IncludeCancelled bool
}

// ConflictWarning describes an overlap between two listed bookings that
// should be surfaced to callers.
type ConflictWarning struct {
	ReservationID     string
	WithReservationID string
	RoomID            string
	Date              string
}

// RepeatBookingsParams wraps the data required to expand a template booking
// over a date range.
type RepeatBookingsParams struct {
	TemplateID string
	FromDate   string
	ToDate     string
	Pattern    string
}

// OccurrenceOutcome tags the per-date result of a recurrence expansion.
type OccurrenceOutcome string

const (
	// OccurrenceCreated marks a date whose booking was persisted.
	OccurrenceCreated OccurrenceOutcome = "created"
	// OccurrenceSkipped marks a date whose candidate collided with an
	// existing reservation and was not persisted.
	OccurrenceSkipped OccurrenceOutcome = "skipped"
)

// OccurrenceResult reports the outcome for one expansion date. Reservation is
// set only for created occurrences.
type OccurrenceResult struct {
	Date        string
	Outcome     OccurrenceOutcome
	Reservation *Reservation
}

// RecurrenceOutcome reports the itemised result of a repeat booking request.
// Items are ordered by ascending date and cover every selected occurrence.
type RecurrenceOutcome struct {
	CreatedCount int
	Items        []OccurrenceResult
}

func minutesOfDay(value string) (int, bool) {
	if len(value) < 5 || value[2] != ':' {
		return 0, false
	}
	hour, okHour := twoDigits(value[0:2])
	minute, okMinute := twoDigits(value[3:5])
	if !okHour || !okMinute || hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func twoDigits(value string) (int, bool) {
	if len(value) != 2 || value[0] < '0' || value[0] > '9' || value[1] < '0' || value[1] > '9' {
		return 0, false
	}
	return int(value[0]-'0')*10 + int(value[1]-'0'), true
}
