package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/studio-booking/internal/application"
	"github.com/example/studio-booking/internal/persistence"
	"github.com/example/studio-booking/internal/scheduler"
)

var (
	roomCounter        uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic studio record that can be
// materialised for application or persistence tests.
type RoomFixture struct {
	ID             string
	Name           string
	Location       string
	Capacity       int
	IgnoreConflict bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Studio %03d", idx),
		Location:  "Main Building",
		Capacity:  int(4 + idx%4),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomLocation overrides the generated location.
func WithRoomLocation(location string) RoomOption {
	return func(f *RoomFixture) {
		f.Location = location
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomIgnoreConflict sets the conflict override flag on the fixture.
func WithRoomIgnoreConflict(ignore bool) RoomOption {
	return func(f *RoomFixture) {
		f.IgnoreConflict = ignore
	}
}

// WithRoomTimestamps sets both created and updated timestamps.
func WithRoomTimestamps(created, updated time.Time) RoomOption {
	return func(f *RoomFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:             f.ID,
		Name:           f.Name,
		Location:       f.Location,
		Capacity:       f.Capacity,
		IgnoreConflict: f.IgnoreConflict,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:             f.ID,
		Name:           f.Name,
		Location:       f.Location,
		Capacity:       f.Capacity,
		IgnoreConflict: f.IgnoreConflict,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Name:           f.Name,
		Location:       f.Location,
		Capacity:       f.Capacity,
		IgnoreConflict: f.IgnoreConflict,
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationFixture represents a deterministic booking record.
type ReservationFixture struct {
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
	Status        application.Status
	Remarks       string
	IsCancelled   bool
	CancelReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a deterministic reservation fixture with
// optional overrides. Successive fixtures land on successive dates so they do
// not conflict unless a test asks them to.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	id := fmt.Sprintf("reservation-%03d", idx)
	date := referenceTime.AddDate(0, 0, int(idx)).Format("2006-01-02")
	fixture := ReservationFixture{
		ID:            id,
		RoomID:        fmt.Sprintf("room-%03d", idx),
		Date:          date,
		FromTime:      "10:00",
		ToTime:        "12:00",
		ContactPerson: fmt.Sprintf("Contact %03d", idx),
		Status:        application.StatusTentative,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationRoom sets the room ID.
func WithReservationRoom(roomID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.RoomID = roomID
	}
}

// WithReservationDate sets the booking date.
func WithReservationDate(date string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Date = date
	}
}

// WithReservationWindow sets the from and to times.
func WithReservationWindow(from, to string) ReservationOption {
	return func(f *ReservationFixture) {
		f.FromTime = from
		f.ToTime = to
	}
}

// WithReservationBreak sets the break minutes.
func WithReservationBreak(minutes int) ReservationOption {
	return func(f *ReservationFixture) {
		f.BreakMinutes = minutes
	}
}

// WithReservationCustomer sets the optional customer ID.
func WithReservationCustomer(customerID string) ReservationOption {
	return func(f *ReservationFixture) {
		id := customerID
		f.CustomerID = &id
	}
}

// WithReservationProject sets the optional project ID.
func WithReservationProject(projectID string) ReservationOption {
	return func(f *ReservationFixture) {
		id := projectID
		f.ProjectID = &id
	}
}

// WithReservationEditor sets the optional editor ID.
func WithReservationEditor(editorID string) ReservationOption {
	return func(f *ReservationFixture) {
		id := editorID
		f.EditorID = &id
	}
}

// WithReservationStatus sets the lifecycle status.
func WithReservationStatus(status application.Status) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithReservationRemarks sets the remarks field.
func WithReservationRemarks(remarks string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Remarks = remarks
	}
}

// WithReservationCancelled marks the fixture as soft deleted with a reason.
func WithReservationCancelled(reason string) ReservationOption {
	return func(f *ReservationFixture) {
		value := reason
		f.IsCancelled = true
		f.Status = application.StatusCancelled
		f.CancelReason = &value
	}
}

// WithReservationTimestamps sets both created and updated timestamps.
func WithReservationTimestamps(created, updated time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:            f.ID,
		RoomID:        f.RoomID,
		Date:          f.Date,
		FromTime:      f.FromTime,
		ToTime:        f.ToTime,
		BreakMinutes:  f.BreakMinutes,
		CustomerID:    copyStringPtr(f.CustomerID),
		ProjectID:     copyStringPtr(f.ProjectID),
		EditorID:      copyStringPtr(f.EditorID),
		ContactPerson: f.ContactPerson,
		Status:        f.Status,
		Remarks:       f.Remarks,
		IsCancelled:   f.IsCancelled,
		CancelReason:  copyStringPtr(f.CancelReason),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:            f.ID,
		RoomID:        f.RoomID,
		Date:          f.Date,
		FromTime:      f.FromTime,
		ToTime:        f.ToTime,
		BreakMinutes:  f.BreakMinutes,
		CustomerID:    copyStringPtr(f.CustomerID),
		ProjectID:     copyStringPtr(f.ProjectID),
		EditorID:      copyStringPtr(f.EditorID),
		ContactPerson: f.ContactPerson,
		Status:        string(f.Status),
		Remarks:       f.Remarks,
		IsCancelled:   f.IsCancelled,
		CancelReason:  copyStringPtr(f.CancelReason),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ReservationInput.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		RoomID:        f.RoomID,
		Date:          f.Date,
		FromTime:      f.FromTime,
		ToTime:        f.ToTime,
		BreakMinutes:  f.BreakMinutes,
		CustomerID:    copyStringPtr(f.CustomerID),
		ProjectID:     copyStringPtr(f.ProjectID),
		EditorID:      copyStringPtr(f.EditorID),
		ContactPerson: f.ContactPerson,
		Status:        f.Status,
		Remarks:       f.Remarks,
	}
}

// Scheduler returns the fixture as a scheduler.Booking value.
func (f ReservationFixture) Scheduler() scheduler.Booking {
	return scheduler.Booking{
		ID:       f.ID,
		RoomID:   f.RoomID,
		Date:     f.Date,
		FromTime: f.FromTime,
		ToTime:   f.ToTime,
	}
}

// helper to deep copy optional strings.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
