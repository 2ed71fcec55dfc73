package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/studio-booking/internal/persistence"
	"github.com/example/studio-booking/internal/recurrence"
	"github.com/example/studio-booking/internal/scheduler"
)

// ReservationRepository captures the persistence interactions needed by the service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error)
	FindActiveByRoomDate(ctx context.Context, roomID, date string) ([]Reservation, error)
}

// ReservationRepositoryFilter narrows queries issued to the reservation repository.
type ReservationRepositoryFilter struct {
	RoomID           *string
	DateFrom         *string
	DateTo           *string
	IncludeCancelled bool
}

// RoomCatalog exposes the room lookup needed for the override check.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// RoomDateLocker serialises work against one room and date. The conflict
// check and the subsequent insert are not atomic on their own; implementations
// can close that race without changing the decision logic. A nil locker keeps
// the non-atomic contract.
type RoomDateLocker interface {
	WithRoomDateLock(ctx context.Context, roomID, date string, fn func(context.Context) error) error
}

// BookingService orchestrates validation, conflict detection, and persistence
// for studio bookings.
type BookingService struct {
	reservations ReservationRepository
	rooms        RoomCatalog
	locker       RoomDateLocker
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
	warnings     *warningCache
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(reservations ReservationRepository, rooms RoomCatalog, locker RoomDateLocker, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(reservations, rooms, locker, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(reservations ReservationRepository, rooms RoomCatalog, locker RoomDateLocker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		reservations: reservations,
		rooms:        rooms,
		locker:       locker,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		warnings:     newWarningCache(0, 0, now),
	}
}

// ConfigureWarningCache replaces the conflict warning cache settings. Zero
// values fall back to the defaults.
func (s *BookingService) ConfigureWarningCache(ttl time.Duration, maxEntries int) {
	if s == nil {
		return
	}
	s.warnings = newWarningCache(ttl, maxEntries, s.now)
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CheckConflict reports whether the candidate window collides with an
// existing non-cancelled reservation in the same room on the same date.
//
// Pure decision operation: no reservation is written. Repeated calls with the
// same arguments and no intervening writes return the same result.
func (s *BookingService) CheckConflict(ctx context.Context, params CheckConflictParams) (bool, error) {
	if s == nil || s.reservations == nil {
		return false, fmt.Errorf("booking service not configured")
	}

	vErr := &ValidationError{}
	validateWindow(params.RoomID, params.Date, params.FromTime, params.ToTime, vErr)
	if vErr.HasErrors() {
		return false, vErr
	}

	return s.candidateConflicts(ctx, scheduler.Booking{
		ID:       params.ExcludeReservationID,
		RoomID:   params.RoomID,
		Date:     params.Date,
		FromTime: params.FromTime,
		ToTime:   params.ToTime,
	})
}

// CreateReservation validates the request, runs the conflict check, and
// persists a new booking.
func (s *BookingService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil || s.reservations == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation", "room_id", params.Input.RoomID, "date", params.Input.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	input := params.Input
	vErr := &ValidationError{}
	validateReservationCore(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureRoomExists(ctx, input.RoomID); err != nil {
		return
	}

	candidate := fieldsFromInput(input).reservation(s.idGenerator(), input.Date, s.now())

	err = s.withRoomDateLock(ctx, candidate.RoomID, candidate.Date, func(ctx context.Context) error {
		if !params.Force {
			conflict, cErr := s.candidateConflicts(ctx, toSchedulerBooking(candidate))
			if cErr != nil {
				return cErr
			}
			if conflict {
				return ErrConflict
			}
		}

		persisted, cErr := s.reservations.CreateReservation(ctx, candidate)
		if cErr != nil {
			return mapReservationRepoError(cErr)
		}
		candidate = persisted
		return nil
	})
	if err != nil {
		return
	}

	s.warnings.Invalidate()
	reservation = candidate
	return
}

// UpdateReservation applies validation and the self-excluding conflict check
// before updating persistence state. The booking's identity and creation
// timestamp are stable across edits.
func (s *BookingService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (reservation Reservation, err error) {
	if s == nil || s.reservations == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateReservation", "reservation_id", params.ReservationID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation updated")
	}()

	existing, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	validateReservationCore(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureRoomExists(ctx, input.RoomID); err != nil {
		return
	}

	updated := fieldsFromInput(input).apply(existing, input.Date, s.now())

	err = s.withRoomDateLock(ctx, updated.RoomID, updated.Date, func(ctx context.Context) error {
		if !params.Force && !updated.IsCancelled {
			conflict, cErr := s.candidateConflicts(ctx, toSchedulerBooking(updated))
			if cErr != nil {
				return cErr
			}
			if conflict {
				return ErrConflict
			}
		}

		persisted, cErr := s.reservations.UpdateReservation(ctx, updated)
		if cErr != nil {
			return mapReservationRepoError(cErr)
		}
		updated = persisted
		return nil
	})
	if err != nil {
		return
	}

	s.warnings.Invalidate()
	reservation = updated
	return
}

// CancelReservation soft deletes a booking: the row is retained with its
// reason and stops participating in conflict detection. Cancelling an already
// cancelled booking is a no-op.
func (s *BookingService) CancelReservation(ctx context.Context, params CancelReservationParams) (reservation Reservation, err error) {
	if s == nil || s.reservations == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation", "reservation_id", params.ReservationID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	existing, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	if existing.IsCancelled {
		reservation = existing
		return
	}

	reason := strings.TrimSpace(params.Reason)
	existing.IsCancelled = true
	existing.Status = StatusCancelled
	existing.CancelReason = &reason
	existing.UpdatedAt = s.now()

	persisted, err := s.reservations.UpdateReservation(ctx, existing)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.warnings.Invalidate()
	reservation = persisted
	return
}

// GetReservation loads one booking by ID.
func (s *BookingService) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if s == nil || s.reservations == nil {
		return Reservation{}, fmt.Errorf("booking service not configured")
	}

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations enumerates bookings matching the filter together with
// conflict warnings for overlapping pairs in the result.
func (s *BookingService) ListReservations(ctx context.Context, params ListReservationsParams) ([]Reservation, []ConflictWarning, error) {
	if s == nil || s.reservations == nil {
		return nil, nil, fmt.Errorf("booking service not configured")
	}

	filter := ReservationRepositoryFilter{
		RoomID:           params.RoomID,
		DateFrom:         params.DateFrom,
		DateTo:           params.DateTo,
		IncludeCancelled: params.IncludeCancelled,
	}

	reservations, err := s.reservations.ListReservations(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	ordered := make([]Reservation, len(reservations))
	copy(ordered, reservations)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		if ordered[i].FromTime != ordered[j].FromTime {
			return ordered[i].FromTime < ordered[j].FromTime
		}
		return ordered[i].ID < ordered[j].ID
	})

	key := buildWarningCacheKey(params)
	warnings, ok := s.warnings.Get(key)
	if !ok {
		warnings = detectListConflicts(ordered)
		s.warnings.Store(key, warnings)
	}

	return ordered, warnings, nil
}

// candidateConflicts runs the override check and the overlap scan for one
// candidate window.
func (s *BookingService) candidateConflicts(ctx context.Context, candidate scheduler.Booking) (bool, error) {
	override, err := s.roomOverride(ctx, candidate.RoomID)
	if err != nil {
		return false, err
	}
	if override {
		return false, nil
	}

	existing, err := s.reservations.FindActiveByRoomDate(ctx, candidate.RoomID, candidate.Date)
	if err != nil {
		return false, err
	}

	bookings := make([]scheduler.Booking, 0, len(existing))
	for _, reservation := range existing {
		bookings = append(bookings, toSchedulerBooking(reservation))
	}

	return len(scheduler.DetectConflicts(bookings, candidate)) > 0, nil
}

// roomOverride reports whether the room suppresses conflict detection.
// Unknown room: conflicts are enforced. This is a deliberate branch, not a
// fallthrough; the override only exists for rooms that opted in.
func (s *BookingService) roomOverride(ctx context.Context, roomID string) (bool, error) {
	if s.rooms == nil {
		return false, nil
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return room.IgnoreConflict, nil
}

func (s *BookingService) ensureRoomExists(ctx context.Context, roomID string) error {
	if s.rooms == nil {
		return nil
	}
	_, err := s.rooms.GetRoom(ctx, roomID)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		vErr := &ValidationError{}
		vErr.add("room_id", "room does not exist")
		return vErr
	}
	return err
}

func (s *BookingService) withRoomDateLock(ctx context.Context, roomID, date string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithRoomDateLock(ctx, roomID, date, fn)
}

// bookingFields is the explicit list of fields shared by the single-create
// path and the recurrence occurrence path, so the two cannot silently diverge
// in which fields propagate.
type bookingFields struct {
	RoomID        string
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

func fieldsFromInput(input ReservationInput) bookingFields {
	status := input.Status
	if status == "" {
		status = StatusTentative
	}
	return bookingFields{
		RoomID:        strings.TrimSpace(input.RoomID),
		FromTime:      strings.TrimSpace(input.FromTime),
		ToTime:        strings.TrimSpace(input.ToTime),
		BreakMinutes:  input.BreakMinutes,
		CustomerID:    input.CustomerID,
		ProjectID:     input.ProjectID,
		EditorID:      input.EditorID,
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		Status:        status,
		Remarks:       input.Remarks,
	}
}

func fieldsFromReservation(template Reservation) bookingFields {
	return bookingFields{
		RoomID:        template.RoomID,
		FromTime:      template.FromTime,
		ToTime:        template.ToTime,
		BreakMinutes:  template.BreakMinutes,
		CustomerID:    template.CustomerID,
		ProjectID:     template.ProjectID,
		EditorID:      template.EditorID,
		ContactPerson: template.ContactPerson,
		Status:        template.Status,
		Remarks:       template.Remarks,
	}
}

// reservation materialises a new booking from the field list.
func (f bookingFields) reservation(id, date string, now time.Time) Reservation {
	return Reservation{
		ID:            id,
		RoomID:        f.RoomID,
		Date:          date,
		FromTime:      f.FromTime,
		ToTime:        f.ToTime,
		BreakMinutes:  f.BreakMinutes,
		CustomerID:    f.CustomerID,
		ProjectID:     f.ProjectID,
		EditorID:      f.EditorID,
		ContactPerson: f.ContactPerson,
		Status:        f.Status,
		Remarks:       f.Remarks,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// apply overlays the field list onto an existing booking, preserving its
// identity, cancellation state, and creation timestamp.
func (f bookingFields) apply(existing Reservation, date string, now time.Time) Reservation {
	updated := existing
	updated.RoomID = f.RoomID
	updated.Date = date
	updated.FromTime = f.FromTime
	updated.ToTime = f.ToTime
	updated.BreakMinutes = f.BreakMinutes
	updated.CustomerID = f.CustomerID
	updated.ProjectID = f.ProjectID
	updated.EditorID = f.EditorID
	updated.ContactPerson = f.ContactPerson
	updated.Status = f.Status
	updated.Remarks = f.Remarks
	updated.UpdatedAt = now
	return updated
}

func toSchedulerBooking(reservation Reservation) scheduler.Booking {
	return scheduler.Booking{
		ID:       reservation.ID,
		RoomID:   reservation.RoomID,
		Date:     reservation.Date,
		FromTime: reservation.FromTime,
		ToTime:   reservation.ToTime,
	}
}

func validateReservationCore(input ReservationInput, vErr *ValidationError) {
	validateWindow(input.RoomID, input.Date, input.FromTime, input.ToTime, vErr)

	if input.BreakMinutes < 0 {
		vErr.add("break_minutes", "break minutes must not be negative")
	}
	if input.Status != "" && !validStatus(input.Status) {
		vErr.add("status", "status is invalid")
	}
}

func validateWindow(roomID, date, fromTime, toTime string, vErr *ValidationError) {
	if strings.TrimSpace(roomID) == "" {
		vErr.add("room_id", "room is required")
	}

	if strings.TrimSpace(date) == "" {
		vErr.add("date", "date is required")
	} else if _, err := time.Parse(recurrence.DateLayout, strings.TrimSpace(date)); err != nil {
		vErr.add("date", "date is invalid")
	}

	if strings.TrimSpace(fromTime) == "" {
		vErr.add("from_time", "from time is required")
	} else if !isTimeOfDay(strings.TrimSpace(fromTime)) {
		vErr.add("from_time", "from time is invalid")
	}

	if strings.TrimSpace(toTime) == "" {
		vErr.add("to_time", "to time is required")
	} else if !isTimeOfDay(strings.TrimSpace(toTime)) {
		vErr.add("to_time", "to time is invalid")
	}
}

// isTimeOfDay accepts zero-padded "HH:MM" or "HH:MM:SS" values. The fixed
// width keeps lexical ordering aligned with clock ordering.
func isTimeOfDay(value string) bool {
	switch len(value) {
	case 5:
		_, err := time.Parse("15:04", value)
		return err == nil
	case 8:
		_, err := time.Parse("15:04:05", value)
		return err == nil
	default:
		return false
	}
}

// detectListConflicts reports pairwise overlaps among the listed bookings.
// Cancelled rows never participate.
func detectListConflicts(reservations []Reservation) []ConflictWarning {
	active := make([]Reservation, 0, len(reservations))
	for _, reservation := range reservations {
		if !reservation.IsCancelled {
			active = append(active, reservation)
		}
	}
	if len(active) <= 1 {
		return nil
	}

	converted := make([]scheduler.Booking, len(active))
	for i, reservation := range active {
		converted[i] = toSchedulerBooking(reservation)
	}

	var warnings []ConflictWarning
	for i := 0; i+1 < len(converted); i++ {
		for _, conflict := range scheduler.DetectConflicts(converted[i+1:], converted[i]) {
			warnings = append(warnings, ConflictWarning{
				ReservationID:     converted[i].ID,
				WithReservationID: conflict.WithBookingID,
				RoomID:            conflict.RoomID,
				Date:              conflict.Date,
			})
		}
	}

	return warnings
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("room_id", "room does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("reservation", "invalid booking fields")
		return vErr
	}
	return err
}
