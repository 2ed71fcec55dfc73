package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/studio-booking/internal/recurrence"
)

// CreateRepeatBookings expands a template booking over a date range and
// persists one copy per selected date.
//
// Dates whose candidate collides with an existing reservation are reported as
// skipped and the expansion continues; a storage failure aborts the batch.
// Occurrences created before the failure remain persisted. When the template's
// own date falls inside the range, the copy collides with the template and is
// skipped like any other conflict.
func (s *BookingService) CreateRepeatBookings(ctx context.Context, params RepeatBookingsParams) (outcome RecurrenceOutcome, err error) {
	if s == nil || s.reservations == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRepeatBookings",
		"template_id", params.TemplateID,
		"from_date", params.FromDate,
		"to_date", params.ToDate,
		"pattern", params.Pattern,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to expand repeat bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "repeat bookings expanded",
			"created", outcome.CreatedCount,
			"skipped", len(outcome.Items)-outcome.CreatedCount,
		)
	}()

	pattern, err := recurrence.ParsePattern(params.Pattern)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("pattern", "pattern is invalid")
		err = vErr
		return
	}

	// The range is validated before any lookup or write so that an invalid
	// request cannot leave partial state behind.
	dates, err := recurrence.Expand(params.FromDate, params.ToDate, pattern)
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrInvalidRange):
			err = ErrInvalidRange
		case errors.Is(err, recurrence.ErrInvalidDate):
			vErr := &ValidationError{}
			vErr.add("date_range", "date range is invalid")
			err = vErr
		}
		return
	}

	template, err := s.reservations.GetReservation(ctx, params.TemplateID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if template.IsCancelled {
		vErr := &ValidationError{}
		vErr.add("template_id", "template reservation is cancelled")
		err = vErr
		return
	}

	fields := fieldsFromReservation(template)
	items := make([]OccurrenceResult, 0, len(dates))
	created := 0

	for _, date := range dates {
		candidate := fields.reservation(s.idGenerator(), date, s.now())

		lockErr := s.withRoomDateLock(ctx, candidate.RoomID, candidate.Date, func(ctx context.Context) error {
			conflict, cErr := s.candidateConflicts(ctx, toSchedulerBooking(candidate))
			if cErr != nil {
				return cErr
			}
			if conflict {
				return ErrConflict
			}

			persisted, cErr := s.reservations.CreateReservation(ctx, candidate)
			if cErr != nil {
				return mapReservationRepoError(cErr)
			}
			candidate = persisted
			return nil
		})
		if lockErr != nil {
			if errors.Is(lockErr, ErrConflict) {
				items = append(items, OccurrenceResult{Date: date, Outcome: OccurrenceSkipped})
				continue
			}
			err = lockErr
			return
		}

		occurrence := candidate
		items = append(items, OccurrenceResult{Date: date, Outcome: OccurrenceCreated, Reservation: &occurrence})
		created++
	}

	if created > 0 {
		s.warnings.Invalidate()
	}

	outcome = RecurrenceOutcome{CreatedCount: created, Items: items}
	return
}
