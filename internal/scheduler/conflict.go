package scheduler

// Booking is the scheduling view of a reservation: one room occupied for one
// wall-clock window on one calendar date. Times are zero-padded "HH:MM" or
// "HH:MM:SS" strings, so lexical order matches clock order.
type Booking struct {
	ID       string
	RoomID   string
	Date     string
	FromTime string
	ToTime   string
}

// Conflict details an overlapping booking relation that callers can present to users.
type Conflict struct {
	WithBookingID string
	RoomID        string
	Date          string
	FromTime      string
	ToTime        string
}

// Overlaps reports whether the candidate window [candFrom, candTo] touches the
// existing window [existFrom, existTo] under closed-interval semantics: a
// candidate ending exactly when another begins still counts as an overlap.
func Overlaps(candFrom, candTo, existFrom, existTo string) bool {
	// Candidate start falls within the existing window.
	if candFrom >= existFrom && candFrom <= existTo {
		return true
	}
	// Candidate end falls within the existing window.
	if candTo >= existFrom && candTo <= existTo {
		return true
	}
	// Candidate fully contains the existing window.
	if candFrom <= existFrom && candTo >= existTo {
		return true
	}
	return false
}

// DetectConflicts identifies conflicts for the candidate booking against existing ones.
//
// Only bookings sharing the candidate's room and date participate; an existing
// booking carrying the candidate's own ID is skipped so that edits never
// conflict with their own prior stored state. Time comparison is raw lexical
// ordering on the stored strings; windows wrapping past midnight are not
// supported here.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	for _, booking := range existing {
		if candidate.ID != "" && booking.ID == candidate.ID {
			continue
		}
		if booking.RoomID != candidate.RoomID || booking.Date != candidate.Date {
			continue
		}
		if !Overlaps(candidate.FromTime, candidate.ToTime, booking.FromTime, booking.ToTime) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: booking.ID,
			RoomID:        booking.RoomID,
			Date:          booking.Date,
			FromTime:      booking.FromTime,
			ToTime:        booking.ToTime,
		})
	}
	return conflicts
}
