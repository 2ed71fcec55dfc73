package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"
)

type reservationRepoStub struct {
	byID         map[string]Reservation
	order        []string
	creates      int
	failOnCreate int // 1-based create call that fails; 0 disables
	createErr    error
	getErr       error
	updateErr    error
	listErr      error
	findErr      error
}

func newReservationRepoStub() *reservationRepoStub {
	return &reservationRepoStub{byID: make(map[string]Reservation)}
}

func (r *reservationRepoStub) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	r.creates++
	if r.failOnCreate > 0 && r.creates >= r.failOnCreate {
		if r.createErr != nil {
			return Reservation{}, r.createErr
		}
		return Reservation{}, errors.New("storage unavailable")
	}
	r.byID[reservation.ID] = reservation
	r.order = append(r.order, reservation.ID)
	return reservation, nil
}

func (r *reservationRepoStub) UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if r.updateErr != nil {
		return Reservation{}, r.updateErr
	}
	if _, ok := r.byID[reservation.ID]; !ok {
		return Reservation{}, ErrNotFound
	}
	r.byID[reservation.ID] = reservation
	return reservation, nil
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if r.getErr != nil {
		return Reservation{}, r.getErr
	}
	reservation, ok := r.byID[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return reservation, nil
}

func (r *reservationRepoStub) ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Reservation
	for _, id := range r.order {
		reservation, ok := r.byID[id]
		if !ok {
			continue
		}
		if !filter.IncludeCancelled && reservation.IsCancelled {
			continue
		}
		if filter.RoomID != nil && reservation.RoomID != *filter.RoomID {
			continue
		}
		if filter.DateFrom != nil && reservation.Date < *filter.DateFrom {
			continue
		}
		if filter.DateTo != nil && reservation.Date > *filter.DateTo {
			continue
		}
		out = append(out, reservation)
	}
	return out, nil
}

func (r *reservationRepoStub) FindActiveByRoomDate(ctx context.Context, roomID, date string) ([]Reservation, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []Reservation
	for _, id := range r.order {
		reservation, ok := r.byID[id]
		if !ok {
			continue
		}
		if reservation.RoomID != roomID || reservation.Date != date || reservation.IsCancelled {
			continue
		}
		out = append(out, reservation)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromTime != out[j].FromTime {
			return out[i].FromTime < out[j].FromTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type roomCatalogStub struct {
	rooms map[string]Room
	err   error
}

func (r *roomCatalogStub) GetRoom(ctx context.Context, id string) (Room, error) {
	if r.err != nil {
		return Room{}, r.err
	}
	room, ok := r.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
}

func sequenceIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func newTestBookingService(repo *reservationRepoStub, rooms *roomCatalogStub) *BookingService {
	return NewBookingService(repo, rooms, nil, sequenceIDs("res"), fixedNow)
}

func defaultCatalog() *roomCatalogStub {
	return &roomCatalogStub{rooms: map[string]Room{
		"room-1": {ID: "room-1", Name: "Studio A", Capacity: 4},
		"room-2": {ID: "room-2", Name: "Studio B", Capacity: 8},
		"room-x": {ID: "room-x", Name: "Rehearsal", Capacity: 2, IgnoreConflict: true},
	}}
}

func bookingInput(roomID, date, from, to string) ReservationInput {
	return ReservationInput{
		RoomID:        roomID,
		Date:          date,
		FromTime:      from,
		ToTime:        to,
		ContactPerson: "Tanaka",
	}
}

func TestBookingService_CreateReservation_Persists(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())

	reservation, err := svc.CreateReservation(context.Background(), CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	if reservation.ID != "res-1" {
		t.Fatalf("expected generated id, got %q", reservation.ID)
	}
	if reservation.Status != StatusTentative {
		t.Fatalf("expected tentative default status, got %q", reservation.Status)
	}
	if reservation.IsCancelled {
		t.Fatal("new reservation must not be cancelled")
	}
	if !reservation.CreatedAt.Equal(fixedNow()) || !reservation.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("timestamps not stamped: %+v", reservation)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected 1 persisted reservation, got %d", len(repo.byID))
	}
}

func TestBookingService_CreateReservation_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newTestBookingService(newReservationRepoStub(), defaultCatalog())

	_, err := svc.CreateReservation(context.Background(), CreateReservationParams{
		Input: ReservationInput{Date: "2024/04/10", FromTime: "9:00", ToTime: "25:00", BreakMinutes: -5},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"room_id", "date", "from_time", "to_time", "break_minutes"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestBookingService_CreateReservation_UnknownRoom(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())

	_, err := svc.CreateReservation(context.Background(), CreateReservationParams{
		Input: bookingInput("ghost-room", "2024-04-10", "10:00", "12:00"),
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["room_id"]; !ok {
		t.Fatalf("expected room_id validation error, got %v", vErr.FieldErrors)
	}
	if len(repo.byID) != 0 {
		t.Fatal("nothing must be persisted for an unknown room")
	}
}

func TestBookingService_CreateReservation_Conflict(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	cases := []struct {
		name     string
		from, to string
	}{
		{name: "overlapping window", from: "11:00", to: "13:00"},
		{name: "containing window", from: "09:00", to: "13:00"},
		{name: "boundary touch at end", from: "12:00", to: "13:00"},
		{name: "boundary touch at start", from: "08:00", to: "10:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateReservation(ctx, CreateReservationParams{
				Input: bookingInput("room-1", "2024-04-10", tc.from, tc.to),
			})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
		})
	}

	if len(repo.byID) != 1 {
		t.Fatalf("conflicting candidates must not be persisted, got %d rows", len(repo.byID))
	}
}

func TestBookingService_CreateReservation_NoConflictAcrossRoomsAndDates(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-2", "2024-04-10", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("same window in another room must not conflict: %v", err)
	}

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-11", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("same window on another date must not conflict: %v", err)
	}
}

func TestBookingService_CreateReservation_ForceOverridesConflict(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	forced, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "11:00", "13:00"),
		Force: true,
	})
	if err != nil {
		t.Fatalf("forced creation failed: %v", err)
	}
	if _, ok := repo.byID[forced.ID]; !ok {
		t.Fatal("forced reservation not persisted")
	}
}

func TestBookingService_CreateReservation_IgnoreConflictRoom(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	// Identical windows stack freely in an override room.
	for i := 0; i < 3; i++ {
		if _, err := svc.CreateReservation(ctx, CreateReservationParams{
			Input: bookingInput("room-x", "2024-04-10", "10:00", "12:00"),
		}); err != nil {
			t.Fatalf("override room creation %d failed: %v", i+1, err)
		}
	}

	if len(repo.byID) != 3 {
		t.Fatalf("expected 3 stacked reservations, got %d", len(repo.byID))
	}
}

func TestBookingService_CreateReservation_CancelledDoesNotBlock(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	seeded, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	if _, err := svc.CancelReservation(ctx, CancelReservationParams{ReservationID: seeded.ID, Reason: "client request"}); err != nil {
		t.Fatalf("CancelReservation failed: %v", err)
	}

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("cancelled reservation must not block the slot: %v", err)
	}
}

func TestBookingService_UpdateReservation_SelfExclusion(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	seeded, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	// Re-saving the same window must not collide with itself.
	input := bookingInput("room-1", "2024-04-10", "10:00", "12:30")
	input.Status = StatusConfirmed
	updated, err := svc.UpdateReservation(ctx, UpdateReservationParams{ReservationID: seeded.ID, Input: input})
	if err != nil {
		t.Fatalf("UpdateReservation failed: %v", err)
	}
	if updated.ToTime != "12:30" || updated.Status != StatusConfirmed {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(seeded.CreatedAt) {
		t.Fatal("creation timestamp must survive edits")
	}
}

func TestBookingService_UpdateReservation_ConflictWithOther(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	}); err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}
	second, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "14:00", "16:00"),
	})
	if err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	_, err = svc.UpdateReservation(ctx, UpdateReservationParams{
		ReservationID: second.ID,
		Input:         bookingInput("room-1", "2024-04-10", "11:00", "13:00"),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestBookingService_UpdateReservation_Missing(t *testing.T) {
	t.Parallel()

	svc := newTestBookingService(newReservationRepoStub(), defaultCatalog())

	_, err := svc.UpdateReservation(context.Background(), UpdateReservationParams{
		ReservationID: "ghost",
		Input:         bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingService_CancelReservation(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	seeded, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}

	cancelled, err := svc.CancelReservation(ctx, CancelReservationParams{ReservationID: seeded.ID, Reason: "  client request  "})
	if err != nil {
		t.Fatalf("CancelReservation failed: %v", err)
	}
	if !cancelled.IsCancelled || cancelled.Status != StatusCancelled {
		t.Fatalf("cancellation state not applied: %+v", cancelled)
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != "client request" {
		t.Fatalf("cancel reason not recorded: %+v", cancelled.CancelReason)
	}
	if _, ok := repo.byID[seeded.ID]; !ok {
		t.Fatal("cancellation must retain the row")
	}

	// Cancelling again is a no-op.
	again, err := svc.CancelReservation(ctx, CancelReservationParams{ReservationID: seeded.ID, Reason: "other reason"})
	if err != nil {
		t.Fatalf("repeated CancelReservation failed: %v", err)
	}
	if *again.CancelReason != "client request" {
		t.Fatalf("repeated cancellation must not overwrite the reason: %q", *again.CancelReason)
	}
}

func TestBookingService_CancelReservation_Missing(t *testing.T) {
	t.Parallel()

	svc := newTestBookingService(newReservationRepoStub(), defaultCatalog())

	_, err := svc.CancelReservation(context.Background(), CancelReservationParams{ReservationID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingService_CheckConflict(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	seeded, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}
	createsBefore := repo.creates

	t.Run("overlap detected", func(t *testing.T) {
		conflict, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "room-1", Date: "2024-04-10", FromTime: "11:00", ToTime: "13:00",
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		if !conflict {
			t.Fatal("expected conflict")
		}
	})

	t.Run("boundary touch conflicts", func(t *testing.T) {
		conflict, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "room-1", Date: "2024-04-10", FromTime: "12:00", ToTime: "13:00",
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		if !conflict {
			t.Fatal("expected boundary touch to conflict")
		}
	})

	t.Run("self exclusion", func(t *testing.T) {
		conflict, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "room-1", Date: "2024-04-10", FromTime: "10:00", ToTime: "12:00",
			ExcludeReservationID: seeded.ID,
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		if conflict {
			t.Fatal("reservation must not conflict with itself")
		}
	})

	t.Run("override room never conflicts", func(t *testing.T) {
		if _, err := svc.CreateReservation(ctx, CreateReservationParams{
			Input: bookingInput("room-x", "2024-04-10", "10:00", "12:00"),
		}); err != nil {
			t.Fatalf("seed CreateReservation failed: %v", err)
		}
		conflict, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "room-x", Date: "2024-04-10", FromTime: "10:00", ToTime: "12:00",
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		if conflict {
			t.Fatal("override room must suppress conflicts")
		}
		createsBefore = repo.creates
	})

	t.Run("unknown room enforces conflicts", func(t *testing.T) {
		conflict, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "ghost-room", Date: "2024-04-10", FromTime: "10:00", ToTime: "12:00",
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		if conflict {
			t.Fatal("no bookings exist in the unknown room")
		}
	})

	t.Run("repeated checks are pure", func(t *testing.T) {
		first, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "room-1", Date: "2024-04-10", FromTime: "11:00", ToTime: "13:00",
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		second, err := svc.CheckConflict(ctx, CheckConflictParams{
			RoomID: "room-1", Date: "2024-04-10", FromTime: "11:00", ToTime: "13:00",
		})
		if err != nil {
			t.Fatalf("CheckConflict failed: %v", err)
		}
		if first != second {
			t.Fatal("identical checks must agree")
		}
		if repo.creates != createsBefore {
			t.Fatal("conflict checks must not write")
		}
	})
}

func TestBookingService_ListReservations_WarnsOnOverlaps(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	svc := newTestBookingService(repo, defaultCatalog())
	ctx := context.Background()

	first, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "10:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("seed CreateReservation failed: %v", err)
	}
	second, err := svc.CreateReservation(ctx, CreateReservationParams{
		Input: bookingInput("room-1", "2024-04-10", "11:00", "13:00"),
		Force: true,
	})
	if err != nil {
		t.Fatalf("forced CreateReservation failed: %v", err)
	}

	listed, warnings, err := svc.ListReservations(ctx, ListReservationsParams{})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(listed))
	}
	if listed[0].ID != first.ID || listed[1].ID != second.ID {
		t.Fatalf("expected chronological ordering, got %+v", listed)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 conflict warning, got %d", len(warnings))
	}
	if warnings[0].ReservationID != first.ID || warnings[0].WithReservationID != second.ID {
		t.Fatalf("unexpected warning: %+v", warnings[0])
	}

	// Cancelling one side clears the warning.
	if _, err := svc.CancelReservation(ctx, CancelReservationParams{ReservationID: second.ID, Reason: "double booked"}); err != nil {
		t.Fatalf("CancelReservation failed: %v", err)
	}
	_, warnings, err = svc.ListReservations(ctx, ListReservationsParams{})
	if err != nil {
		t.Fatalf("ListReservations failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("cancelled reservations must not warn, got %+v", warnings)
	}
}
