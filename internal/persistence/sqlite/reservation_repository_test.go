package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/studio-booking/internal/persistence"
)

func setupReservationRepositoryTest(t *testing.T) (*ReservationRepository, *RoomRepository) {
	t.Helper()
	pool := setupTestPool(t)
	rooms := NewRoomRepository(pool)
	if err := rooms.CreateRoom(context.Background(), persistence.Room{ID: "room-1", Name: "Studio A", Capacity: 4}); err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}
	return NewReservationRepository(pool), rooms
}

func sampleReservation(id, date, from, to string) persistence.Reservation {
	customer := "cust-1"
	return persistence.Reservation{
		ID:            id,
		RoomID:        "room-1",
		Date:          date,
		FromTime:      from,
		ToTime:        to,
		BreakMinutes:  15,
		CustomerID:    &customer,
		ContactPerson: "Tanaka",
		Status:        "tentative",
		Remarks:       "bring spare cables",
	}
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)
	ctx := context.Background()

	if err := repo.CreateReservation(ctx, sampleReservation("res-1", "2024-04-01", "10:00", "12:00")); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	retrieved, err := repo.GetReservation(ctx, "res-1")
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if retrieved.RoomID != "room-1" || retrieved.Date != "2024-04-01" {
		t.Fatalf("unexpected reservation: %+v", retrieved)
	}
	if retrieved.FromTime != "10:00" || retrieved.ToTime != "12:00" {
		t.Fatalf("time window not round-tripped: %+v", retrieved)
	}
	if retrieved.CustomerID == nil || *retrieved.CustomerID != "cust-1" {
		t.Fatalf("customer id not round-tripped: %+v", retrieved.CustomerID)
	}
	if retrieved.ProjectID != nil {
		t.Fatalf("expected nil project id, got %v", *retrieved.ProjectID)
	}
	if retrieved.BreakMinutes != 15 {
		t.Fatalf("expected break minutes 15, got %d", retrieved.BreakMinutes)
	}
	if retrieved.IsCancelled {
		t.Fatal("new reservation must not be cancelled")
	}
}

func TestReservationRepository_CreateUnknownRoom(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)

	reservation := sampleReservation("res-1", "2024-04-01", "10:00", "12:00")
	reservation.RoomID = "ghost-room"

	err := repo.CreateReservation(context.Background(), reservation)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestReservationRepository_GetMissing(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)

	if _, err := repo.GetReservation(context.Background(), "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationRepository_Update(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)
	ctx := context.Background()

	if err := repo.CreateReservation(ctx, sampleReservation("res-1", "2024-04-01", "10:00", "12:00")); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	reason := "client request"
	updated := sampleReservation("res-1", "2024-04-02", "13:00", "15:00")
	updated.IsCancelled = true
	updated.CancelReason = &reason
	updated.Status = "cancelled"

	if err := repo.UpdateReservation(ctx, updated); err != nil {
		t.Fatalf("UpdateReservation failed: %v", err)
	}

	retrieved, err := repo.GetReservation(ctx, "res-1")
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if retrieved.Date != "2024-04-02" || retrieved.FromTime != "13:00" {
		t.Fatalf("update not persisted: %+v", retrieved)
	}
	if !retrieved.IsCancelled || retrieved.CancelReason == nil || *retrieved.CancelReason != "client request" {
		t.Fatalf("cancellation state not persisted: %+v", retrieved)
	}
}

func TestReservationRepository_UpdateMissing(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)

	err := repo.UpdateReservation(context.Background(), sampleReservation("ghost", "2024-04-01", "10:00", "12:00"))
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationRepository_FindActiveByRoomDate(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)
	ctx := context.Background()

	seed := []persistence.Reservation{
		sampleReservation("res-1", "2024-04-01", "13:00", "14:00"),
		sampleReservation("res-2", "2024-04-01", "09:00", "10:00"),
		sampleReservation("res-3", "2024-04-02", "09:00", "10:00"),
	}
	cancelled := sampleReservation("res-4", "2024-04-01", "15:00", "16:00")
	cancelled.IsCancelled = true
	seed = append(seed, cancelled)

	for _, reservation := range seed {
		if err := repo.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("CreateReservation(%s) failed: %v", reservation.ID, err)
		}
	}

	active, err := repo.FindActiveByRoomDate(ctx, "room-1", "2024-04-01")
	if err != nil {
		t.Fatalf("FindActiveByRoomDate failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active reservations, got %d", len(active))
	}
	if active[0].ID != "res-2" || active[1].ID != "res-1" {
		t.Fatalf("expected start-time ordering, got %+v", active)
	}
}

func TestReservationRepository_ListFilters(t *testing.T) {
	repo, _ := setupReservationRepositoryTest(t)
	ctx := context.Background()

	cancelled := sampleReservation("res-3", "2024-04-03", "09:00", "10:00")
	cancelled.IsCancelled = true

	for _, reservation := range []persistence.Reservation{
		sampleReservation("res-1", "2024-04-01", "09:00", "10:00"),
		sampleReservation("res-2", "2024-04-05", "09:00", "10:00"),
		cancelled,
	} {
		if err := repo.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("CreateReservation(%s) failed: %v", reservation.ID, err)
		}
	}

	t.Run("date range excludes cancelled by default", func(t *testing.T) {
		from, to := "2024-04-01", "2024-04-04"
		listed, err := repo.ListReservations(ctx, persistence.ReservationFilter{DateFrom: &from, DateTo: &to})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(listed) != 1 || listed[0].ID != "res-1" {
			t.Fatalf("expected only res-1, got %+v", listed)
		}
	})

	t.Run("include cancelled switch", func(t *testing.T) {
		listed, err := repo.ListReservations(ctx, persistence.ReservationFilter{IncludeCancelled: true})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(listed) != 3 {
			t.Fatalf("expected 3 reservations, got %d", len(listed))
		}
	})

	t.Run("room filter", func(t *testing.T) {
		roomID := "room-1"
		listed, err := repo.ListReservations(ctx, persistence.ReservationFilter{RoomID: &roomID})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 active reservations, got %d", len(listed))
		}
	})
}
