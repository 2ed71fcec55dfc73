package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/studio-booking/internal/persistence"
)

func TestRoomRepository_CreateAndGetRoom(t *testing.T) {
	repo := NewRoomRepository(setupTestPool(t))
	ctx := context.Background()

	room := persistence.Room{
		ID:             "room-1",
		Name:           "Studio A",
		Location:       "2F",
		Capacity:       8,
		IgnoreConflict: true,
	}

	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	retrieved, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if retrieved.Name != "Studio A" {
		t.Errorf("expected name 'Studio A', got %q", retrieved.Name)
	}
	if retrieved.Location != "2F" {
		t.Errorf("expected location '2F', got %q", retrieved.Location)
	}
	if !retrieved.IgnoreConflict {
		t.Error("expected ignore_conflict flag to round-trip as true")
	}
	if retrieved.CreatedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be populated")
	}
}

func TestRoomRepository_DuplicateName(t *testing.T) {
	repo := NewRoomRepository(setupTestPool(t))
	ctx := context.Background()

	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "Studio A", Capacity: 4}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	err := repo.CreateRoom(ctx, persistence.Room{ID: "room-2", Name: "Studio A", Capacity: 4})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for duplicate name, got %v", err)
	}
}

func TestRoomRepository_UpdateRoom(t *testing.T) {
	repo := NewRoomRepository(setupTestPool(t))
	ctx := context.Background()

	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "Studio A", Capacity: 4}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	updated := persistence.Room{ID: "room-1", Name: "Studio A (renovated)", Capacity: 6, IgnoreConflict: true}
	if err := repo.UpdateRoom(ctx, updated); err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}

	retrieved, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if retrieved.Name != "Studio A (renovated)" || retrieved.Capacity != 6 || !retrieved.IgnoreConflict {
		t.Fatalf("update not persisted: %+v", retrieved)
	}
}

func TestRoomRepository_UpdateMissingRoom(t *testing.T) {
	repo := NewRoomRepository(setupTestPool(t))

	err := repo.UpdateRoom(context.Background(), persistence.Room{ID: "ghost", Name: "Ghost", Capacity: 1})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomRepository_ListRoomsOrdering(t *testing.T) {
	repo := NewRoomRepository(setupTestPool(t))
	ctx := context.Background()

	for _, room := range []persistence.Room{
		{ID: "room-c", Name: "Studio C", Capacity: 2},
		{ID: "room-a", Name: "Studio A", Capacity: 2},
		{ID: "room-b", Name: "Studio B", Capacity: 2},
	} {
		if err := repo.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom(%s) failed: %v", room.ID, err)
		}
	}

	rooms, err := repo.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	for i, want := range []string{"Studio A", "Studio B", "Studio C"} {
		if rooms[i].Name != want {
			t.Fatalf("expected rooms ordered by name, got %+v", rooms)
		}
	}
}

func TestRoomRepository_DeleteRoom(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "Studio A", Capacity: 4}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if err := repo.DeleteRoom(ctx, "room-1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := repo.GetRoom(ctx, "room-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteRoom(ctx, "room-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestRoomRepository_DeleteRoomWithReservations(t *testing.T) {
	pool := setupTestPool(t)
	rooms := NewRoomRepository(pool)
	reservations := NewReservationRepository(pool)
	ctx := context.Background()

	if err := rooms.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "Studio A", Capacity: 4}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	err := reservations.CreateReservation(ctx, persistence.Reservation{
		ID: "res-1", RoomID: "room-1", Date: "2024-04-01", FromTime: "10:00", ToTime: "11:00", Status: "tentative",
	})
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	if err := rooms.DeleteRoom(ctx, "room-1"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for room in use, got %v", err)
	}
}
