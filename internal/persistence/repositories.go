package persistence

import "context"

// RoomRepository exposes CRUD operations for studio rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	RoomID           *string
	DateFrom         *string
	DateTo           *string
	IncludeCancelled bool
}

// ReservationRepository stores booking rows.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// FindActiveByRoomDate returns the non-cancelled reservations for one room
	// on one date, the candidate source for conflict detection.
	FindActiveByRoomDate(ctx context.Context, roomID, date string) ([]Reservation, error)
}
