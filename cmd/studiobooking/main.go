package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/studio-booking/internal/application"
	"github.com/example/studio-booking/internal/config"
	httptransport "github.com/example/studio-booking/internal/http"
	"github.com/example/studio-booking/internal/persistence"
	"github.com/example/studio-booking/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	roomRepo := newRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	reservationRepo := newReservationRepositoryAdapter(sqlite.NewReservationRepository(pool))

	bookingService := application.NewBookingServiceWithLogger(reservationRepo, roomRepo, pool, idGenerator, now, logger)
	bookingService.ConfigureWarningCache(cfg.WarningCacheTTL, 0)
	roomService := application.NewRoomServiceWithLogger(roomRepo, idGenerator, now, logger)

	reservationHandler := httptransport.NewReservationHandler(bookingService, logger)
	roomHandler := httptransport.NewRoomHandler(roomService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reservations: reservationHandler,
		Rooms:        roomHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("studio booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// roomRepositoryAdapter bridges the persistence room repository, whose
// mutations return only errors, to the application interfaces that expect the
// stored value back.
type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		RoomID:           filter.RoomID,
		DateFrom:         filter.DateFrom,
		DateTo:           filter.DateTo,
		IncludeCancelled: filter.IncludeCancelled,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models), nil
}

func (a *reservationRepositoryAdapter) FindActiveByRoomDate(ctx context.Context, roomID, date string) ([]application.Reservation, error) {
	models, err := a.repo.FindActiveByRoomDate(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models), nil
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:             model.ID,
		Name:           model.Name,
		Location:       model.Location,
		Capacity:       model.Capacity,
		IgnoreConflict: model.IgnoreConflict,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:             room.ID,
		Name:           room.Name,
		Location:       room.Location,
		Capacity:       room.Capacity,
		IgnoreConflict: room.IgnoreConflict,
		CreatedAt:      room.CreatedAt,
		UpdatedAt:      room.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:            model.ID,
		RoomID:        model.RoomID,
		Date:          model.Date,
		FromTime:      model.FromTime,
		ToTime:        model.ToTime,
		BreakMinutes:  model.BreakMinutes,
		CustomerID:    cloneString(model.CustomerID),
		ProjectID:     cloneString(model.ProjectID),
		EditorID:      cloneString(model.EditorID),
		ContactPerson: model.ContactPerson,
		Status:        application.Status(model.Status),
		Remarks:       model.Remarks,
		IsCancelled:   model.IsCancelled,
		CancelReason:  cloneString(model.CancelReason),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:            reservation.ID,
		RoomID:        reservation.RoomID,
		Date:          reservation.Date,
		FromTime:      reservation.FromTime,
		ToTime:        reservation.ToTime,
		BreakMinutes:  reservation.BreakMinutes,
		CustomerID:    cloneString(reservation.CustomerID),
		ProjectID:     cloneString(reservation.ProjectID),
		EditorID:      cloneString(reservation.EditorID),
		ContactPerson: reservation.ContactPerson,
		Status:        string(reservation.Status),
		Remarks:       reservation.Remarks,
		IsCancelled:   reservation.IsCancelled,
		CancelReason:  cloneString(reservation.CancelReason),
		CreatedAt:     reservation.CreatedAt,
		UpdatedAt:     reservation.UpdatedAt,
	}
}

func toApplicationReservations(models []persistence.Reservation) []application.Reservation {
	if len(models) == 0 {
		return nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
