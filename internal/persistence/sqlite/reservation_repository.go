package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/studio-booking/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const reservationColumns = `id, room_id, date, from_time, to_time, break_minutes,
		customer_id, project_id, editor_id, contact_person, status, remarks,
		is_cancelled, cancel_reason, created_at, updated_at`

// CreateReservation inserts a new booking row into the database.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now

	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, query,
			reservation.ID,
			reservation.RoomID,
			reservation.Date,
			reservation.FromTime,
			reservation.ToTime,
			reservation.BreakMinutes,
			nullString(reservation.CustomerID),
			nullString(reservation.ProjectID),
			nullString(reservation.EditorID),
			reservation.ContactPerson,
			reservation.Status,
			reservation.Remarks,
			boolToInt(reservation.IsCancelled),
			nullString(reservation.CancelReason),
			reservation.CreatedAt.Format(time.RFC3339),
			reservation.UpdatedAt.Format(time.RFC3339),
		)
		return err
	})

	return r.mapper.MapError(err)
}

// UpdateReservation updates an existing booking row. CreatedAt is preserved.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrNotFound
	}

	reservation.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reservations
		SET room_id = ?, date = ?, from_time = ?, to_time = ?, break_minutes = ?,
			customer_id = ?, project_id = ?, editor_id = ?, contact_person = ?,
			status = ?, remarks = ?, is_cancelled = ?, cancel_reason = ?, updated_at = ?
		WHERE id = ?
	`

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, query,
			reservation.RoomID,
			reservation.Date,
			reservation.FromTime,
			reservation.ToTime,
			reservation.BreakMinutes,
			nullString(reservation.CustomerID),
			nullString(reservation.ProjectID),
			nullString(reservation.EditorID),
			reservation.ContactPerson,
			reservation.Status,
			reservation.Remarks,
			boolToInt(reservation.IsCancelled),
			nullString(reservation.CancelReason),
			reservation.UpdatedAt.Format(time.RFC3339),
			reservation.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// GetReservation retrieves a booking by ID from the database.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

	reservation, err := scanReservation(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}

	return reservation, nil
}

// ListReservations lists bookings matching the provided filter, ordered by
// date, start time, then ID for deterministic output.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query, args := buildReservationListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reservations, nil
}

// FindActiveByRoomDate returns the non-cancelled bookings for one room on one
// date, ordered by start time. This is the conflict detector's candidate source.
func (r *ReservationRepository) FindActiveByRoomDate(ctx context.Context, roomID, date string) ([]persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE room_id = ? AND date = ? AND is_cancelled = 0
		ORDER BY from_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, roomID, date)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reservations, nil
}

func buildReservationListQuery(filter persistence.ReservationFilter) (string, []any) {
	baseQuery := `SELECT ` + reservationColumns + ` FROM reservations`

	var conditions []string
	var args []any

	if filter.RoomID != nil {
		conditions = append(conditions, "room_id = ?")
		args = append(args, *filter.RoomID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.DateTo)
	}
	if !filter.IncludeCancelled {
		conditions = append(conditions, "is_cancelled = 0")
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY date ASC, from_time ASC, id ASC"

	return baseQuery, args
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var customerID, projectID, editorID, cancelReason sql.NullString
	var isCancelled int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&reservation.ID,
		&reservation.RoomID,
		&reservation.Date,
		&reservation.FromTime,
		&reservation.ToTime,
		&reservation.BreakMinutes,
		&customerID,
		&projectID,
		&editorID,
		&reservation.ContactPerson,
		&reservation.Status,
		&reservation.Remarks,
		&isCancelled,
		&cancelReason,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	reservation.CustomerID = stringPtr(customerID)
	reservation.ProjectID = stringPtr(projectID)
	reservation.EditorID = stringPtr(editorID)
	reservation.CancelReason = stringPtr(cancelReason)
	reservation.IsCancelled = isCancelled != 0

	if reservation.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return reservation, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	str := value.String
	return &str
}
