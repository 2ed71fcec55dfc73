package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/studio-booking/internal/application"
)

type bookingService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, params application.CancelReservationParams) (application.Reservation, error)
	GetReservation(ctx context.Context, id string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, []application.ConflictWarning, error)
	CreateRepeatBookings(ctx context.Context, params application.RepeatBookingsParams) (application.RecurrenceOutcome, error)
	CheckConflict(ctx context.Context, params application.CheckConflictParams) (bool, error)
}

type ReservationHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service bookingService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "date", req.Date)

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Input: req.toInput(),
		Force: req.Force,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "reservation_id", reservationID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "reservation_id", reservationID)

	reservation, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		ReservationID: reservationID,
		Input:         req.toInput(),
		Force:         req.Force,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", reservationID).ErrorContext(r.Context(), "reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Cancel", "reservation_id", reservationID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode cancel request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Cancel", "reservation_id", reservationID)

	reservation, err := h.service.CancelReservation(r.Context(), application.CancelReservationParams{
		ReservationID: reservationID,
		Reason:        req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Repeat(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req repeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Repeat", "reservation_id", reservationID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode repeat request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Repeat", "reservation_id", reservationID, "pattern", req.Pattern)

	outcome, err := h.service.CreateRepeatBookings(r.Context(), application.RepeatBookingsParams{
		TemplateID: reservationID,
		FromDate:   strings.TrimSpace(req.FromDate),
		ToDate:     strings.TrimSpace(req.ToDate),
		Pattern:    strings.TrimSpace(req.Pattern),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "repeat expansion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("created", outcome.CreatedCount).InfoContext(r.Context(), "repeat bookings expanded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRecurrenceDTO(outcome))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := buildListParams(r.URL.Query())

	reservations, warnings, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listReservationsResponse{
		Reservations: toReservationDTOs(reservations),
		Warnings:     toWarningDTOs(warnings),
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *ReservationHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.CheckConflictParams{
		RoomID:               strings.TrimSpace(query.Get("room_id")),
		Date:                 strings.TrimSpace(query.Get("date")),
		FromTime:             strings.TrimSpace(query.Get("from_time")),
		ToTime:               strings.TrimSpace(query.Get("to_time")),
		ExcludeReservationID: strings.TrimSpace(query.Get("exclude_reservation_id")),
	}

	conflict, err := h.service.CheckConflict(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "CheckConflict", "room_id", params.RoomID, "date", params.Date).ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{Conflict: conflict})
}

type reservationRequest struct {
	RoomID        string  `json:"room_id"`
	Date          string  `json:"date"`
	FromTime      string  `json:"from_time"`
	ToTime        string  `json:"to_time"`
	BreakMinutes  int     `json:"break_minutes"`
	CustomerID    *string `json:"customer_id"`
	ProjectID     *string `json:"project_id"`
	EditorID      *string `json:"editor_id"`
	ContactPerson string  `json:"contact_person"`
	Status        string  `json:"status"`
	Remarks       string  `json:"remarks"`
	Force         bool    `json:"force"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		RoomID:        strings.TrimSpace(r.RoomID),
		Date:          strings.TrimSpace(r.Date),
		FromTime:      strings.TrimSpace(r.FromTime),
		ToTime:        strings.TrimSpace(r.ToTime),
		BreakMinutes:  r.BreakMinutes,
		CustomerID:    normalizeOptionalID(r.CustomerID),
		ProjectID:     normalizeOptionalID(r.ProjectID),
		EditorID:      normalizeOptionalID(r.EditorID),
		ContactPerson: strings.TrimSpace(r.ContactPerson),
		Status:        application.Status(strings.TrimSpace(r.Status)),
		Remarks:       r.Remarks,
	}
}

func normalizeOptionalID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type repeatRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Pattern  string `json:"pattern"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO     `json:"reservations"`
	Warnings     []conflictWarningDTO `json:"warnings,omitempty"`
}

type conflictCheckResponse struct {
	Conflict bool `json:"conflict"`
}

type reservationDTO struct {
	ID              string  `json:"id"`
	RoomID          string  `json:"room_id"`
	Date            string  `json:"date"`
	FromTime        string  `json:"from_time"`
	ToTime          string  `json:"to_time"`
	BreakMinutes    int     `json:"break_minutes"`
	DurationMinutes int     `json:"duration_minutes"`
	CustomerID      *string `json:"customer_id,omitempty"`
	ProjectID       *string `json:"project_id,omitempty"`
	EditorID        *string `json:"editor_id,omitempty"`
	ContactPerson   string  `json:"contact_person,omitempty"`
	Status          string  `json:"status"`
	Remarks         string  `json:"remarks,omitempty"`
	IsCancelled     bool    `json:"is_cancelled"`
	CancelReason    *string `json:"cancel_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:              reservation.ID,
		RoomID:          reservation.RoomID,
		Date:            reservation.Date,
		FromTime:        reservation.FromTime,
		ToTime:          reservation.ToTime,
		BreakMinutes:    reservation.BreakMinutes,
		DurationMinutes: reservation.DurationMinutes(),
		CustomerID:      reservation.CustomerID,
		ProjectID:       reservation.ProjectID,
		EditorID:        reservation.EditorID,
		ContactPerson:   reservation.ContactPerson,
		Status:          string(reservation.Status),
		Remarks:         reservation.Remarks,
		IsCancelled:     reservation.IsCancelled,
		CancelReason:    reservation.CancelReason,
		CreatedAt:       reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

type conflictWarningDTO struct {
	ReservationID     string `json:"reservation_id"`
	WithReservationID string `json:"with_reservation_id"`
	RoomID            string `json:"room_id"`
	Date              string `json:"date"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, conflictWarningDTO{
			ReservationID:     warning.ReservationID,
			WithReservationID: warning.WithReservationID,
			RoomID:            warning.RoomID,
			Date:              warning.Date,
		})
	}
	return out
}

type recurrenceResponse struct {
	CreatedCount int             `json:"created_count"`
	Items        []occurrenceDTO `json:"items"`
}

type occurrenceDTO struct {
	Date        string          `json:"date"`
	Outcome     string          `json:"outcome"`
	Reservation *reservationDTO `json:"reservation,omitempty"`
}

func toRecurrenceDTO(outcome application.RecurrenceOutcome) recurrenceResponse {
	items := make([]occurrenceDTO, 0, len(outcome.Items))
	for _, item := range outcome.Items {
		dto := occurrenceDTO{Date: item.Date, Outcome: string(item.Outcome)}
		if item.Reservation != nil {
			converted := toReservationDTO(*item.Reservation)
			dto.Reservation = &converted
		}
		items = append(items, dto)
	}
	return recurrenceResponse{CreatedCount: outcome.CreatedCount, Items: items}
}

func buildListParams(values url.Values) application.ListReservationsParams {
	params := application.ListReservationsParams{}

	if roomID := strings.TrimSpace(values.Get("room_id")); roomID != "" {
		params.RoomID = &roomID
	}
	if from := strings.TrimSpace(values.Get("date_from")); from != "" {
		params.DateFrom = &from
	}
	if to := strings.TrimSpace(values.Get("date_to")); to != "" {
		params.DateTo = &to
	}
	if include := strings.TrimSpace(values.Get("include_cancelled")); include == "true" || include == "1" {
		params.IncludeCancelled = true
	}

	return params
}
