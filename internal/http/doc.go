// Package http provides HTTP handlers and middleware for the studio booking API.
//
// The router exposes the following endpoints:
//   - GET /reservations, POST /reservations, GET /reservations/{id},
//     PUT /reservations/{id}: booking management endpoints exchanging the
//     `reservationDTO` payload defined in reservation_handler.go. List
//     responses include conflict warnings for overlapping bookings.
//   - POST /reservations/{id}/cancel: soft deletes a booking with a reason.
//     The row is retained and excluded from conflict detection.
//   - POST /reservations/{id}/repeat: expands the booking over a date range
//     with a daily, weekdays, or weekly pattern and reports the per-date
//     created/skipped outcome.
//   - GET /conflicts/check: pure conflict probe for a room, date, and time
//     window. Accepts an exclude_reservation_id for edit flows.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: studio catalog endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
