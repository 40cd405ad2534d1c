// Package http exposes the scheduling services over a chi router.
//
// Endpoints:
//   - GET /healthz: pings both stores.
//   - GET /metrics: prometheus exposition.
//   - GET /technicians/{id}/availability?start=&end=&policy=: answers
//     whether the technician is free under the strict or buffered policy.
//   - POST /technicians/{id}/blocks: blocks one window of the technician's
//     own time (strict policy).
//   - POST /technicians/{id}/recurring-blocks: expands a weekday rule into
//     blocking rows without conflict checks and reports overlapped bookings.
//   - POST /bookings: staff booking of a specific technician (strict policy).
//   - DELETE /appointments/{id}: hard delete of a calendar row and its case.
//   - PATCH /appointments/{id}: location and staff note enrichment.
//   - GET /cases/{id}, PATCH /cases/{id}, POST /cases/{id}/advance: case
//     administration.
//   - GET /reconciliation: one read-only reconciliation pass.
//   - GET /public/services/{serviceID}/slots?days=&duration=: pooled slots.
//   - POST /public/services/{serviceID}/bookings: self-service booking of
//     the first free technician (buffered policy).
//
// The /public group carries CORS headers. Every error body has the shape
// {"error_code","message","step","details"}; request and response DTOs
// live next to their handlers.
package http
