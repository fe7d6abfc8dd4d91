package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttendanceEventRepository is the concrete implementation for a PostgreSQL database.
type AttendanceEventRepository struct {
	DB *sql.DB
}

// NewAttendanceEventRepository create new instance
func NewAttendanceEventRepository(db *sql.DB) Repository {
	return &AttendanceEventRepository{DB: db}
}

// InsertEvent archives one audit event; redelivered events are ignored.
func (r *AttendanceEventRepository) InsertEvent(ctx context.Context, event ports.AuditEvent, source string) (bool, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.userId", event.UserID))

	details := event.Details
	if details == nil {
		details = map[string]string{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("marshal details: %w", err)
	}

	query := `INSERT INTO attendance_events (id, kind, user_id, user_name, occurred_at, details, source)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (id) DO NOTHING`

	res, err := r.DB.ExecContext(ctx, query, event.ID, string(event.Kind), event.UserID, event.UserName, event.Timestamp, raw, source)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListUserEvents returns the most recent events of a user, newest first.
func (r *AttendanceEventRepository) ListUserEvents(ctx context.Context, userID string, limit int) ([]ports.AuditEvent, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.userId", userID))

	query := `SELECT id, kind, user_id, user_name, occurred_at, details
              FROM attendance_events
              WHERE user_id = $1
              ORDER BY occurred_at DESC
              LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ports.AuditEvent
	for rows.Next() {
		var (
			ev   ports.AuditEvent
			kind string
			raw  []byte
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.UserID, &ev.UserName, &ev.Timestamp, &raw); err != nil {
			return nil, err
		}
		ev.Kind = model.EventKind(kind)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ev.Details); err != nil {
				return nil, fmt.Errorf("decode details of event %s: %w", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
