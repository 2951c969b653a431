package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	"github.com/ynput/ayon-backend-sub000/pkg/utils"
)

// EventRepository appends domain events to the event log
type EventRepository struct{}

var _ ports.EventStore = (*EventRepository)(nil)

// NewEventRepository creates a new EventRepository
func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

// Insert stores an event, assigning an ID and timestamp when missing
func (r *EventRepository) Insert(ctx context.Context, exec Executor, ev *events.Event) error {
	if ev.ID == "" {
		ev.ID = utils.GenerateID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	summary, err := json.Marshal(ev.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal event summary: %w", err)
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, topic, description, summary, payload, user_name, project_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, constants.TableEvents)

	_, err = exec.ExecContext(ctx, query,
		ev.ID, string(ev.Topic), ev.Description, summary, payload,
		nullString(ev.User), nullString(ev.Project), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns the latest events, optionally filtered by topic
func (r *EventRepository) Recent(ctx context.Context, exec Executor, topic string, limit int) ([]events.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT id, topic, description, summary, payload, user_name, project_name, created_at FROM %s", constants.TableEvents)
	args := []interface{}{}
	if topic != "" {
		query += " WHERE topic = ?"
		args = append(args, topic)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			ev               events.Event
			topicName        string
			summary, payload []byte
			user, project    sql.NullString
		)
		if err := rows.Scan(&ev.ID, &topicName, &ev.Description, &summary, &payload, &user, &project, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Topic = events.EventType(topicName)
		ev.User = user.String
		ev.Project = project.String
		if len(summary) > 0 {
			_ = json.Unmarshal(summary, &ev.Summary)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &ev.Payload)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
