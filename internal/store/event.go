package store

import (
	"database/sql"
	"fmt"

	"github.com/ayusman/mudra/internal/signal"
)

// ControlEvent is the control state produced for one frame of a session.
type ControlEvent struct {
	SessionID string `json:"session_id"`
	Sequence  int    `json:"sequence"`
	OffsetMS  int64  `json:"offset_ms"`
	signal.Controls
}

// EventRepository provides access to recorded control events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append writes events in a single transaction.
func (r *EventRepository) Append(events []ControlEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO control_events (session_id, sequence, offset_ms, hands, volume, eq, eq_present, speed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.Exec(
			ev.SessionID, ev.Sequence, ev.OffsetMS, ev.Hands,
			signal.Clamp(ev.Volume), signal.Clamp(ev.EQ), ev.EQPresent, signal.Clamp(ev.Speed),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", ev.Sequence, err)
		}
	}

	return tx.Commit()
}

// ListBySession returns a session's events in sequence order.
// It returns ErrNotFound if the session does not exist.
func (r *EventRepository) ListBySession(sessionID string) ([]ControlEvent, error) {
	var exists int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	rows, err := r.db.Query(
		`SELECT session_id, sequence, offset_ms, hands, volume, eq, eq_present, speed
		 FROM control_events WHERE session_id = ? ORDER BY sequence`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []ControlEvent{}
	for rows.Next() {
		var ev ControlEvent
		err := rows.Scan(
			&ev.SessionID, &ev.Sequence, &ev.OffsetMS, &ev.Hands,
			&ev.Volume, &ev.EQ, &ev.EQPresent, &ev.Speed,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
