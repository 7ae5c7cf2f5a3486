package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/jmoiron/sqlx"
)

type cachedEvent struct {
	Doctype  string    `db:"ref_doctype"`
	Docname  string    `db:"ref_docname"`
	Position int       `db:"position"`
	Kind     string    `db:"kind"`
	Name     string    `db:"name"`
	Subject  string    `db:"subject"`
	Status   string    `db:"status"`
	StartsOn string    `db:"starts_on"`
	EndsOn   string    `db:"ends_on"`
	Payload  string    `db:"payload"`
	CachedAt time.Time `db:"cached_at"`
}

// EventCacheRepository stores the last refreshed event list of each record.
//
// Rows keep the full event as JSON plus a few columns for querying without decoding.
type EventCacheRepository struct {
	db *sqlx.DB
}

// NewEventCacheRepository creates a new EventCacheRepository with the given database connection
func NewEventCacheRepository(db *sqlx.DB) *EventCacheRepository {
	return &EventCacheRepository{db: db}
}

// Replace swaps the cached list of ref for events in one transaction
func (r *EventCacheRepository) Replace(ctx context.Context, ref models.Reference, events []models.ScheduledEvent) error {
	if ref.IsZero() {
		return fmt.Errorf("%w: reference doctype and name", shared.ErrMissingArgument)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_cache WHERE ref_doctype = ? AND ref_docname = ?`, ref.Doctype, ref.Docname); err != nil {
		return fmt.Errorf("failed to clear event cache: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO event_cache (ref_doctype, ref_docname, position, kind, name, subject, status, starts_on, ends_on, payload, cached_at)
		VALUES (:ref_doctype, :ref_docname, :position, :kind, :name, :subject, :status, :starts_on, :ends_on, :payload, :cached_at)
	`
	for i, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.Name, err)
		}
		row := cachedEvent{
			Doctype:  ref.Doctype,
			Docname:  ref.Docname,
			Position: i,
			Kind:     string(e.Kind),
			Name:     e.Name,
			Subject:  e.Subject,
			Status:   e.Status,
			StartsOn: e.StartsOn.String(),
			EndsOn:   e.EndsOn.String(),
			Payload:  string(payload),
			CachedAt: now,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to cache event %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event cache: %w", err)
	}
	return nil
}

// List returns the cached list of ref in its original order and when it was cached.
//
// A record that was never cached, or was cached with no events, returns [shared.ErrNotFound].
func (r *EventCacheRepository) List(ctx context.Context, ref models.Reference) ([]models.ScheduledEvent, time.Time, error) {
	var rows []cachedEvent
	query := `SELECT * FROM event_cache WHERE ref_doctype = ? AND ref_docname = ? ORDER BY position`
	if err := r.db.SelectContext(ctx, &rows, query, ref.Doctype, ref.Docname); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query event cache: %w", err)
	}
	if len(rows) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: no cached events for %s", shared.ErrNotFound, ref)
	}

	events := make([]models.ScheduledEvent, 0, len(rows))
	for _, row := range rows {
		var e models.ScheduledEvent
		if err := json.Unmarshal([]byte(row.Payload), &e); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to decode cached event %s: %w", row.Name, err)
		}
		events = append(events, e)
	}
	return events, rows[0].CachedAt, nil
}

// Clear drops the cached list of ref
func (r *EventCacheRepository) Clear(ctx context.Context, ref models.Reference) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM event_cache WHERE ref_doctype = ? AND ref_docname = ?`, ref.Doctype, ref.Docname); err != nil {
		return fmt.Errorf("failed to clear event cache: %w", err)
	}
	return nil
}
