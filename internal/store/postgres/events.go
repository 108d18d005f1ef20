package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"eventportal/internal/domain"
)

type EventsStore struct {
	pool DB
}

func NewEventsStore(pool DB) *EventsStore {
	return &EventsStore{pool: pool}
}

const eventColumns = `id, organizer_id, title, description, location, starts_at, status, created_at, validated_at`

func (s *EventsStore) CreateEvent(ctx context.Context, ne domain.NewEvent) (domain.Event, error) {
	const q = `
		INSERT INTO events (organizer_id, title, description, location, starts_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + eventColumns

	ev, err := scanEvent(s.pool.QueryRow(ctx, q, ne.OrganizerID, ne.Title, ne.Description, ne.Location, ne.StartsAt))
	if err != nil {
		return domain.Event{}, domain.NewStorageError("events.create", err)
	}
	return ev, nil
}

func (s *EventsStore) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	ev, err := scanEvent(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, domain.NewStorageError("events.get", err)
	}
	return ev, nil
}

// ListValidated returns validated events that have not started yet.
func (s *EventsStore) ListValidated(ctx context.Context, limit int) ([]domain.Event, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = 'validated' AND starts_at > now()
		ORDER BY starts_at ASC, id ASC
		LIMIT $1
	`
	return s.listEvents(ctx, "events.list_validated", q, limit)
}

func (s *EventsStore) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE organizer_id = $1
		ORDER BY starts_at DESC, id DESC
	`
	return s.listEvents(ctx, "events.list_by_organizer", q, organizerID)
}

func (s *EventsStore) ListPending(ctx context.Context) ([]domain.Event, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
	`
	return s.listEvents(ctx, "events.list_pending", q)
}

func (s *EventsStore) ListRegisteredEventIDs(ctx context.Context, participantID int64) (map[int64]bool, error) {
	const q = `SELECT event_id FROM event_registrations WHERE participant_id = $1`

	rows, err := s.pool.Query(ctx, q, participantID)
	if err != nil {
		return nil, domain.NewStorageError("events.list_registrations", err)
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewStorageError("events.list_registrations", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("events.list_registrations", err)
	}
	return out, nil
}

// ValidateEvent flips a pending event to validated together with its audit
// entry. A missing or already validated event reports ErrNotFound.
func (s *EventsStore) ValidateEvent(ctx context.Context, id int64, audit domain.AuditEntry) (domain.Event, error) {
	var ev domain.Event
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `
			UPDATE events
			SET status = 'validated', validated_at = now()
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + eventColumns

		var err error
		ev, err = scanEvent(tx.QueryRow(ctx, q, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("validate event: %w", err)
		}
		if err := insertAuditEntry(ctx, tx, audit); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Event{}, err
		}
		return domain.Event{}, domain.NewStorageError("events.validate", err)
	}
	return ev, nil
}

func (s *EventsStore) RegisterParticipant(ctx context.Context, eventID, participantID int64) error {
	const q = `
		INSERT INTO event_registrations (event_id, participant_id)
		VALUES ($1, $2)
	`
	if _, err := s.pool.Exec(ctx, q, eventID, participantID); err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) {
			switch pgerr.Code {
			case "23505":
				return domain.ErrAlreadyRegistered
			case "23503":
				return domain.ErrNotFound
			}
		}
		return domain.NewStorageError("events.register", err)
	}
	return nil
}

func (s *EventsStore) listEvents(ctx context.Context, op, q string, args ...any) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		ev          domain.Event
		validatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&ev.ID,
		&ev.OrganizerID,
		&ev.Title,
		&ev.Description,
		&ev.Location,
		&ev.StartsAt,
		&ev.Status,
		&ev.CreatedAt,
		&validatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	ev.ValidatedAt = timestamptzPtr(validatedAt)
	return ev, nil
}
