package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carrental/internal/app/middleware"
	appoutbox "carrental/internal/app/outbox"
	"carrental/internal/infra/inbox"
	infraoutbox "carrental/internal/infra/outbox"
)

type outboxWriter struct {
	q        querier
	readOnly bool
}

// Add inserts within the unit's transaction so the record commits with the aggregate.
func (w *outboxWriter) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if w.readOnly {
		return ErrReadOnlyUnit
	}
	headers := rec.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := w.q.Exec(ctx, `
		INSERT INTO app_outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		rec.ID, rec.Name, rec.Payload, rec.OccurredAt.UTC(), rec.Aggregate, headers, infraoutbox.StateNew)
	return translate(err)
}

// OutboxStore claims with SKIP LOCKED so several relays can share the table.
type OutboxStore struct {
	Pool *pgxpool.Pool
	// Lease is how long a claim hides the record from other workers.
	Lease time.Duration
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	lease := s.Lease
	if lease <= 0 {
		lease = 30 * time.Second
	}
	var p infraoutbox.Pending
	err := s.Pool.QueryRow(ctx, `
		UPDATE app_outbox SET state = $1, claimed_by = $2, next_attempt_at = now() + make_interval(secs => $3)
		WHERE id = (
			SELECT id FROM app_outbox
			WHERE state IN ($4, $5, $1) AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`,
		infraoutbox.StateClaimed, workerID, lease.Seconds(), infraoutbox.StateNew, infraoutbox.StateFailed,
	).Scan(&p.ID, &p.Name, &p.Payload, &p.OccurredAt, &p.Aggregate, &p.Headers, &p.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	p.OccurredAt = p.OccurredAt.UTC()
	return &p, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE app_outbox SET state = $2, last_error = '' WHERE id = $1`, id, infraoutbox.StateSent)
	return translate(err)
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE app_outbox SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
		WHERE id = $1`, id, infraoutbox.StateFailed, next.UTC(), errMsg)
	return translate(err)
}

type IdempotencyStore struct {
	Pool *pgxpool.Pool
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.Pool.QueryRow(ctx, `SELECT command, payload, occurred_at FROM app_idempotency WHERE key = $1`, key).
		Scan(&rec.Command, &rec.Payload, &rec.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, translate(err)
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO app_idempotency (key, command, payload, occurred_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET command = EXCLUDED.command, payload = EXCLUDED.payload, occurred_at = EXCLUDED.occurred_at`,
		rec.Key, rec.Command, rec.Payload, rec.OccurredAt.UTC())
	return translate(err)
}

// Inbox dedupes consumed events per consumer name.
type Inbox struct {
	Pool     *pgxpool.Pool
	Consumer string
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	tag, err := i.Pool.Exec(ctx, `
		INSERT INTO app_inbox (event_id, consumer) VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventID, i.Consumer)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 0, nil
}

func (i *Inbox) Release(ctx context.Context, eventID string) error {
	_, err := i.Pool.Exec(ctx, `DELETE FROM app_inbox WHERE event_id = $1 AND consumer = $2`, eventID, i.Consumer)
	return translate(err)
}

var (
	_ infraoutbox.Store           = (*OutboxStore)(nil)
	_ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
	_ inbox.Inbox                 = (*Inbox)(nil)
)
