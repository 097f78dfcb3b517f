package memory

import (
	"context"
	"time"

	"carrental/internal/app/middleware"
	"carrental/internal/infra/inbox"
	infraoutbox "carrental/internal/infra/outbox"
)

// claimLease is how long a claimed record stays invisible to other workers.
const claimLease = 30 * time.Second

// Claim hands out the oldest due record. Expired claims become due again.
func (s *Store) Claim(_ context.Context, workerID string) (*infraoutbox.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, e := range s.outbox {
		due := (e.state == infraoutbox.StateNew || e.state == infraoutbox.StateFailed) && !e.nextAttempt.After(now)
		expired := e.state == infraoutbox.StateClaimed && !e.nextAttempt.After(now)
		if !due && !expired {
			continue
		}
		e.state = infraoutbox.StateClaimed
		e.claimedBy = workerID
		e.nextAttempt = now.Add(claimLease)
		return &infraoutbox.Pending{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(id); e != nil {
		e.state = infraoutbox.StateSent
		e.lastError = ""
	}
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(id); e != nil {
		e.state = infraoutbox.StateFailed
		e.attempts++
		e.nextAttempt = next.UTC()
		e.lastError = errMsg
	}
	return nil
}

// OutboxStates reports the relay state of every record, keyed by event id.
func (s *Store) OutboxStates() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.outbox))
	for _, e := range s.outbox {
		out[e.record.ID] = e.state
	}
	return out
}

func (s *Store) entry(id string) *outboxEntry {
	for _, e := range s.outbox {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

// IdempotencyStore keeps replayable command results for the life of the process.
type IdempotencyStore struct {
	Store *Store
}

func (i IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	i.Store.mu.Lock()
	defer i.Store.mu.Unlock()
	rec, ok := i.Store.idempotency[key]
	return rec, ok, nil
}

func (i IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	i.Store.mu.Lock()
	defer i.Store.mu.Unlock()
	i.Store.idempotency[rec.Key] = rec
	return nil
}

// Inbox dedupes consumed events per consumer name.
type Inbox struct {
	Store    *Store
	Consumer string
}

func (i Inbox) Seen(_ context.Context, eventID string) (bool, error) {
	i.Store.mu.Lock()
	defer i.Store.mu.Unlock()
	key := i.Consumer + "/" + eventID
	if _, ok := i.Store.inbox[key]; ok {
		return true, nil
	}
	i.Store.inbox[key] = struct{}{}
	return false, nil
}

func (i Inbox) Release(_ context.Context, eventID string) error {
	i.Store.mu.Lock()
	defer i.Store.mu.Unlock()
	delete(i.Store.inbox, i.Consumer+"/"+eventID)
	return nil
}

var (
	_ infraoutbox.Store           = (*Store)(nil)
	_ middleware.IdempotencyStore = IdempotencyStore{}
	_ inbox.Inbox                 = Inbox{}
)
