// README: Postgres archive of dispatch events.
package history

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatch_events (
	id          TEXT PRIMARY KEY,
	event_type  TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload     JSONB
)`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *Store) Append(ctx context.Context, ev events.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO dispatch_events (id, event_type, occurred_at, payload)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		ev.ID, string(ev.Type), ev.At, payload)
	return err
}

// Subscriber adapts the store to the event bus. Archive failures are
// logged and never interrupt dispatch.
func (s *Store) Subscriber() func(events.Event) {
	return func(ev events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.Append(ctx, ev); err != nil {
			log.Printf("archive event %s: %v", ev.ID, err)
		}
	}
}
