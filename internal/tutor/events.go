package tutor

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/blake2b"
)

const dbTimeout = 5 * time.Second

// Event records one generation. It carries a fingerprint of the prompt,
// never the prompt or the profile itself.
type Event struct {
	ID           uuid.UUID
	RequestID    string
	Flow         Flow
	Outcome      string
	Provider     string
	Model        string
	PromptHash   string
	PromptChars  int
	OutputChars  int
	Topics       int
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Error        string
	CreatedAt    time.Time
}

// PromptHash returns a short, stable fingerprint of a prompt so repeated
// requests can be grouped without storing student data.
func PromptHash(prompt string) string {
	sum := blake2b.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:16])
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.Flow == "" {
		return fmt.Errorf("flow is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the generation_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

const eventsSchema = `
CREATE TABLE IF NOT EXISTS generation_events (
	id            UUID PRIMARY KEY,
	request_id    TEXT NOT NULL DEFAULT '',
	flow          TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	provider      TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	prompt_hash   TEXT NOT NULL,
	prompt_chars  INTEGER NOT NULL,
	output_chars  INTEGER NOT NULL,
	topics        INTEGER NOT NULL DEFAULT 0,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	duration_ms   BIGINT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS generation_events_created_at_idx ON generation_events (created_at);
`

// EnsureSchema creates the events table if it does not exist.
func (l *PostgresEventLogger) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, eventsSchema); err != nil {
		return fmt.Errorf("create generation_events: %w", err)
	}
	return nil
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.Flow == "" {
		return fmt.Errorf("flow is required")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO generation_events
		 (id, request_id, flow, outcome, provider, model, prompt_hash, prompt_chars,
		  output_chars, topics, input_tokens, output_tokens, duration_ms, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		event.ID,
		event.RequestID,
		string(event.Flow),
		event.Outcome,
		event.Provider,
		event.Model,
		event.PromptHash,
		event.PromptChars,
		event.OutputChars,
		event.Topics,
		event.InputTokens,
		event.OutputTokens,
		event.Duration.Milliseconds(),
		event.Error,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"flow", string(event.Flow),
		"outcome", event.Outcome,
		"request_id", event.RequestID,
	)
	return nil
}

// FlowStats summarises recent generations of one flow.
type FlowStats struct {
	Flow      Flow
	Total     int
	Failed    int
	AvgMillis float64
}

// Stats aggregates events created since the given time, per flow.
func (l *PostgresEventLogger) Stats(ctx context.Context, since time.Time) ([]FlowStats, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT flow, count(*), count(*) FILTER (WHERE outcome <> 'ok'), coalesce(avg(duration_ms), 0)
		 FROM generation_events
		 WHERE created_at >= $1
		 GROUP BY flow
		 ORDER BY flow`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query event stats: %w", err)
	}
	defer rows.Close()

	var out []FlowStats
	for rows.Next() {
		var st FlowStats
		var flow string
		if err := rows.Scan(&flow, &st.Total, &st.Failed, &st.AvgMillis); err != nil {
			return nil, fmt.Errorf("scan event stats: %w", err)
		}
		st.Flow = Flow(flow)
		out = append(out, st)
	}
	return out, rows.Err()
}
