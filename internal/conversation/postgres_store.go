package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps sessions as JSONB rows. Updates lock the row with
// SELECT ... FOR UPDATE; expired rows are invisible and purged lazily.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPostgresStore(ctx context.Context, dsn string, ttl time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStoreFromDB(db, ttl), nil
}

func NewPostgresStoreFromDB(db *sql.DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, ttl: ttl}
}

// ensureSchema creates the table on first use. Only success is remembered;
// a failed attempt is retried by the next caller with its own context.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS conversation_sessions (
  id TEXT PRIMARY KEY,
  phase TEXT NOT NULL,
  version BIGINT NOT NULL DEFAULT 1,
  data JSONB NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  expires_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_sessions_expires_at ON conversation_sessions (expires_at);
`); err != nil {
		return fmt.Errorf("ensure session schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	sess.CreatedAt, sess.UpdatedAt, sess.Version = now, now, 1
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO conversation_sessions (id, phase, version, data, created_at, updated_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$5,$6)`,
		sess.ID, string(sess.Phase), sess.Version, data, now, now.Add(s.ttl))
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `
UPDATE conversation_sessions SET expires_at = $2
WHERE id = $1 AND expires_at > NOW()
RETURNING data`, id, time.Now().UTC().Add(s.ttl)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, SessionNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var data []byte
	err = tx.QueryRowContext(ctx, `
SELECT data FROM conversation_sessions
WHERE id = $1 AND expires_at > NOW() FOR UPDATE`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, SessionNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	var cur Session
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	version := cur.Version
	if err := fn(&cur); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cur.ID = id
	cur.Version = version + 1
	cur.UpdatedAt = now
	out, err := json.Marshal(&cur)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE conversation_sessions
SET phase=$2, version=$3, data=$4, updated_at=$5, expires_at=$6
WHERE id=$1`,
		id, string(cur.Phase), cur.Version, out, now, now.Add(s.ttl)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &cur, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_sessions WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_sessions WHERE expires_at <= NOW()`); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversation_sessions`).Scan(&n)
	return n, err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
