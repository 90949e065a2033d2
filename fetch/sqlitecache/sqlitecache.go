// Package sqlitecache implements a SQLite-backed cache of vector-completion
// votes, used to satisfy the `from_cache` vote-sourcing pass (spec.md
// §4.3 "Setup" step 2) without re-querying the upstream LLM. It does not
// implement the retry-vote lookup (`vector.RetryFetcher`).
//
// Grounded on the teacher's server/store_sqlite.go (schema-on-open,
// WAL/foreign-keys pragmas, modernc.org/sqlite driver), adapted from a
// workflow-definition store to a TTL'd vote cache.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/vector"
)

const schema = `
CREATE TABLE IF NOT EXISTS cached_votes (
	model         TEXT NOT NULL,
	fallbacks     TEXT NOT NULL,
	prompt_id     TEXT NOT NULL,
	tools_id      TEXT NOT NULL,
	responses_ids TEXT NOT NULL,
	vote_json     BLOB NOT NULL,
	response_ids_json BLOB NOT NULL,
	expires_at    TEXT NOT NULL,
	PRIMARY KEY (model, fallbacks, prompt_id, tools_id, responses_ids)
);

CREATE INDEX IF NOT EXISTS idx_cached_votes_expires ON cached_votes(expires_at);
`

// ErrNotFound is returned by Fetch when no unexpired cache row matches.
var ErrNotFound = errors.New("sqlitecache: no cached vote for key")

// Store is a TTL'd SQLite store of cached votes, safe for concurrent use
// (database/sql pools its own connections).
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite-backed vote cache at dsn.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlitecache: dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitecache: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitecache: set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitecache: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Fetch implements vector.CacheVoteFetcher.
func (s *Store) Fetch(ctx context.Context, key vector.CacheVoteKey) (vector.CacheVote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT vote_json, response_ids_json FROM cached_votes
		WHERE model = ? AND fallbacks = ? AND prompt_id = ? AND tools_id = ? AND responses_ids = ?
		  AND expires_at > ?`,
		key.Model, key.Fallbacks, key.PromptID, key.ToolsID, key.ResponsesIDs,
		nowRFC3339(),
	)

	var voteJSON, responsesJSON []byte
	if err := row.Scan(&voteJSON, &responsesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vector.CacheVote{}, ErrNotFound
		}
		return vector.CacheVote{}, fmt.Errorf("sqlitecache: fetch: %w", err)
	}

	var vote []decimal.Decimal
	if err := json.Unmarshal(voteJSON, &vote); err != nil {
		return vector.CacheVote{}, fmt.Errorf("sqlitecache: decoding vote: %w", err)
	}
	var responseIDs []string
	if err := json.Unmarshal(responsesJSON, &responseIDs); err != nil {
		return vector.CacheVote{}, fmt.Errorf("sqlitecache: decoding response ids: %w", err)
	}
	return vector.CacheVote{Vote: vote, ResponsesIDs: responseIDs}, nil
}

// Put inserts or replaces the cache row for key, expiring it after ttl.
func (s *Store) Put(ctx context.Context, key vector.CacheVoteKey, v vector.CacheVote, ttl time.Duration) error {
	voteJSON, err := json.Marshal(v.Vote)
	if err != nil {
		return fmt.Errorf("sqlitecache: encoding vote: %w", err)
	}
	responsesJSON, err := json.Marshal(v.ResponsesIDs)
	if err != nil {
		return fmt.Errorf("sqlitecache: encoding response ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_votes (model, fallbacks, prompt_id, tools_id, responses_ids, vote_json, response_ids_json, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (model, fallbacks, prompt_id, tools_id, responses_ids) DO UPDATE SET
			vote_json = excluded.vote_json,
			response_ids_json = excluded.response_ids_json,
			expires_at = excluded.expires_at`,
		key.Model, key.Fallbacks, key.PromptID, key.ToolsID, key.ResponsesIDs,
		voteJSON, responsesJSON, time.Now().UTC().Add(ttl).Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlitecache: put: %w", err)
	}
	return nil
}

// PutVote caches v under the key its own content addresses and model
// identify it by. Only freshly-sourced live votes are meaningful to
// cache here; callers should skip votes where v.Retry, v.FromCache, or
// v.FromRNG is already true.
func (s *Store) PutVote(ctx context.Context, v domain.Vote, ttl time.Duration) error {
	key := keyForVote(v)
	return s.Put(ctx, key, vector.CacheVote{Vote: v.Vote, ResponsesIDs: v.ResponsesIDs}, ttl)
}

// keyForVote derives the vector.CacheVoteKey a cached vote for v would be
// stored/looked up under.
func keyForVote(v domain.Vote) vector.CacheVoteKey {
	return vector.CacheVoteKey{
		Model:        v.Model,
		Fallbacks:    strings.Join(v.Fallbacks, ","),
		PromptID:     v.PromptID,
		ToolsID:      v.ToolsID,
		ResponsesIDs: strings.Join(v.ResponsesIDs, ","),
	}
}

// CacheLiveVotes writes every freshly-sourced live vote in votes (skipping
// any already marked Retry, FromCache, or FromRNG) to the store under ttl.
// It is best-effort: a write failure for one vote does not stop the rest,
// and the first error encountered (if any) is returned after all votes
// have been attempted.
func (s *Store) CacheLiveVotes(ctx context.Context, votes []domain.Vote, ttl time.Duration) error {
	var firstErr error
	for _, v := range votes {
		if v.Retry || v.FromCache || v.FromRNG {
			continue
		}
		if err := s.PutVote(ctx, v, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Sweep deletes every cache row that expired at or before now, returning
// the number of rows removed.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cached_votes WHERE expires_at <= ?`, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("sqlitecache: sweep: %w", err)
	}
	return res.RowsAffected()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
