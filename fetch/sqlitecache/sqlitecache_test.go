package sqlitecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/vector"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutThenFetchRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := vector.CacheVoteKey{Model: "m", PromptID: "p", ToolsID: "t", ResponsesIDs: "r1,r2"}
	vote := vector.CacheVote{Vote: []decimal.Decimal{decimal.NewFromInt(1), decimal.Zero}, ResponsesIDs: []string{"r1", "r2"}}

	if err := s.Put(ctx, key, vote, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Fetch(ctx, key)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got.Vote) != 2 || !got.Vote[0].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("Vote = %+v", got.Vote)
	}
}

func TestPutVoteThenFetchByDerivedKeyRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	v := domain.Vote{
		Model:        "m",
		Fallbacks:    []string{"f1", "f2"},
		PromptID:     "p",
		ToolsID:      "t",
		ResponsesIDs: []string{"r1", "r2"},
		Vote:         []decimal.Decimal{decimal.NewFromInt(1), decimal.Zero},
	}

	if err := s.PutVote(ctx, v, time.Hour); err != nil {
		t.Fatalf("PutVote: %v", err)
	}

	got, err := s.Fetch(ctx, vector.CacheVoteKey{Model: "m", Fallbacks: "f1,f2", PromptID: "p", ToolsID: "t", ResponsesIDs: "r1,r2"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got.Vote) != 2 || !got.Vote[0].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("Vote = %+v", got.Vote)
	}
}

func TestFetchMissReturnsErrNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Fetch(context.Background(), vector.CacheVoteKey{Model: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSweepRemovesExpiredRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := vector.CacheVoteKey{Model: "m"}
	vote := vector.CacheVote{Vote: []decimal.Decimal{decimal.NewFromInt(1)}, ResponsesIDs: []string{"r"}}

	if err := s.Put(ctx, key, vote, -time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, err := s.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d rows, want 1", n)
	}

	if _, err := s.Fetch(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after sweep, got %v", err)
	}
}
