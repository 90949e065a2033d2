package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/objectiveai/engine/fetch/sqlitecache"
	"github.com/objectiveai/engine/vector"
)

func TestNewSweeperRejectsEmptyExpression(t *testing.T) {
	store, err := sqlitecache.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := NewSweeper(store, ""); err == nil {
		t.Fatal("expected error for empty cron expression")
	}
	if _, err := NewSweeper(store, "CRON_TZ=UTC */5 * * * *"); err == nil {
		t.Fatal("expected error for a timezone-prefixed expression")
	}
}

func TestSweeperRunOnceRemovesExpiredRows(t *testing.T) {
	store, err := sqlitecache.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := vector.CacheVoteKey{Model: "m"}
	vote := vector.CacheVote{Vote: []decimal.Decimal{decimal.NewFromInt(1)}, ResponsesIDs: []string{"r"}}
	if err := store.Put(ctx, key, vote, -time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sweeper, err := NewSweeper(store, "*/5 * * * *")
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	sweeper.runOnce(ctx)

	if _, err := store.Fetch(ctx, key); err == nil {
		t.Fatal("expected the expired row to have been swept")
	}
}
