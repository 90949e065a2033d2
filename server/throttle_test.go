package server

import (
	"testing"
	"time"
)

func TestCoalesceChunksCoalescesSameKeyUpdates(t *testing.T) {
	in := make(chan int)
	out := coalesceChunks[int](in, func(n int) string {
		if n < 0 {
			return "" // negative values simulate a terminal, uncoalesced item
		}
		return "k"
	}, throttleConfig{CoalesceInterval: 10 * time.Millisecond})

	go func() {
		for i := 0; i < 5; i++ {
			in <- i
		}
		close(in)
	}()

	var got []int
	for v := range out {
		got = append(got, v)
	}

	if len(got) == 0 {
		t.Fatal("expected at least one coalesced item")
	}
	if got[len(got)-1] != 4 {
		t.Fatalf("last coalesced value = %d, want 4 (the most recent update)", got[len(got)-1])
	}
}

func TestCoalesceChunksPassesThroughUnkeyedItemsImmediately(t *testing.T) {
	in := make(chan int, 2)
	out := coalesceChunks[int](in, func(n int) string {
		return ""
	}, throttleConfig{CoalesceInterval: time.Hour})

	in <- 1
	in <- -1
	close(in)

	var got []int
	for v := range out {
		got = append(got, v)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2 (no coalescing for unkeyed items)", len(got))
	}
}
