package exec

import "sync"

// ChoiceIndexer assigns a stable, contiguous choice index to each task
// index the first time it is observed, per spec.md §4.5 "Choice
// indexing": sibling task slots may complete out of order, but a stream
// consumer should still see 0, 1, 2, ... in discovery order. An indexer
// is created only for each mapped vector-completion task, covering that
// task's instances; a lone vector-completion leaf reports choice index 0,
// and a function subtree has no indexer of its own.
type ChoiceIndexer struct {
	mu   sync.Mutex
	next int
	seen map[int]int
}

// NewChoiceIndexer starts an empty indexer.
func NewChoiceIndexer() *ChoiceIndexer {
	return &ChoiceIndexer{seen: make(map[int]int)}
}

// Index returns the choice index assigned to taskIndex, assigning the
// next one if this is the first time taskIndex has been seen.
func (c *ChoiceIndexer) Index(taskIndex int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.seen[taskIndex]; ok {
		return idx
	}
	idx := c.next
	c.next++
	c.seen[taskIndex] = idx
	return idx
}
