package reasoning

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

// ConfidenceResponse is one fingerprint-grouped response option discovered
// across every vector-completion leaf in a function's execution, per
// spec.md §4.6 step 2.
type ConfidenceResponse struct {
	Response   domain.Input
	Confidence decimal.Decimal
	Reasoning  []string

	count decimal.Decimal
}

// leafState is the per-vector-completion-leaf accumulator: indices maps
// each response position to its fingerprint group, text accumulates raw
// per-flat-LLM completion text (for later _think extraction), and latest
// holds the most recently observed (cumulative) votes/scores.
type leafState struct {
	indices []int
	text    map[int]*strings.Builder
	latest  struct {
		votes  []domain.Vote
		scores []decimal.Decimal
	}
}

// confidenceTracker folds the vector-completion stream into fingerprint-
// grouped confidence responses, per spec.md §4.6 steps 1-3.
type confidenceTracker struct {
	mu            sync.Mutex
	groups        []*ConfidenceResponse
	byFingerprint map[uint64]int
	leaves        map[string]*leafState
}

func newConfidenceTracker() *confidenceTracker {
	return &confidenceTracker{
		byFingerprint: make(map[uint64]int),
		leaves:        make(map[string]*leafState),
	}
}

// observe folds one streamed VectorCompletionTaskChunk into the tracker.
func (t *confidenceTracker) observe(item *chunk.VectorCompletionTaskChunk) {
	if item.Error != nil || item.ResponseID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, ok := t.leaves[item.ResponseID]
	if !ok {
		leaf = &leafState{text: make(map[int]*strings.Builder)}
		leaf.indices = make([]int, len(item.Responses))
		for i, r := range item.Responses {
			leaf.indices[i] = t.groupFor(r)
		}
		t.leaves[item.ResponseID] = leaf
	}

	for _, c := range item.Chunk.Completions {
		b, ok := leaf.text[c.Index]
		if !ok {
			b = &strings.Builder{}
			leaf.text[c.Index] = b
		}
		b.WriteString(c.Inner.Delta)
	}

	leaf.latest.votes = item.Chunk.Votes
	leaf.latest.scores = item.Chunk.Scores
}

// groupFor returns the fingerprint group index for response, creating a
// fresh one-member group on first sight and bumping its leaf count
// otherwise. Caller must hold t.mu.
func (t *confidenceTracker) groupFor(response domain.Input) int {
	fp := xxhash.Sum64String(response.CanonicalJSON())
	if idx, ok := t.byFingerprint[fp]; ok {
		t.groups[idx].count = t.groups[idx].count.Add(decimal.NewFromInt(1))
		return idx
	}
	idx := len(t.groups)
	t.groups = append(t.groups, &ConfidenceResponse{Response: response, count: decimal.NewFromInt(1)})
	t.byFingerprint[fp] = idx
	return idx
}

// finalize folds every leaf's final (cumulative) scores/votes into its
// groups' confidence and reasoning, normalizes by confidence_count, and
// returns the groups in discovery order.
func (t *confidenceTracker) finalize() []*ConfidenceResponse {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, leaf := range t.leaves {
		for i, score := range leaf.latest.scores {
			if i >= len(leaf.indices) {
				break
			}
			g := t.groups[leaf.indices[i]]
			g.Confidence = g.Confidence.Add(score)
		}
		for _, v := range leaf.latest.votes {
			if v.CompletionIndex == nil {
				continue
			}
			winning := argmax(v.Vote)
			if winning < 0 || winning >= len(leaf.indices) {
				continue
			}
			g := t.groups[leaf.indices[winning]]
			if b, ok := leaf.text[*v.CompletionIndex]; ok {
				if r, found := extractThink(b.String()); found {
					g.Reasoning = append(g.Reasoning, r)
				}
			}
		}
	}

	for _, g := range t.groups {
		if g.count.GreaterThan(decimal.NewFromInt(1)) {
			g.Confidence = g.Confidence.Div(g.count)
		}
	}
	return t.groups
}

func argmax(v []decimal.Decimal) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	bestVal := v[0]
	for i, x := range v[1:] {
		if x.GreaterThan(bestVal) {
			bestVal = x
			best = i + 1
		}
	}
	return best
}

// extractThink parses raw completion text as a JSON object and returns
// its "_think" string field, if present — this architecture's votes
// carry no dedicated reasoning field separate from the model's raw
// textual output, so the assertion's reasoning text is recovered the
// same way the original parses a structured `_think` key out of content
// or tool-call arguments.
func extractThink(raw string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", false
	}
	think, ok := obj["_think"].(string)
	if !ok || think == "" {
		return "", false
	}
	return think, true
}
