// Package pfxtree generates randomized response-key prefix trees and
// extracts votes from a completed LLM choice's aggregated text and
// top-logprobs, per spec.md §4.2.
//
// Grounded on the teacher's nodes/conditional/expr package regex-cache idiom
// (eval.go's sync.Map-backed compiled-regex cache) — compiled tolerant-match
// patterns are cached the same way here. No original_source implementation
// file was recoverable for this component; the prefix/regex generation is
// designed from spec prose.
package pfxtree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

// defaultTopLogprobs is the T budget used when an LLM's configured
// top_logprobs is 0 or 1 (spec.md §4.2: "default 20 when 0/1/unset").
const defaultTopLogprobs = 20

// alphabet is the token-friendly character set prefixes are drawn from:
// lowercase letters only, so a single output token reliably covers a
// prefix character without tokenizer-specific surprises.
const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Tree is a generated prefix tree: one prefix key per response, sized to
// fit within a budget of T leaves.
type Tree struct {
	// Keys[i] is the prefix assigned to responses[i].
	Keys []string

	matchRe   *regexp.Regexp // matches any key as emitted
	strippedRe *regexp.Regexp // matches keys with leading/trailing quote stripped
}

var patternCache sync.Map // map[string]*regexp.Regexp, keyed by pattern source

func compileCached(pattern string) (*regexp.Regexp, error) {
	if v, ok := patternCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// Budget resolves the effective top_logprobs budget T for an LLM,
// defaulting to 20 when the configured value is 0 or 1.
func Budget(topLogprobs int) int {
	if topLogprobs <= 1 {
		return defaultTopLogprobs
	}
	return topLogprobs
}

// Generate builds a prefix tree with one distinct key per response,
// seeded so generation is reproducible within a single request (rngSeed
// should be derived once per vector-completion request and reused across
// the LLMs in that request's flattened ensemble).
//
// Returns an error if n responses cannot fit within budget T leaves.
func Generate(n int, topLogprobs int, rngSeed uint64) (*Tree, error) {
	budget := Budget(topLogprobs)
	if n > budget {
		return nil, fmt.Errorf("pfxtree: %d responses exceed top_logprobs budget %d", n, budget)
	}
	if n <= 0 {
		return nil, fmt.Errorf("pfxtree: at least one response required")
	}

	rng := rand.New(rand.NewPCG(rngSeed, rngSeed^0x9e3779b97f4a7c15))

	// Grow prefix length until n distinct prefixes are available: at
	// length L there are len(alphabet)^L possible prefixes; once that
	// reaches n, generation can find n distinct values.
	length := 1
	for pow(len(alphabet), length) < n {
		length++
	}

	seen := make(map[string]bool, n)
	keys := make([]string, 0, n)
	for len(keys) < n {
		k := randomPrefix(rng, length)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}

	t := &Tree{Keys: keys}
	if err := t.compilePatterns(); err != nil {
		return nil, err
	}
	return t, nil
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func randomPrefix(rng *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return b.String()
}

// compilePatterns produces the two regexes spec.md §4.2 requires: one
// matching any key as emitted, one matching keys stripped of their first
// and last quote character (tolerant JSON parsing of a quoted key).
func (t *Tree) compilePatterns() error {
	escaped := make([]string, len(t.Keys))
	for i, k := range t.Keys {
		escaped[i] = regexp.QuoteMeta(k)
	}
	matchPattern := "(" + strings.Join(escaped, "|") + ")"
	strippedPattern := `"?(` + strings.Join(escaped, "|") + `)"?`

	re, err := compileCached(matchPattern)
	if err != nil {
		return fmt.Errorf("pfxtree: compiling match pattern: %w", err)
	}
	t.matchRe = re

	sre, err := compileCached(strippedPattern)
	if err != nil {
		return fmt.Errorf("pfxtree: compiling stripped pattern: %w", err)
	}
	t.strippedRe = sre
	return nil
}

// TopLogprob is one top-logprobs candidate token at a single output
// position, as reported by an upstream streaming chat completion chunk.
type TopLogprob struct {
	Token   string
	Logprob float64
}

// ChoicePosition is one output-token position of a completed choice,
// carrying the chosen token's top-logprobs candidates.
type ChoicePosition struct {
	TopLogprobs []TopLogprob
}

// ExtractVote extracts a probability vector over t.Keys (and therefore over
// the caller's responses, by index) from a completed choice's aggregated
// text and per-position top-logprobs, per spec.md §4.2 step 2-3.
//
// Returns (nil, false) when the prefix tree produces no match — the spec
// requires no vote be emitted for that choice in that case.
func (t *Tree) ExtractVote(text string, positions []ChoicePosition) ([]float64, bool) {
	// Step 1: find the first position whose top-logprobs contain one of
	// the prefixes.
	for _, pos := range positions {
		vote, ok := t.voteFromTopLogprobs(pos.TopLogprobs)
		if ok {
			return vote, true
		}
	}

	// Fall back to matching the regex against the visible text: a hard
	// match with probability 1 on whichever key matched.
	if idx, ok := t.matchIndex(text); ok {
		vote := make([]float64, len(t.Keys))
		vote[idx] = 1
		return vote, true
	}

	return nil, false
}

// voteFromTopLogprobs converts each key's log-probability (if present
// among the position's top-logprobs) to a linear probability, producing a
// partial vote vector normalized so Σ = 1. Returns ok=false if none of the
// tree's keys appear in this position's candidates.
func (t *Tree) voteFromTopLogprobs(candidates []TopLogprob) ([]float64, bool) {
	vote := make([]float64, len(t.Keys))
	found := false
	sum := 0.0
	for i, key := range t.Keys {
		for _, c := range candidates {
			if matchesKeyPrefix(c.Token, key) {
				p := logprobToLinear(c.Logprob)
				vote[i] = p
				sum += p
				found = true
				break
			}
		}
	}
	if !found {
		return nil, false
	}
	if sum > 0 {
		for i := range vote {
			vote[i] /= sum
		}
	}
	return vote, true
}

func matchesKeyPrefix(token, key string) bool {
	return strings.HasPrefix(token, key) || strings.HasPrefix(key, token)
}

func logprobToLinear(lp float64) float64 {
	// exp(lp) converts a natural-log probability to linear; clamp to
	// avoid a >1 probability on malformed upstream data.
	if lp > 0 {
		lp = 0
	}
	return math.Exp(lp)
}

func (t *Tree) matchIndex(text string) (int, bool) {
	loc := t.strippedRe.FindStringSubmatchIndex(text)
	if loc == nil {
		loc = t.matchRe.FindStringSubmatchIndex(text)
		if loc == nil {
			return -1, false
		}
	}
	matched := text[loc[2]:loc[3]]
	for i, k := range t.Keys {
		if matched == k {
			return i, true
		}
	}
	return -1, false
}
