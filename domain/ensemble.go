// Ensemble validation/merge/id algorithm grounded on
// original_source/objectiveai-rs/src/ensemble/ensemble.rs: dedupe by
// full_id, sum counts, weighted-average merge of profile weights by
// count, sort by full_id (the content hash, never by model name), hash
// each (full_id, count_le_bytes) pair in sorted order with seed 0,
// base62-encode zero-padded to 22 characters.
package domain

import (
	"encoding/binary"
	"sort"

	"github.com/shopspring/decimal"
)

// EnsembleLLM describes one LLM configuration within an ensemble before
// validation/deduplication.
type EnsembleLLM struct {
	Model       string
	BaseParams  Input // provider-specific request parameters, opaque here
	TopLogprobs int
	Fallbacks   []string
}

// FullID is the content address of this LLM's configuration (model,
// params, top_logprobs, fallbacks), used as the dedupe/sort key.
func (l EnsembleLLM) FullID() string {
	keys := []string{"model", "base_params", "top_logprobs", "fallbacks"}
	fallbacks := make([]Input, len(l.Fallbacks))
	for i, f := range l.Fallbacks {
		fallbacks[i] = NewString(f)
	}
	obj := NewObject(keys, map[string]Input{
		"model":        NewString(l.Model),
		"base_params":  l.BaseParams,
		"top_logprobs": NewInteger(int64(l.TopLogprobs)),
		"fallbacks":    NewArray(fallbacks...),
	})
	return ContentAddress(obj)
}

// EnsembleLLMCount pairs an EnsembleLLM with its replication count, the
// unvalidated base unit the spec calls EnsembleBase's entries.
type EnsembleLLMCount struct {
	LLM   EnsembleLLM
	Count int
}

// EnsembleBase is the unvalidated, possibly-duplicated, possibly
// unsorted ensemble input as received from a request or a remote fetch.
type EnsembleBase struct {
	LLMs []EnsembleLLMCount
}

// Ensemble is the validated form: deduplicated, sorted by FullID, total
// count in [1,128], identified by a content hash of the sorted
// (full_id, count) sequence.
type Ensemble struct {
	ID   string
	LLMs []EnsembleLLMCount
}

// FromBase validates and normalizes an EnsembleBase with no profile
// alignment.
func FromBase(base EnsembleBase) (Ensemble, error) {
	merged, _, err := mergeLLMs(base, nil)
	if err != nil {
		return Ensemble{}, err
	}
	return finishEnsemble(merged)
}

// FromBaseWithProfile validates and normalizes an EnsembleBase, merging
// and aligning profile weights for any duplicate LLMs encountered. It
// returns the validated Ensemble and a Profile whose entries are aligned
// 1:1 with the returned Ensemble.LLMs in the same order.
//
// FromBase and FromBaseWithProfile MUST produce identical ids, order, and
// counts for any valid profile of matching length.
func FromBaseWithProfile(base EnsembleBase, profile Profile) (Ensemble, Profile, error) {
	if len(profile) != len(base.LLMs) {
		return Ensemble{}, nil, invalidEnsembleErr("profile length does not match ensemble length")
	}
	merged, mergedProfile, err := mergeLLMs(base, profile)
	if err != nil {
		return Ensemble{}, nil, err
	}
	ens, err := finishEnsemble(merged)
	if err != nil {
		return Ensemble{}, nil, err
	}
	return ens, mergedProfile, nil
}

// invalidEnsembleErr is a tiny local indirection so this file does not
// import apperr (which would create an import cycle with packages that
// import domain); callers translate via apperr.InvalidEnsemble when they
// need the full apperr.Error wrapper. The error value itself still
// carries a human-readable message.
type domainError string

func (e domainError) Error() string { return string(e) }

func invalidEnsembleErr(msg string) error { return domainError("invalid ensemble: " + msg) }

type mergedLLM struct {
	llm    EnsembleLLM
	fullID string
	count  int
	weight decimal.Decimal
	invert bool
	hasProfile bool
}

func mergeLLMs(base EnsembleBase, profile Profile) ([]mergedLLM, Profile, error) {
	order := make([]string, 0, len(base.LLMs))
	byID := make(map[string]*mergedLLM, len(base.LLMs))

	for i, entry := range base.LLMs {
		id := entry.LLM.FullID()
		if existing, ok := byID[id]; ok {
			existing.count += entry.Count
			if profile != nil {
				p := profile[i]
				if existing.hasProfile && existing.invert != p.Invert {
					return nil, nil, invalidEnsembleErr("invert flag conflict while merging duplicate LLM " + id)
				}
				totalCount := decimal.NewFromInt(int64(existing.count))
				prevWeightedCount := decimal.NewFromInt(int64(existing.count - entry.Count))
				existing.weight = existing.weight.Mul(prevWeightedCount).
					Add(p.Weight.Mul(decimal.NewFromInt(int64(entry.Count)))).
					Div(totalCount)
				existing.invert = p.Invert
				existing.hasProfile = true
			}
			continue
		}
		m := &mergedLLM{llm: entry.LLM, fullID: id, count: entry.Count}
		if profile != nil {
			m.weight = profile[i].Weight
			m.invert = profile[i].Invert
			m.hasProfile = true
		}
		byID[id] = m
		order = append(order, id)
	}

	out := make([]mergedLLM, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}

	sort.Slice(out, func(i, j int) bool { return out[i].fullID < out[j].fullID })

	var mergedProfile Profile
	if profile != nil {
		mergedProfile = make(Profile, len(out))
		for i, m := range out {
			mergedProfile[i] = ProfileEntry{Weight: m.weight, Invert: m.invert}
		}
	}
	return out, mergedProfile, nil
}

func finishEnsemble(merged []mergedLLM) (Ensemble, error) {
	total := 0
	llms := make([]EnsembleLLMCount, len(merged))
	for i, m := range merged {
		total += m.count
		llms[i] = EnsembleLLMCount{LLM: m.llm, Count: m.count}
	}
	if total < 1 || total > 128 {
		return Ensemble{}, invalidEnsembleErr("total count must be in [1, 128]")
	}

	id := computeEnsembleID(merged)
	return Ensemble{ID: id, LLMs: llms}, nil
}

// computeEnsembleID hashes, in sorted order, each (full_id, count as
// little-endian bytes) pair with seed 0 and folds the digests together,
// then base62-encodes zero-padded to 22 characters. The sort by full_id
// (not model name) is what makes the id and LLM order invariant under
// input reordering (spec.md scenario S3).
func computeEnsembleID(merged []mergedLLM) string {
	var hi, lo uint64
	for _, m := range merged {
		buf := []byte(m.fullID)
		var countBuf [8]byte
		binary.LittleEndian.PutUint64(countBuf[:], uint64(m.count))
		buf = append(buf, countBuf[:]...)
		h, l := Hash128Seeded(0, buf)
		hi ^= h
		lo ^= l
		// Fold in a rotation so that order within the (already-sorted)
		// sequence still influences the digest beyond a pure XOR, while
		// remaining a pure function of the sorted sequence itself.
		hi = (hi << 1) | (hi >> 63)
		lo = (lo << 1) | (lo >> 63)
	}
	return EncodeBase62(hi, lo)
}
