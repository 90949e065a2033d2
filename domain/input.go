// Package domain holds the core data model shared across the engine:
// Input values, Expressions, Functions, Profiles, Ensembles, Tasks, and
// the FunctionOutput/Vote/RetryToken types that flow between components.
//
// Mirrors the vocabulary of core.Message/core.Artifact in the teacher
// repo, generalized from a single chat-message shape to the richer tagged
// union the engine's expression evaluator and content-addressing need.
package domain

import (
	"fmt"
	"math"
	"sort"
)

// InputKind tags the variant held by an Input value.
type InputKind string

const (
	InputKindObject          InputKind = "object"
	InputKindArray           InputKind = "array"
	InputKindString          InputKind = "string"
	InputKindInteger         InputKind = "integer"
	InputKindNumber          InputKind = "number"
	InputKindBoolean         InputKind = "boolean"
	InputKindRichContentPart InputKind = "rich_content_part"
	InputKindNull            InputKind = "null"
)

// RichContentPartKind tags the media kind of a RichContentPart.
type RichContentPartKind string

const (
	RichContentImage RichContentPartKind = "image"
	RichContentAudio RichContentPartKind = "audio"
	RichContentVideo RichContentPartKind = "video"
	RichContentFile  RichContentPartKind = "file"
)

// RichContentPart is a non-text input part (image/audio/video/file),
// addressed by URI or inlined as base64 data.
type RichContentPart struct {
	Kind     RichContentPartKind
	MimeType string
	URI      string
	Data     string // base64, when inlined
}

// Input is a tagged union mirroring the wire value shapes the engine's
// expression evaluator and FTP resolver operate over. Exactly one of the
// typed fields is meaningful, selected by Kind.
//
// Object preserves insertion order (ObjectKeys) because content-addressed
// hashing must be stable and the source representation is an ordered map.
type Input struct {
	Kind InputKind

	ObjectKeys []string
	Object     map[string]Input
	Array      []Input
	Str        string
	Int        int64
	Num        float64
	Bool       bool
	Rich       RichContentPart
}

func NewNull() Input                { return Input{Kind: InputKindNull} }
func NewString(s string) Input      { return Input{Kind: InputKindString, Str: s} }
func NewInteger(i int64) Input      { return Input{Kind: InputKindInteger, Int: i} }
func NewNumber(f float64) Input     { return Input{Kind: InputKindNumber, Num: f} }
func NewBoolean(b bool) Input       { return Input{Kind: InputKindBoolean, Bool: b} }
func NewArray(vs ...Input) Input    { return Input{Kind: InputKindArray, Array: vs} }
func NewRich(p RichContentPart) Input {
	return Input{Kind: InputKindRichContentPart, Rich: p}
}

// NewObject builds an Input object preserving the given key order.
func NewObject(keys []string, values map[string]Input) Input {
	return Input{Kind: InputKindObject, ObjectKeys: append([]string(nil), keys...), Object: values}
}

// Get returns the field named key from an object Input.
func (in Input) Get(key string) (Input, bool) {
	if in.Kind != InputKindObject {
		return Input{}, false
	}
	v, ok := in.Object[key]
	return v, ok
}

// Canonical returns a copy of in with NaN canonicalized to a single
// representation and negative zero collapsed to positive zero, as
// required for stable content hashing (spec.md §9 "Dynamic expression
// languages").
func (in Input) Canonical() Input {
	switch in.Kind {
	case InputKindNumber:
		n := in.Num
		if math.IsNaN(n) {
			return Input{Kind: InputKindNumber, Num: math.NaN()}
		}
		if n == 0 {
			return Input{Kind: InputKindNumber, Num: 0}
		}
		return in
	case InputKindArray:
		out := make([]Input, len(in.Array))
		for i, v := range in.Array {
			out[i] = v.Canonical()
		}
		return Input{Kind: InputKindArray, Array: out}
	case InputKindObject:
		keys := append([]string(nil), in.ObjectKeys...)
		sort.Strings(keys)
		out := make(map[string]Input, len(in.Object))
		for _, k := range keys {
			out[k] = in.Object[k].Canonical()
		}
		return Input{Kind: InputKindObject, ObjectKeys: keys, Object: out}
	default:
		return in
	}
}

// CanonicalJSON renders a deterministic JSON-like string for content
// addressing. Object keys are sorted (by Canonical); this is not meant to
// be valid-JSON-parseable in every edge case, only stable and collision
// resistant for hashing purposes.
func (in Input) CanonicalJSON() string {
	return in.Canonical().appendJSON(nil).string()
}

type jsonBuf struct{ b []byte }

func (in Input) appendJSON(buf []byte) jsonBuf {
	switch in.Kind {
	case InputKindNull:
		buf = append(buf, "null"...)
	case InputKindBoolean:
		if in.Bool {
			buf = append(buf, "true"...)
		} else {
			buf = append(buf, "false"...)
		}
	case InputKindInteger:
		buf = append(buf, fmt.Sprintf("%d", in.Int)...)
	case InputKindNumber:
		if math.IsNaN(in.Num) {
			buf = append(buf, "NaN"...)
		} else {
			buf = append(buf, fmt.Sprintf("%g", in.Num)...)
		}
	case InputKindString:
		buf = append(buf, fmt.Sprintf("%q", in.Str)...)
	case InputKindArray:
		buf = append(buf, '[')
		for i, v := range in.Array {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = v.appendJSON(buf).b
		}
		buf = append(buf, ']')
	case InputKindObject:
		buf = append(buf, '{')
		for i, k := range in.ObjectKeys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, fmt.Sprintf("%q:", k)...)
			buf = in.Object[k].appendJSON(buf).b
		}
		buf = append(buf, '}')
	case InputKindRichContentPart:
		buf = append(buf, fmt.Sprintf("{%q:%q,%q:%q,%q:%q}",
			"kind", in.Rich.Kind, "mime", in.Rich.MimeType, "uri", in.Rich.URI)...)
	}
	return jsonBuf{b: buf}
}

func (j jsonBuf) string() string { return string(j.b) }

// IsTruthy implements the teacher's boolean coercion rule (falsy: 0, "",
// null, false, empty array, empty object), applied to skip-expression
// results.
func (in Input) IsTruthy() bool {
	switch in.Kind {
	case InputKindNull:
		return false
	case InputKindBoolean:
		return in.Bool
	case InputKindInteger:
		return in.Int != 0
	case InputKindNumber:
		return in.Num != 0
	case InputKindString:
		return in.Str != ""
	case InputKindArray:
		return len(in.Array) > 0
	case InputKindObject:
		return len(in.Object) > 0
	default:
		return true
	}
}

// ToNative converts an Input into the plain Go value shape the standard
// library's encoding/json and third-party JSON-consuming libraries
// expect (map[string]any / []any / string / float64 / bool / nil).
func (in Input) ToNative() any {
	switch in.Kind {
	case InputKindNull:
		return nil
	case InputKindBoolean:
		return in.Bool
	case InputKindInteger:
		return float64(in.Int)
	case InputKindNumber:
		return in.Num
	case InputKindString:
		return in.Str
	case InputKindArray:
		out := make([]any, len(in.Array))
		for i, v := range in.Array {
			out[i] = v.ToNative()
		}
		return out
	case InputKindObject:
		out := make(map[string]any, len(in.Object))
		for _, k := range in.ObjectKeys {
			out[k] = in.Object[k].ToNative()
		}
		return out
	case InputKindRichContentPart:
		return map[string]any{
			"kind": string(in.Rich.Kind),
			"mime": in.Rich.MimeType,
			"uri":  in.Rich.URI,
		}
	default:
		return nil
	}
}

// FromNative converts a plain Go value (as produced by encoding/json
// decoding, or returned from an expression library's native Search/eval
// call) back into an Input.
func FromNative(v any) Input {
	switch t := v.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBoolean(t)
	case string:
		return NewString(t)
	case float64:
		return NewNumber(t)
	case int:
		return NewInteger(int64(t))
	case int64:
		return NewInteger(t)
	case []any:
		out := make([]Input, len(t))
		for i, e := range t {
			out[i] = FromNative(e)
		}
		return NewArray(out...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(map[string]Input, len(t))
		for _, k := range keys {
			obj[k] = FromNative(t[k])
		}
		return NewObject(keys, obj)
	default:
		return NewNull()
	}
}
