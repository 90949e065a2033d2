// Package apperr defines the closed taxonomy of errors produced by the
// engine. Every error implements the standard error interface and reports
// whether it is Fatal (fails the whole request before the first chunk) or
// a per-chunk annotation (siblings continue; the error is attached to the
// specific completion/task that produced it).
package apperr

import "fmt"

// Kind identifies one of the flat error kinds from the error taxonomy.
type Kind string

const (
	KindInvalidRetryToken                       Kind = "invalid_retry_token"
	KindInputSchemaMismatch                     Kind = "input_schema_mismatch"
	KindInvalidProfile                          Kind = "invalid_profile"
	KindInvalidEnsemble                         Kind = "invalid_ensemble"
	KindEnsembleNotFound                        Kind = "ensemble_not_found"
	KindFunctionNotFound                        Kind = "function_not_found"
	KindProfileNotFound                         Kind = "profile_not_found"
	KindRetryNotFound                           Kind = "retry_not_found"
	KindFetchEnsemble                           Kind = "fetch_ensemble"
	KindFetchFunction                           Kind = "fetch_function"
	KindFetchProfile                            Kind = "fetch_profile"
	KindFetchRetry                              Kind = "fetch_retry"
	KindFetchCacheVote                          Kind = "fetch_cache_vote"
	KindExpectedTwoOrMoreRequestVectorResponses Kind = "expected_two_or_more_request_vector_responses"
	KindExpressionParse                         Kind = "expression_parse"
	KindExpressionEval                          Kind = "expression_eval"
	KindExpressionConversion                    Kind = "expression_conversion"
	KindInvalidScalarOutput                     Kind = "invalid_scalar_output"
	KindInvalidVectorOutput                     Kind = "invalid_vector_output"
	KindUpstreamChatCompletion                  Kind = "upstream_chat_completion"
)

// Error is the concrete error type carried through the engine. It mirrors
// the shape of core.NodeError in the teacher repo: a short Kind, a message,
// an optional wrapped Cause, and a Fatal flag that callers use to decide
// whether to abort the whole request or attach the error to one chunk.
type Error struct {
	Kind    Kind
	Message string
	Fatal   bool
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newFatal(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Fatal: true}
}

func newChunk(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Fatal: false}
}

// InvalidRetryToken reports a malformed retry-token string. Fatal before
// the first chunk.
func InvalidRetryToken(reason string) *Error {
	return newFatal(KindInvalidRetryToken, "%s", reason)
}

// InputSchemaMismatch reports that input failed a remote function's
// input_schema. Fatal.
func InputSchemaMismatch(reason string) *Error {
	return newFatal(KindInputSchemaMismatch, "%s", reason)
}

// InvalidProfile reports a profile length mismatch or bad weights. Fatal.
func InvalidProfile(reason string) *Error {
	return newFatal(KindInvalidProfile, "%s", reason)
}

// InvalidEnsemble reports count out of [1,128] or a merge/invert conflict.
// Fatal.
func InvalidEnsemble(reason string) *Error {
	return newFatal(KindInvalidEnsemble, "%s", reason)
}

func EnsembleNotFound(id string) *Error {
	return newFatal(KindEnsembleNotFound, "ensemble %q not found", id)
}

func FunctionNotFound(id string) *Error {
	return newFatal(KindFunctionNotFound, "function %q not found", id)
}

func ProfileNotFound(id string) *Error {
	return newFatal(KindProfileNotFound, "profile %q not found", id)
}

func RetryNotFound(id string) *Error {
	return newFatal(KindRetryNotFound, "retry %q not found", id)
}

func FetchEnsemble(cause error) *Error {
	return &Error{Kind: KindFetchEnsemble, Message: cause.Error(), Fatal: true, Cause: cause}
}

func FetchFunction(cause error) *Error {
	return &Error{Kind: KindFetchFunction, Message: cause.Error(), Fatal: true, Cause: cause}
}

func FetchProfile(cause error) *Error {
	return &Error{Kind: KindFetchProfile, Message: cause.Error(), Fatal: true, Cause: cause}
}

func FetchRetry(cause error) *Error {
	return &Error{Kind: KindFetchRetry, Message: cause.Error(), Fatal: true, Cause: cause}
}

func FetchCacheVote(cause error) *Error {
	return &Error{Kind: KindFetchCacheVote, Message: cause.Error(), Fatal: true, Cause: cause}
}

// ExpectedTwoOrMoreRequestVectorResponses reports a vector-completion
// request with fewer than two response options. Fatal.
func ExpectedTwoOrMoreRequestVectorResponses(n int) *Error {
	return newFatal(KindExpectedTwoOrMoreRequestVectorResponses,
		"expected two or more responses, got %d", n)
}

// ExpressionParse reports a parse failure for an expression's source
// string. Fatal at resolve time; per-chunk when produced while compiling
// a task's output expression.
func ExpressionParse(expr, reason string, fatal bool) *Error {
	e := newChunk(KindExpressionParse, "parsing %q: %s", expr, reason)
	e.Fatal = fatal
	return e
}

// ExpressionEval reports an evaluation failure.
func ExpressionEval(expr, reason string, fatal bool) *Error {
	e := newChunk(KindExpressionEval, "evaluating %q: %s", expr, reason)
	e.Fatal = fatal
	return e
}

// ExpressionConversion reports a type-conversion failure when bridging an
// expression result back into a domain value.
func ExpressionConversion(reason string, fatal bool) *Error {
	e := newChunk(KindExpressionConversion, "%s", reason)
	e.Fatal = fatal
	return e
}

// InvalidScalarOutput reports a scalar function output outside [0, 1].
// Per-function-chunk; siblings continue.
func InvalidScalarOutput(value float64) *Error {
	return newChunk(KindInvalidScalarOutput, "scalar output %v not in [0, 1]", value)
}

// InvalidVectorOutput reports a vector function output whose sum is out
// of tolerance or whose length does not match output_length.
// Per-function-chunk; siblings continue.
func InvalidVectorOutput(n int, reason string) *Error {
	return newChunk(KindInvalidVectorOutput, "vector output (len %d): %s", n, reason)
}

// UpstreamChatCompletion wraps a failure from the upstream chat-completion
// provider (timeout, non-2xx, malformed chunk). Per-completion; the
// aggregate continues if at least one completion succeeds.
func UpstreamChatCompletion(cause error) *Error {
	return &Error{Kind: KindUpstreamChatCompletion, Message: cause.Error(), Fatal: false, Cause: cause}
}

// IsFatal reports whether err (if it is or wraps an *Error) is fatal.
// Non-*Error values are treated as fatal, matching the propagation policy
// that an unrecognized error aborts the call.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if as(err, &ae) {
		return ae.Fatal
	}
	return true
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
