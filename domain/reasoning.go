package domain

// ReasoningRequest opts a function execution into the reasoning summary
// pipeline (spec.md §4.6). Model is tried first; Models are fallback
// models tried in order if Model's stream fails before its first chunk.
type ReasoningRequest struct {
	Model  string
	Models []string
}
