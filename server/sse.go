// Package server exposes the engine's executor as a minimal net/http + SSE
// surface so the engine is exercised end-to-end over HTTP, per SPEC_FULL.md
// §6. It is a thin adapter, not a spec-mandated deliverable: no business
// logic lives here beyond request decoding and event framing.
//
// Grounded on the teacher's sse/handler.go SSE-framing/heartbeat idiom
// (adapted: this engine has no event store/bus to replay from, so every
// request streams live chunks only, seq-numbered from zero).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HeartbeatInterval is the interval between SSE heartbeat comments, reused
// verbatim from the teacher's sse.HeartbeatInterval.
const HeartbeatInterval = 15 * time.Second

// sseWriter frames successive JSON payloads as SSE events of the given
// kind, interleaving heartbeat comments the way sse.SSEHandler.streamLive
// does for long-running streams.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	kind    string
	seq     uint64
}

func newSSEWriter(w http.ResponseWriter, kind string) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("server: streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher, kind: kind}, nil
}

func (s *sseWriter) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, s.kind, data); err != nil {
		return err
	}
	s.seq++
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) heartbeat() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// pump drains items from ch onto the SSE stream, sending a heartbeat
// comment on HeartbeatInterval ticks when ch is idle, until ch closes or
// the request context is cancelled. observe, if non-nil, is called with
// every item before it is sent — used to accumulate state (e.g. live
// votes to cache) alongside the stream without altering it.
func pump[T any](w *sseWriter, ctx context.Context, ch <-chan T, observe func(T)) error {
	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-ch:
			if !ok {
				return nil
			}
			if observe != nil {
				observe(item)
			}
			if err := w.send(item); err != nil {
				return err
			}
		case <-heartbeat.C:
			if err := w.heartbeat(); err != nil {
				return err
			}
		}
	}
}
