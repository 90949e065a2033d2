package definitionclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/objectiveai/engine/ftp"
)

func TestEnsembleFetcherDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ensembles/abc123" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "abc123",
			"llms": [
				{"llm": {"model": "openai/gpt-4o", "top_logprobs": 5, "fallbacks": []}, "count": 2}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	ensemble, err := c.EnsembleFetcher().Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ensemble.ID != "abc123" {
		t.Fatalf("ID = %q, want abc123", ensemble.ID)
	}
	if len(ensemble.LLMs) != 1 || ensemble.LLMs[0].Count != 2 {
		t.Fatalf("LLMs = %+v", ensemble.LLMs)
	}
	if ensemble.LLMs[0].LLM.Model != "openai/gpt-4o" {
		t.Fatalf("Model = %q", ensemble.LLMs[0].LLM.Model)
	}
}

func TestProfileFetcherBuildsRemotePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/acme/scoring/deadbeef" {
			t.Errorf("path = %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"weight": "1", "invert": false}, {"weight": "2.5", "invert": true}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	profile, err := c.ProfileFetcher().Fetch(context.Background(), ftp.RemoteRef{Owner: "acme", Repository: "scoring", Commit: "deadbeef"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(profile) != 2 || !profile[1].Invert {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestGetReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.EnsembleFetcher().Fetch(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
