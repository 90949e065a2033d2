package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/objectiveai/engine/ftp"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"ensemble.json": FormatJSON,
		"ensemble.yaml": FormatYAML,
		"ensemble.yml":  FormatYAML,
		"ensemble":      FormatJSON,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func writeFile(t *testing.T, root string, parts []string, content string) {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDirEnsembleFetcherReadsJSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, []string{"ensembles", "ens1.json"}, `{
		"id": "ens1",
		"llms": [{"llm": {"model": "gpt-4", "top_logprobs": 5, "fallbacks": []}, "count": 2}]
	}`)

	d := Dir{Root: root}
	got, err := d.EnsembleFetcher().Fetch(context.Background(), "ens1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.ID != "ens1" || len(got.LLMs) != 1 || got.LLMs[0].Count != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestDirEnsembleFetcherReadsYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, []string{"ensembles", "ens1.yaml"}, `
id: ens1
llms:
  - llm:
      model: gpt-4
      top_logprobs: 5
      fallbacks: []
    count: 2
`)

	d := Dir{Root: root}
	got, err := d.EnsembleFetcher().Fetch(context.Background(), "ens1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.ID != "ens1" || len(got.LLMs) != 1 || got.LLMs[0].LLM.Model != "gpt-4" {
		t.Fatalf("got %+v", got)
	}
}

func TestDirEnsembleFetcherMissingReturnsError(t *testing.T) {
	d := Dir{Root: t.TempDir()}
	if _, err := d.EnsembleFetcher().Fetch(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a missing ensemble file")
	}
}

func TestDirProfileFetcherResolvesLatestForEmptyCommit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, []string{"profiles", "acme", "scorer", "latest.json"}, `[{"weight": "1", "invert": false}]`)

	d := Dir{Root: root}
	got, err := d.ProfileFetcher().Fetch(context.Background(), ftp.RemoteRef{Owner: "acme", Repository: "scorer"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0].Invert {
		t.Fatalf("got %+v", got)
	}
}
