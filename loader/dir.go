package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/fetch"
	"github.com/objectiveai/engine/ftp"
)

// Dir is a directory of ensemble/profile definitions laid out as
// "<root>/ensembles/<id>.<ext>" and "<root>/profiles/<owner>/<repository>/
// <commit>.<ext>", each readable as JSON or YAML.
type Dir struct {
	Root string
}

// extensions tried, in order, when a key's exact extension is unknown.
var extensions = []string{".json", ".yaml", ".yml"}

func (d Dir) findFile(parts ...string) (string, error) {
	base := filepath.Join(append([]string{d.Root}, parts...)...)
	for _, ext := range extensions {
		p := base + ext
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("loader: no definition file found at %s.{json,yaml,yml}", base)
}

func (d Dir) read(parts ...string) ([]byte, string, error) {
	path, err := d.findFile(parts...)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path built from a fixed root and caller-supplied id/ref
	if err != nil {
		return nil, "", fmt.Errorf("loader: reading %s: %w", path, err)
	}
	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, "", err
	}
	return jsonData, path, nil
}

// EnsembleFetcher resolves ftp.EnsembleFetcher/vector.EnsembleFetcher by
// reading "<root>/ensembles/<id>.*".
func (d Dir) EnsembleFetcher() ftp.EnsembleFetcher {
	return fetch.FetcherFunc[string, domain.Ensemble](func(_ context.Context, id string) (domain.Ensemble, error) {
		data, path, err := d.read("ensembles", id)
		if err != nil {
			return domain.Ensemble{}, err
		}
		var w wireEnsemble
		if err := json.Unmarshal(data, &w); err != nil {
			return domain.Ensemble{}, fmt.Errorf("loader: parsing ensemble %s: %w", path, err)
		}
		return w.toDomain(), nil
	})
}

// ProfileFetcher resolves ftp.ProfileFetcher by reading
// "<root>/profiles/<owner>/<repository>/<commit>.*". An empty commit
// resolves to "<root>/profiles/<owner>/<repository>/latest.*".
func (d Dir) ProfileFetcher() ftp.ProfileFetcher {
	return fetch.FetcherFunc[ftp.RemoteRef, domain.Profile](func(_ context.Context, ref ftp.RemoteRef) (domain.Profile, error) {
		commit := ref.Commit
		if commit == "" {
			commit = "latest"
		}
		data, path, err := d.read("profiles", ref.Owner, ref.Repository, commit)
		if err != nil {
			return nil, err
		}
		var w []wireProfileEntry
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("loader: parsing profile %s: %w", path, err)
		}
		out := make(domain.Profile, len(w))
		for i, e := range w {
			out[i] = domain.ProfileEntry{Weight: e.Weight, Invert: e.Invert}
		}
		return out, nil
	})
}

// wireEnsemble/wireEnsembleLLMCount/wireEnsembleLLM mirror
// definitionclient's wire shapes: file-backed ensembles and HTTP-fetched
// ensembles are the same content, so they decode identically.
type wireEnsemble struct {
	ID   string                 `json:"id"`
	LLMs []wireEnsembleLLMCount `json:"llms"`
}

func (w wireEnsemble) toDomain() domain.Ensemble {
	out := make([]domain.EnsembleLLMCount, len(w.LLMs))
	for i, l := range w.LLMs {
		out[i] = l.toDomain()
	}
	return domain.Ensemble{ID: w.ID, LLMs: out}
}

type wireEnsembleLLMCount struct {
	LLM   wireEnsembleLLM `json:"llm"`
	Count int             `json:"count"`
}

func (w wireEnsembleLLMCount) toDomain() domain.EnsembleLLMCount {
	return domain.EnsembleLLMCount{LLM: w.LLM.toDomain(), Count: w.Count}
}

type wireEnsembleLLM struct {
	Model       string   `json:"model"`
	BaseParams  any      `json:"base_params"`
	TopLogprobs int      `json:"top_logprobs"`
	Fallbacks   []string `json:"fallbacks"`
}

func (w wireEnsembleLLM) toDomain() domain.EnsembleLLM {
	return domain.EnsembleLLM{
		Model:       w.Model,
		BaseParams:  domain.FromNative(w.BaseParams),
		TopLogprobs: w.TopLogprobs,
		Fallbacks:   w.Fallbacks,
	}
}

type wireProfileEntry struct {
	Weight decimal.Decimal `json:"weight"`
	Invert bool            `json:"invert"`
}
