// Package definitionclient implements the HTTP-backed remote ensemble,
// profile and retry-vote fetchers (it has no function fetcher) against a
// definition service reachable
// at config.Config.APIBase, authenticated with config.Config.APIKey.
//
// Grounded on the teacher's nodes/webhook_call.go outbound HTTP request
// shape (constructed *http.Request, bounded timeout, status-code check,
// response body decode) and package fetch's Fetcher[K,V] abstraction;
// profile/ensemble/vote payloads are decoded into small
// unexported wire structs rather than tagging the domain types directly,
// since domain.Input and decimal.Decimal already carry their own
// JSON-conversion rules (domain.FromNative, decimal's Unmarshaler) that a
// blanket json struct tag on domain.EnsembleLLM.BaseParams would bypass.
package definitionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/vector"
)

// Client issues requests against the definition service.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New builds a Client for baseURL/apiKey with a bounded-timeout default
// *http.Client, matching webhook_call.go's HTTPClient-abstraction shape.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("definitionclient: building request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("definitionclient: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("definitionclient: %s: reading body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("definitionclient: %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("definitionclient: %s: decoding response: %w", path, err)
	}
	return nil
}

// EnsembleFetcher resolves ftp.EnsembleFetcher/vector.EnsembleFetcher by
// content-addressed ensemble id.
func (c *Client) EnsembleFetcher() ftp.EnsembleFetcher {
	return fetcherFunc(func(ctx context.Context, id string) (domain.Ensemble, error) {
		var w wireEnsemble
		if err := c.get(ctx, "/ensembles/"+url.PathEscape(id), &w); err != nil {
			return domain.Ensemble{}, err
		}
		return w.toDomain(), nil
	})
}

// ProfileFetcher resolves ftp.ProfileFetcher by owner/repository/commit.
func (c *Client) ProfileFetcher() ftp.ProfileFetcher {
	return fetcherFunc(func(ctx context.Context, ref ftp.RemoteRef) (domain.Profile, error) {
		var w []wireProfileEntry
		if err := c.get(ctx, remotePath("/profiles", ref), &w); err != nil {
			return nil, err
		}
		out := make(domain.Profile, len(w))
		for i, e := range w {
			out[i] = domain.ProfileEntry{Weight: e.Weight, Invert: e.Invert}
		}
		return out, nil
	})
}

// RetryFetcher resolves vector.RetryFetcher: the prior votes attached to
// a vector-completion id (spec.md §4.3 step 3).
func (c *Client) RetryFetcher() vector.RetryFetcher {
	return fetcherFunc(func(ctx context.Context, vectorCompletionID string) ([]domain.Vote, error) {
		var w []wireVote
		if err := c.get(ctx, "/vector-completions/"+url.PathEscape(vectorCompletionID)+"/votes", &w); err != nil {
			return nil, err
		}
		out := make([]domain.Vote, len(w))
		for i, v := range w {
			out[i] = v.toDomain()
		}
		return out, nil
	})
}

func remotePath(prefix string, ref ftp.RemoteRef) string {
	p := fmt.Sprintf("%s/%s/%s", prefix, url.PathEscape(ref.Owner), url.PathEscape(ref.Repository))
	if ref.Commit != "" {
		p += "/" + url.PathEscape(ref.Commit)
	}
	return p
}

type fetcherFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

func (f fetcherFunc[K, V]) Fetch(ctx context.Context, key K) (V, error) { return f(ctx, key) }
