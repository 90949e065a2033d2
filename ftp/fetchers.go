package ftp

import (
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/fetch"
)

// RemoteRef is the key a Remote-located FunctionParam/ProfileParam fetch
// is keyed by: owner/repository/commit (commit empty means "latest").
// Remote ensembles are keyed by their string id instead.
type RemoteRef struct {
	Owner      string
	Repository string
	Commit     string
}

// FunctionFetcher resolves a RemoteRef to its FunctionDefinition.
type FunctionFetcher = fetch.Fetcher[RemoteRef, domain.FunctionDefinition]

// ProfileFetcher resolves a RemoteRef to its Profile.
type ProfileFetcher = fetch.Fetcher[RemoteRef, domain.Profile]

// EnsembleFetcher resolves an ensemble id to its validated Ensemble.
type EnsembleFetcher = fetch.Fetcher[string, domain.Ensemble]

// Fetchers bundles every remote-resolution dependency Resolve needs.
type Fetchers struct {
	Function FunctionFetcher
	Profile  ProfileFetcher
	Ensemble EnsembleFetcher
}
