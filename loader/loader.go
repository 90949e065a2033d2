// Package loader reads profile and ensemble definitions from local
// JSON or YAML files, the file-backed counterpart to definitionclient's
// HTTP-backed fetchers — used for local fixtures, offline runs, and
// tests that would otherwise need a running definition service.
//
// Grounded on the teacher's loader package: DetectFormat mirrors
// loader/detect.go's isYAML extension check, and toJSON mirrors
// loader/load.go's "YAML -> map[string]any -> JSON bytes -> typed
// struct" conversion, generalized from workflow-file schema detection to
// this engine's ensemble/profile definitions.
package loader

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a definition file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// DetectFormat returns the format indicated by path's extension:
// ".yaml"/".yml" is YAML, anything else is JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// toJSON normalizes data to JSON bytes, converting from YAML first when
// path's extension calls for it.
func toJSON(data []byte, path string) ([]byte, error) {
	if DetectFormat(path) != FormatYAML {
		return data, nil
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("loader: parsing YAML %s: %w", path, err)
	}
	// yaml.v3 decodes mappings into map[string]any, which is
	// JSON-compatible, so re-marshaling as JSON is a clean round trip.
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("loader: converting %s to JSON: %w", path, err)
	}
	return out, nil
}
