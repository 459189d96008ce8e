package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sma-monitor/dashboard/internal/models"
)

// DefaultEndpointName is the agent the bundled clients talk to.
const DefaultEndpointName = "SMA-Agent"

const defaultIconURL = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMjQiIGhlaWdodD0iMjQiIHZpZXdCb3g9IjAgMCAyNCAyNCIgZmlsbD0ibm9uZSIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj4KPHBhdGggZD0iTTEyIDJMMTMuMDkgOC4yNkwyMCAxMkwxMy4wOSAxNS43NEwxMiAyMkwxMC45MSAxNS43NEw0IDEyTDEwLjkxIDguMjZMMTIgMloiIGZpbGw9IiNEQzI2MjYiLz4KPC9zdmc+"

// EndpointTable maps endpoint names to descriptors. It is built once at
// startup and only read afterwards.
type EndpointTable map[string]models.Endpoint

// Lookup returns the endpoint registered under name.
func (t EndpointTable) Lookup(name string) (models.Endpoint, bool) {
	ep, ok := t[name]
	return ep, ok
}

// DefaultEndpoints returns the built-in single-agent table.
func DefaultEndpoints(backendURL string) EndpointTable {
	return EndpointTable{
		DefaultEndpointName: {
			Name:    DefaultEndpointName,
			Type:    "custom",
			BaseURL: backendURL,
			IconURL: defaultIconURL,
		},
	}
}

type endpointsFile struct {
	Endpoints []models.Endpoint `yaml:"endpoints"`
}

// ParseEndpoints reads an endpoint table from YAML. Entries without a base URL
// inherit backendURL.
func ParseEndpoints(r io.Reader, backendURL string) (EndpointTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading endpoints: %w", err)
	}

	var file endpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing endpoints: %w", err)
	}
	if len(file.Endpoints) == 0 {
		return nil, fmt.Errorf("endpoints file defines no endpoints")
	}

	table := make(EndpointTable, len(file.Endpoints))
	for i, ep := range file.Endpoints {
		if ep.Name == "" {
			return nil, fmt.Errorf("endpoint %d has no name", i)
		}
		if _, dup := table[ep.Name]; dup {
			return nil, fmt.Errorf("duplicate endpoint %q", ep.Name)
		}
		if ep.BaseURL == "" {
			ep.BaseURL = backendURL
		}
		if ep.Type == "" {
			ep.Type = "custom"
		}
		table[ep.Name] = ep
	}
	return table, nil
}

// LoadEndpoints returns the table for cfg: the file named by EndpointsFile, or
// the built-in default.
func LoadEndpoints(cfg *AppConfig) (EndpointTable, error) {
	if cfg.EndpointsFile == "" {
		return DefaultEndpoints(cfg.GetBackendURL()), nil
	}

	f, err := os.Open(cfg.EndpointsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open endpoints file: %w", err)
	}
	defer f.Close()

	return ParseEndpoints(f, cfg.GetBackendURL())
}
