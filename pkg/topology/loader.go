package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a topology from a YAML cluster file. Missing names are filled
// in as node-<id> so log fields and file names stay stable.
func Load(path string) (Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topology{}, fmt.Errorf("read cluster file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML topology data.
func Parse(data []byte) (Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Topology{}, fmt.Errorf("parse cluster file: %w", err)
	}

	for i := range t.Nodes {
		if t.Nodes[i].Name == "" {
			t.Nodes[i].Name = fmt.Sprintf("node-%d", t.Nodes[i].ID)
		}
		if t.Nodes[i].Host == "" {
			t.Nodes[i].Host = "127.0.0.1"
		}
	}

	if err := t.Validate(); err != nil {
		return Topology{}, fmt.Errorf("invalid cluster file: %w", err)
	}
	return t, nil
}

// LoadOrDefault loads the cluster file if one is configured and exists,
// otherwise returns the default local topology.
func LoadOrDefault(path string) (Topology, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
