package channel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestEntry is one channel declaration in a YAML manifest.
type manifestEntry struct {
	ID        string `yaml:"id"`
	Direction string `yaml:"direction"`
}

// manifest is the YAML document shape:
//
//	channels:
//	  - id: app:command
//	    direction: outbound
//	  - id: app:notice
//	    direction: inbound
type manifest struct {
	Channels []manifestEntry `yaml:"channels"`
}

// ParseManifest builds a Set from YAML manifest bytes.
func ParseManifest(data []byte) (*Set, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse channel manifest: %w", err)
	}

	if len(m.Channels) == 0 {
		return nil, fmt.Errorf("channel manifest declares no channels")
	}

	decls := make([]Decl, 0, len(m.Channels))
	for _, entry := range m.Channels {
		var direction Direction
		switch entry.Direction {
		case "outbound":
			direction = Outbound
		case "inbound":
			direction = Inbound
		default:
			return nil, fmt.Errorf("channel %q has unknown direction %q", entry.ID, entry.Direction)
		}
		decls = append(decls, Decl{ID: ID(entry.ID), Direction: direction})
	}

	return NewSet(decls...)
}

// LoadManifest reads and parses a YAML channel manifest from disk.
func LoadManifest(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel manifest: %w", err)
	}
	return ParseManifest(data)
}
