package channel

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `
channels:
  - id: app:command
    direction: outbound
  - id: app:notice
    direction: inbound
`

func TestParseManifest(t *testing.T) {
	set, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}

	if set.Len() != 2 {
		t.Fatalf("expected 2 channels, got %d", set.Len())
	}

	if _, err := set.Require("app:command", Outbound); err != nil {
		t.Errorf("app:command should be outbound: %v", err)
	}
	if _, err := set.Require("app:notice", Inbound); err != nil {
		t.Errorf("app:notice should be inbound: %v", err)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{
			name: "Unknown direction",
			data: "channels:\n  - id: app:command\n    direction: sideways\n",
		},
		{
			name: "Duplicate identifier",
			data: "channels:\n  - id: a\n    direction: inbound\n  - id: a\n    direction: inbound\n",
		},
		{
			name: "No channels",
			data: "channels: []\n",
		},
		{
			name: "Malformed YAML",
			data: "channels: [",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tc.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	set, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 channels, got %d", set.Len())
	}

	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
