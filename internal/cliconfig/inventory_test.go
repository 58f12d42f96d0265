package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

const tomlInventory = `
[[device]]
id = "node-1"
endpoint = "http://10.0.0.1:8181"

[[device]]
id = "node-2"
endpoint = "http://10.0.0.2:8181"
`

const yamlInventory = `
device:
  - id: node-1
    endpoint: http://10.0.0.1:8181
  - id: node-2
    endpoint: http://10.0.0.2:8181
`

func TestLoadInventory(t *testing.T) {
	want := []device.Info{
		{ID: "node-1", Endpoint: "http://10.0.0.1:8181"},
		{ID: "node-2", Endpoint: "http://10.0.0.2:8181"},
	}

	tests := []struct {
		file    string
		content string
	}{
		{"devices.toml", tomlInventory},
		{"devices.yaml", yamlInventory},
		{"devices.YML", yamlInventory},
		{"devices", tomlInventory},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := LoadInventory(path)
			if err != nil {
				t.Fatalf("LoadInventory() error = %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("got %d devices, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("device %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestParseInventory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ext     string
		data    string
		wantErr string
	}{
		{
			name:    "missing endpoint",
			ext:     ".toml",
			data:    "[[device]]\nid = \"node-1\"\n",
			wantErr: "endpoint is required",
		},
		{
			name:    "duplicate id",
			ext:     ".yaml",
			data:    "device:\n  - id: a\n    endpoint: \"http://x\"\n  - id: a\n    endpoint: \"http://y\"\n",
			wantErr: "duplicate",
		},
		{
			name:    "malformed toml",
			ext:     ".toml",
			data:    "[[device]\n",
			wantErr: "parse toml",
		},
		{
			name:    "malformed yaml",
			ext:     ".yml",
			data:    "device: [\n",
			wantErr: "parse yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInventory([]byte(tt.data), tt.ext)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseInventory() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseInventory_Empty(t *testing.T) {
	got, err := ParseInventory(nil, ".toml")
	if err != nil {
		t.Fatalf("ParseInventory() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d devices, want 0", len(got))
	}
}
