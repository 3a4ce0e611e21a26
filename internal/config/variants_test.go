package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	content := "variants:\n  - name: standard\n    variant: 0\npeers:\n  - name: worker-a\n    address: 10.0.0.2:4242\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	variant, ok := reg.VariantByName("standard")
	if !ok || variant != 0 {
		t.Errorf("VariantByName(standard) = (%d, %v), want (0, true)", variant, ok)
	}
	if len(reg.Peers) != 1 || reg.Peers[0].Address != "10.0.0.2:4242" {
		t.Errorf("unexpected peers: %+v", reg.Peers)
	}
}
