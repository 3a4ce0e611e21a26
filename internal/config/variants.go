// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// VariantDef names one playable configuration of a game: its display
// name and the game-specific options index (spec.md's "variant index")
// it corresponds to.
type VariantDef struct {
	Name    string `yaml:"name"`
	Variant int    `yaml:"variant"`
}

// CoordinatorPeer is one remote worker a coordinator may dispatch tiers
// to.
type CoordinatorPeer struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Registry is the on-disk configuration of a game's variants and, for a
// distributed run, the coordinator's peer list.
type Registry struct {
	Variants []VariantDef      `yaml:"variants"`
	Peers    []CoordinatorPeer `yaml:"peers"`
}

// LoadRegistry reads and parses a YAML registry file such as:
//
//	variants:
//	  - name: standard
//	    variant: 0
//	peers:
//	  - name: worker-a
//	    address: 10.0.0.2:4242
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// VariantByName returns the variant index registered under name, or ok is
// false if no such variant is registered.
func (r *Registry) VariantByName(name string) (int, bool) {
	for _, v := range r.Variants {
		if v.Name == name {
			return v.Variant, true
		}
	}
	return 0, false
}
