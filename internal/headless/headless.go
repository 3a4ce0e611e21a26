// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package headless implements the JSON front-end, grounded on the
// reference implementation's hjson.h helpers (HeadlessJsonAddValue,
// HeadlessJsonAddRemoteness, HeadlessJsonAddMovesArray, ...): rather than
// building a json_object field-by-field through C helper calls, it builds
// one Go struct tree and marshals it with encoding/json, matching the
// teacher repo's own preference for the standard library's JSON
// encoder over a third-party one.
package headless

import (
	"encoding/json"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"

	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
)

// ChildReport describes one move's resulting value and remoteness, the Go
// equivalent of HeadlessJsonAddMovesArray's per-move element.
type ChildReport struct {
	Move            adapter.Move   `json:"move"`
	ChildValue      string         `json:"childValue"`
	ChildRemoteness value.Remoteness `json:"childRemoteness"`
}

// PositionReport is the full JSON document for one queried position,
// equivalent to the reference's combined HeadlessJsonAddValue /
// HeadlessJsonAddRemoteness / HeadlessJsonAddMovesArray output.
type PositionReport struct {
	Value      string         `json:"value"`
	Remoteness value.Remoteness `json:"remoteness"`
	Moves      []ChildReport  `json:"moves"`
}

// Query looks up tp's value and remoteness via probe, and the value and
// remoteness of every child reachable from tp, returning the combined
// report. Children are resolved through their own tier's probe via
// openChildProbe, since a child may live in a different tier than tp.
func Query(a *adapter.Adapter, probe tierdb.Probe, openChildProbe func(t tier.Tier) (tierdb.Probe, error), tp tier.TierPosition) (*PositionReport, error) {
	v, err := probe.Value(tp.Position)
	if err != nil {
		return nil, err
	}
	r, err := probe.Remoteness(tp.Position)
	if err != nil {
		return nil, err
	}

	report := &PositionReport{Value: v.String(), Remoteness: r}

	moves := a.GenerateMoves(tp)
	probes := make(map[tier.Tier]tierdb.Probe)
	defer func() {
		for _, p := range probes {
			p.Close()
		}
	}()

	for _, m := range moves {
		child := a.DoMove(tp, m)
		childCanon := a.Canonical(child)
		cp, ok := probes[childCanon.Tier]
		if !ok {
			cp, err = openChildProbe(childCanon.Tier)
			if err != nil {
				return nil, err
			}
			probes[childCanon.Tier] = cp
		}
		cv, err := cp.Value(childCanon.Position)
		if err != nil {
			return nil, err
		}
		cr, err := cp.Remoteness(childCanon.Position)
		if err != nil {
			return nil, err
		}
		report.Moves = append(report.Moves, ChildReport{
			Move:            m,
			ChildValue:      cv.String(),
			ChildRemoteness: cr,
		})
	}
	return report, nil
}

// Marshal renders r as indented JSON, matching the reference's
// human-readable headless output mode.
func Marshal(r *PositionReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
