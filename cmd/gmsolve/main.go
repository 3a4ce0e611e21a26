// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Command gmsolve is the CLI entrypoint for a single solve run (spec.md
// §6), built with the teacher's own github.com/urfave/cli/v2.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/GamesCrafters/GamesmanExperiment/games/quixo"
	"github.com/GamesCrafters/GamesmanExperiment/games/tictactoe"
	"github.com/GamesCrafters/GamesmanExperiment/internal/adapter"
	"github.com/GamesCrafters/GamesmanExperiment/internal/config"
	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/manager"
	"github.com/GamesCrafters/GamesmanExperiment/internal/metrics"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tierdb"

	"github.com/prometheus/client_golang/prometheus"
)

// games is the built-in adapter registry; -game selects one by name. This
// flag supplements spec.md §6's enumerated surface rather than replacing
// any of it, since the core is generic over the adapter and something
// has to name which one a given run solves.
var games = map[string]func() *adapter.Adapter{
	"tictactoe": tictactoe.Adapter,
	"quixo":     quixo.Adapter,
}

func main() {
	app := &cli.App{
		Name:  "gmsolve",
		Usage: "solve a tiered two-player game to completion",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "game", Required: true, Usage: "registered game name (tictactoe, quixo)"},
			&cli.IntFlag{Name: "verbose", Value: 0},
			&cli.BoolFlag{Name: "force"},
			&cli.StringFlag{Name: "memlimit", Value: "2GB"},
			&cli.BoolFlag{Name: "compare"},
			&cli.StringFlag{Name: "output"},
			&cli.IntFlag{Name: "variant", Value: 0},
			&cli.StringFlag{Name: "datapath", Value: "./gmsolve-data"},
			&cli.StringFlag{Name: "refpath", Usage: "reference data directory consulted when -compare is set"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	newAdapter, ok := games[c.String("game")]
	if !ok {
		return cli.Exit(fmt.Sprintf("unknown game %q", c.String("game")), 1)
	}
	a := newAdapter()

	memlimit, err := config.ParseMemLimit(c.String("memlimit"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid -memlimit: %v", err), 1)
	}
	cfg := config.Solve{
		Verbose:  c.Int("verbose"),
		Force:    c.Bool("force"),
		MemLimit: memlimit,
		Compare:  c.Bool("compare"),
		Output:   c.String("output"),
		Variant:  c.Int("variant"),
		DataPath: c.String("datapath"),
	}

	logger := log.Root()
	logger.Info("starting solve", "game", c.String("game"), "verbose", cfg.Verbose)

	lockPath := cfg.DataPath + ".lock"
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return cli.Exit(fmt.Sprintf("acquiring data directory lock: %v", err), 1)
	}
	if !locked {
		return cli.Exit("another gmsolve process is already solving into this data directory", 1)
	}
	defer fileLock.Unlock()

	db, err := tierdb.OpenMDBXStore(afero.NewOsFs(), tierdb.MDBXOptions{
		Path:      cfg.DataPath,
		MaxTables: 4096,
		ChunkSize: 1024,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("opening database: %v", err), 1)
	}
	defer db.Close()

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	var reference tierdb.ReferenceDB
	if cfg.Compare {
		refPath := c.String("refpath")
		if refPath == "" {
			return cli.Exit("-compare requires -refpath", 1)
		}
		refDB, err := tierdb.OpenMDBXStore(afero.NewOsFs(), tierdb.MDBXOptions{
			Path:      refPath,
			MaxTables: 4096,
			ChunkSize: 1024,
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("opening reference database: %v", err), 1)
		}
		defer refDB.Close()
		reference = refDB
	}

	m, err := manager.New(manager.Options{
		DB:        db,
		Adapter:   a,
		Force:     cfg.Force,
		Logger:    logger,
		Metrics:   reg,
		Reference: reference,
		MemLimit:  cfg.MemLimit,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("constructing manager: %v", err), 1)
	}

	if err := m.Run(context.Background()); err != nil {
		kind, _ := gamesmanerr.KindOf(err)
		logger.Error("solve failed", "kind", kind, "err", err)
		return cli.Exit(err.Error(), 1)
	}
	logger.Info("solve complete")
	return nil
}
