// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package tierdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/spf13/afero"

	"github.com/GamesCrafters/GamesmanExperiment/internal/safemath"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// metaTable holds one key per tier, the tier's record-table name -> one
// status byte; each tier's records live in their own table of that name.
// Mirrors erigon-lib/kv/tables.go's convention of a small number of named,
// documented tables rather than one table per logical concept exploding
// into hundreds of top-level buckets.
const (
	metaTable    = "TierMeta"
	recordPrefix = "Tier" // per-tier table name is recordPrefix + tier name
)

// MDBXStore is the production tier database: one mdbx environment per data
// directory, one table per tier (named recordPrefix + tier.FormatName(t);
// adapter.TierName is not consulted), chunked writes on Flush. Grounded on the teacher's
// own github.com/erigontech/mdbx-go dependency — the same storage engine
// erigon-lib/kv wraps for all of Erigon's staged sync state.
type MDBXStore struct {
	env       *mdbx.Env
	chunkSize int

	mu     sync.Mutex
	loaded map[tier.Tier]*mdbxWritable // cached loaded tiers for repeated probing
	names  map[tier.Tier]string
}

// MDBXOptions configures a new store.
type MDBXOptions struct {
	// Path is the data directory; the environment file lives inside it.
	Path string
	// MaxTables bounds the number of named tables (tiers) the environment
	// can hold open simultaneously; mdbx requires this up front.
	MaxTables int
	// ChunkSize batches Flush's writes into transactions of this many
	// positions, matching the reference implementation's
	// current_db_chunk_size.
	ChunkSize int
}

// OpenMDBXStore creates the data directory if needed and opens (or
// creates) the mdbx environment inside it.
func OpenMDBXStore(fs afero.Fs, opts MDBXOptions) (*MDBXStore, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1024
	}
	if opts.MaxTables <= 0 {
		opts.MaxTables = 256
	}
	if err := fs.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("tierdb: creating data directory: %w", err)
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("tierdb: mdbx.NewEnv: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(opts.MaxTables)); err != nil {
		return nil, fmt.Errorf("tierdb: SetOption(OptMaxDB): %w", err)
	}
	const defaultGeometrySize = 1 << 34 // 16GiB upper bound; mdbx grows lazily.
	if err := env.SetGeometry(-1, -1, defaultGeometrySize, -1, -1, -1); err != nil {
		return nil, fmt.Errorf("tierdb: SetGeometry: %w", err)
	}
	dbPath := filepath.Join(opts.Path, "tiers.mdbx")
	if err := env.Open(dbPath, mdbx.NoSubdir|mdbx.Coalesce|mdbx.LifoReclaim, 0o644); err != nil {
		return nil, fmt.Errorf("tierdb: opening %s: %w", dbPath, err)
	}

	return &MDBXStore{
		env:       env,
		chunkSize: opts.ChunkSize,
		loaded:    make(map[tier.Tier]*mdbxWritable),
		names:     make(map[tier.Tier]string),
	}, nil
}

func (s *MDBXStore) tableName(t tier.Tier) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.names[t]; ok {
		return name
	}
	name := recordPrefix + tier.FormatName(t)
	s.names[t] = name
	return name
}

// mdbxWritable accumulates records in memory during the solve and is
// written out in chunkSize-sized transactions by Flush, matching the
// reference implementation's chunked writes.
type mdbxWritable struct {
	values     []value.Value
	remoteness []value.Remoteness
}

func (w *mdbxWritable) SetValue(p tier.Position, v value.Value) { w.values[p] = v }
func (w *mdbxWritable) SetRemoteness(p tier.Position, r value.Remoteness) {
	w.remoteness[p] = r
}
func (w *mdbxWritable) Size() int64 { return int64(len(w.values)) }

func (s *MDBXStore) CreateSolvingTier(_ context.Context, _ tier.Tier, size int64) (WritableTier, error) {
	w := &mdbxWritable{
		values:     make([]value.Value, size),
		remoteness: make([]value.Remoteness, size),
	}
	for i := range w.remoteness {
		w.remoteness[i] = value.NoRemoteness
	}
	return w, nil
}

func (s *MDBXStore) Status(_ context.Context, t tier.Tier) (tier.Status, error) {
	status := tier.StatusMissing
	err := s.env.View(func(txn *mdbx.Txn) error {
		dbi, err := txn.OpenDBISimple(metaTable, mdbx.Create)
		if err != nil {
			return err
		}
		val, err := txn.Get(dbi, []byte(s.tableName(t)))
		if mdbx.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(val) == 1 {
			status = tier.Status(val[0])
		}
		return nil
	})
	if err != nil {
		return tier.StatusCheckError, fmt.Errorf("tierdb: Status(%d): %w", t, err)
	}
	return status, nil
}

func (s *MDBXStore) Flush(_ context.Context, t tier.Tier, w WritableTier) error {
	mw, ok := w.(*mdbxWritable)
	if !ok {
		return fmt.Errorf("tierdb: MDBXStore.Flush given foreign WritableTier")
	}
	name := s.tableName(t)
	size := int(mw.Size())
	numChunks := safemath.CeilDiv(size, s.chunkSize)

	for start := 0; start < size; start += s.chunkSize {
		end := start + s.chunkSize
		if end > size {
			end = size
		}
		err := s.env.Update(func(txn *mdbx.Txn) error {
			dbi, err := txn.OpenDBISimple(name, mdbx.Create)
			if err != nil {
				return err
			}
			var buf []byte
			for pos := start; pos < end; pos++ {
				key := encodeKey(tier.Position(pos))
				buf = buf[:0]
				buf = encodeRecord(buf, mw.values[pos], mw.remoteness[pos])
				if err := txn.Put(dbi, key, buf, 0); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("tierdb: Flush(%d) chunk [%d,%d) of %d: %w", t, start, end, numChunks, err)
		}
	}

	return s.env.Update(func(txn *mdbx.Txn) error {
		dbi, err := txn.OpenDBISimple(metaTable, mdbx.Create)
		if err != nil {
			return err
		}
		return txn.Put(dbi, []byte(name), []byte{byte(tier.StatusSolved)}, 0)
	})
}

func (s *MDBXStore) Unload(t tier.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loaded, t)
	return nil
}

func (s *MDBXStore) Close() error {
	s.env.Close()
	return nil
}

func encodeKey(p tier.Position) []byte {
	// Big-endian so mdbx's default lexicographic ordering matches
	// ascending position order, which keeps sequential probes (the
	// worker's Step1/Step3 scans) cursor-friendly.
	key := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		key[i] = byte(p)
		p >>= 8
	}
	return key
}

// mdbxProbe holds one read transaction open across many probes of a
// single tier, amortizing transaction setup cost across the worker's
// Step1 child-tier scan.
type mdbxProbe struct {
	txn *mdbx.Txn
	dbi mdbx.DBI
}

func (s *MDBXStore) NewProbe(_ context.Context, t tier.Tier) (Probe, error) {
	status, err := s.Status(context.Background(), t)
	if err != nil {
		return nil, err
	}
	if status != tier.StatusSolved {
		return nil, fmt.Errorf("tierdb: tier %d not solved (status %s)", t, status)
	}
	txn, err := s.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, fmt.Errorf("tierdb: BeginTxn: %w", err)
	}
	dbi, err := txn.OpenDBISimple(s.tableName(t), 0)
	if err != nil {
		txn.Abort()
		return nil, fmt.Errorf("tierdb: OpenDBISimple(%d): %w", t, err)
	}
	return &mdbxProbe{txn: txn, dbi: dbi}, nil
}

func (p *mdbxProbe) get(pos tier.Position) (value.Value, value.Remoteness, error) {
	buf, err := p.txn.Get(p.dbi, encodeKey(pos))
	if mdbx.IsNotFound(err) {
		return value.Undecided, value.NoRemoteness, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return decodeRecord(buf)
}

func (p *mdbxProbe) Value(pos tier.Position) (value.Value, error) {
	v, _, err := p.get(pos)
	return v, err
}

func (p *mdbxProbe) Remoteness(pos tier.Position) (value.Remoteness, error) {
	_, r, err := p.get(pos)
	return r, err
}

func (p *mdbxProbe) Close() error {
	p.txn.Abort()
	return nil
}
