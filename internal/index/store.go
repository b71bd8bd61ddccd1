// Package index maintains the off-ledger read view of the marketplace,
// backed by SQLite. The ledger itself exposes only per-key lookups; gallery
// clients need denormalized range reads ("all minted assets", "all escrows on
// an asset"), so the indexer consumes committed market events and keeps this
// store current. The store is a cache: it can always be rebuilt from ledger
// state, so index failures are logged, never fatal to consensus.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nftmarket.mini/nfm/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile    = "market.db"
	maxBusyTimeoutMs = 5000
)

// Store persists the denormalized asset and escrow views.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	file    string
	updates chan struct{}
}

// NewStore opens (or creates) the index database at filePath.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{
		file:    absPath,
		updates: make(chan struct{}, 1),
	}

	if err := s.openDB(); err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}

// Updates returns a channel that receives a value whenever the view changes.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

func (s *Store) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(s.file)))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS assets (
	address      TEXT PRIMARY KEY,
	creator      TEXT NOT NULL,
	metadata_ref TEXT NOT NULL,
	owner        TEXT NOT NULL,
	listing      TEXT NOT NULL,
	one_of_one   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS escrows (
	address  TEXT PRIMARY KEY,
	asset    TEXT NOT NULL,
	bidder   TEXT NOT NULL,
	amount   INTEGER NOT NULL,
	sequence INTEGER NOT NULL,
	status   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_escrows_asset ON escrows(asset);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertAsset writes or replaces the view row for an asset.
func (s *Store) UpsertAsset(a ledger.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oneOfOne := 0
	if a.OneOfOne {
		oneOfOne = 1
	}
	_, err := s.db.Exec(`
INSERT INTO assets (address, creator, metadata_ref, owner, listing, one_of_one)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(address) DO UPDATE SET owner=excluded.owner, listing=excluded.listing`,
		a.Address, a.Creator, a.MetadataRef, a.Owner, string(a.Listing), oneOfOne)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	s.notify()
	return nil
}

// UpsertEscrow writes or replaces the view row for an escrow.
func (s *Store) UpsertEscrow(e ledger.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
INSERT INTO escrows (address, asset, bidder, amount, sequence, status)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(address) DO UPDATE SET amount=excluded.amount, status=excluded.status`,
		e.Address, e.Asset, e.Bidder, e.Amount, e.Sequence, string(e.Status))
	if err != nil {
		return fmt.Errorf("upsert escrow: %w", err)
	}
	s.notify()
	return nil
}

// DeleteEscrow removes an escrow row after its record is closed on-ledger.
func (s *Store) DeleteEscrow(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM escrows WHERE address = ?`, addr); err != nil {
		return fmt.Errorf("delete escrow: %w", err)
	}
	s.notify()
	return nil
}

// Assets returns all indexed assets, newest listing changes included.
func (s *Store) Assets() ([]ledger.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT address, creator, metadata_ref, owner, listing, one_of_one FROM assets ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []ledger.Asset
	for rows.Next() {
		var a ledger.Asset
		var listing string
		var oneOfOne int
		if err := rows.Scan(&a.Address, &a.Creator, &a.MetadataRef, &a.Owner, &listing, &oneOfOne); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Listing = ledger.ListingState(listing)
		a.OneOfOne = oneOfOne != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// Asset returns one indexed asset by address.
func (s *Store) Asset(addr string) (ledger.Asset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a ledger.Asset
	var listing string
	var oneOfOne int
	err := s.db.QueryRow(`SELECT address, creator, metadata_ref, owner, listing, one_of_one FROM assets WHERE address = ?`, addr).
		Scan(&a.Address, &a.Creator, &a.MetadataRef, &a.Owner, &listing, &oneOfOne)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Asset{}, false, nil
	}
	if err != nil {
		return ledger.Asset{}, false, fmt.Errorf("query asset: %w", err)
	}
	a.Listing = ledger.ListingState(listing)
	a.OneOfOne = oneOfOne != 0
	return a, true, nil
}

// EscrowsForAsset returns all indexed escrows on an asset, oldest first.
func (s *Store) EscrowsForAsset(assetAddr string) ([]ledger.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT address, asset, bidder, amount, sequence, status FROM escrows WHERE asset = ? ORDER BY sequence`, assetAddr)
	if err != nil {
		return nil, fmt.Errorf("query escrows: %w", err)
	}
	defer rows.Close()

	var out []ledger.Escrow
	for rows.Next() {
		var e ledger.Escrow
		var status string
		if err := rows.Scan(&e.Address, &e.Asset, &e.Bidder, &e.Amount, &e.Sequence, &status); err != nil {
			return nil, fmt.Errorf("scan escrow: %w", err)
		}
		e.Status = ledger.EscrowStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
