package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// Bucket keys
var (
	bucketFileMaps = []byte("file_maps")
)

// boltRecord is the value stored under each path.
type boltRecord struct {
	Fingerprint string          `json:"fingerprint"`
	Language    string          `json:"language"`
	Degraded    bool            `json:"degraded,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Payload     json.RawMessage `json:"payload"`
}

// BoltStore keeps one JSON record per path in a single bucket. Writes are
// transactional, so a crash mid-write cannot corrupt committed maps.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFileMaps)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns the stored map for path if its fingerprint matches.
func (s *BoltStore) Get(ctx context.Context, path, fingerprint string) (*symbols.FileMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := tx.Bucket(bucketFileMaps).Get([]byte(path)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read map for %s: %w", path, err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	var rec boltRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record for %s: %w", path, err)
	}
	if rec.Fingerprint != fingerprint {
		return nil, ErrNotFound
	}
	return DecodeMap(rec.Payload)
}

// Put replaces the record for m.FileID.
func (s *BoltStore) Put(ctx context.Context, m *symbols.FileMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMap(m)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(boltRecord{
		Fingerprint: m.Fingerprint,
		Language:    m.Language,
		Degraded:    m.Degraded,
		UpdatedAt:   time.Now().UTC(),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", m.FileID, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFileMaps).Put([]byte(m.FileID), raw)
	})
}

// Delete removes the record for path.
func (s *BoltStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFileMaps).Delete([]byte(path))
	})
}

// Paths lists every stored path. bbolt keeps keys sorted.
func (s *BoltStore) Paths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var paths []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFileMaps).ForEach(func(k, v []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	return paths, err
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
