package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"ragpipe/internal/domain"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
	keyDimension  = []byte("dimension")
)

// SnapshotStore persists the full (id, vector, fragment) collection of
// a vector index in a BoltDB file. Records are keyed by big-endian id,
// so iteration order equals insertion order and a round trip preserves
// the dimension, record order, and every field exactly.
type SnapshotStore struct {
	db *bbolt.DB
}

type storedRecord struct {
	Vector    []float32 `json:"v"`
	Text      string    `json:"text"`
	SourceID  string    `json:"source_id"`
	Offset    int       `json:"offset"`
	HardSplit bool      `json:"hard_split,omitempty"`
}

// Open opens or creates a snapshot database at path.
func Open(path string) (*SnapshotStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db}, nil
}

// Save replaces the stored snapshot with the given records.
func (s *SnapshotStore) Save(records []domain.VectorRecord, dimension int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketRecords)
		if err != nil {
			return err
		}

		for _, rec := range records {
			data, err := json.Marshal(storedRecord{
				Vector:    rec.Vector,
				Text:      rec.Fragment.Text,
				SourceID:  rec.Fragment.SourceID,
				Offset:    rec.Fragment.Offset,
				HardSplit: rec.Fragment.HardSplit,
			})
			if err != nil {
				return err
			}
			if err := b.Put(idKey(rec.ID), data); err != nil {
				return err
			}
		}

		dim := make([]byte, 8)
		binary.BigEndian.PutUint64(dim, uint64(dimension))
		return tx.Bucket(bucketMeta).Put(keyDimension, dim)
	})
}

// Load reads the stored snapshot back in insertion order. An empty
// database yields no records and dimension 0.
func (s *SnapshotStore) Load() ([]domain.VectorRecord, int, error) {
	var records []domain.VectorRecord
	dimension := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		if dim := tx.Bucket(bucketMeta).Get(keyDimension); dim != nil {
			dimension = int(binary.BigEndian.Uint64(dim))
		}

		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt record %d: %w", idFromKey(k), err)
			}
			records = append(records, domain.VectorRecord{
				ID:     idFromKey(k),
				Vector: stored.Vector,
				Fragment: domain.Fragment{
					Text:      stored.Text,
					SourceID:  stored.SourceID,
					Offset:    stored.Offset,
					HardSplit: stored.HardSplit,
				},
			})
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	return records, dimension, nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func idKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func idFromKey(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}
