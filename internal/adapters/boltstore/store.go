package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"go.etcd.io/bbolt"
)

const automationBucket = "automation"

// Store keeps automation records in a single BoltDB file, one JSON value per ship.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save overwrites the record stored for its ship.
func (s *Store) Save(ctx context.Context, record automation.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(record.ShipSymbol) == "" {
		return fmt.Errorf("ship symbol is required")
	}
	if record.Queue == nil {
		record.Queue = []automation.ActionStep{}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal automation record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(automationBucket))
		if bucket == nil {
			return fmt.Errorf("automation bucket is missing")
		}
		return bucket.Put([]byte(record.ShipSymbol), payload)
	})
}

// Load fetches the record of a ship, or automation.ErrRecordNotFound.
func (s *Store) Load(ctx context.Context, shipSymbol string) (*automation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record automation.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(automationBucket))
		if bucket == nil {
			return fmt.Errorf("automation bucket is missing")
		}
		payload := bucket.Get([]byte(shipSymbol))
		if payload == nil {
			return automation.ErrRecordNotFound
		}
		if err := json.Unmarshal(payload, &record); err != nil {
			return fmt.Errorf("unmarshal automation record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LoadAll returns every record in key (ship symbol) order.
func (s *Store) LoadAll(ctx context.Context) ([]automation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []automation.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(automationBucket))
		if bucket == nil {
			return fmt.Errorf("automation bucket is missing")
		}
		return bucket.ForEach(func(key, payload []byte) error {
			var record automation.Record
			if err := json.Unmarshal(payload, &record); err != nil {
				return fmt.Errorf("unmarshal automation record %s: %w", key, err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(automationBucket)); err != nil {
			return fmt.Errorf("create automation bucket: %w", err)
		}
		return nil
	})
}
