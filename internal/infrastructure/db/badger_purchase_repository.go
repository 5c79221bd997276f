package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

const (
	purchaseKeyPrefix   = "purchase:"
	purchaseSequenceKey = "seq:purchase"
	// sequenceBandwidth is how many ids are leased from disk at once.
	sequenceBandwidth = 100
)

// OpenBadger opens (creating if needed) a Badger database at path
func OpenBadger(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// BadgerPurchaseRepository implements the purchase repository interface using BadgerDB
type BadgerPurchaseRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerPurchaseRepository creates a new BadgerDB purchase repository.
// Ids come from a Badger sequence, which is safe for concurrent use.
func NewBadgerPurchaseRepository(db *badger.DB) (*BadgerPurchaseRepository, error) {
	seq, err := db.GetSequence([]byte(purchaseSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}
	return &BadgerPurchaseRepository{db: db, seq: seq}, nil
}

// Close releases unused leased ids. The database itself is owned by the caller.
func (r *BadgerPurchaseRepository) Close() error {
	return r.seq.Release()
}

func purchaseKey(id int64) []byte {
	return []byte(purchaseKeyPrefix + strconv.FormatInt(id, 10))
}

// Save assigns the next id and stores the record
func (r *BadgerPurchaseRepository) Save(ctx context.Context, record *entity.PurchaseRecord) (*entity.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next, err := r.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate purchase id: %w", err)
	}

	stored := *record
	// Sequences start at zero; ids start at one.
	stored.ID = int64(next) + 1

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal purchase: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(purchaseKey(stored.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store purchase: %w", err)
	}

	return &stored, nil
}

// FindByID retrieves a purchase by its identifier
func (r *BadgerPurchaseRepository) FindByID(ctx context.Context, id int64) (*entity.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record entity.PurchaseRecord

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(purchaseKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %d", entity.ErrPurchaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	return &record, nil
}
