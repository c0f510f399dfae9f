package boltdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ark-network/notewallet/internal/core/ports"
	"go.etcd.io/bbolt"
)

const boltDbFile = "snapshots.bolt.db"

var bucketSnapshots = []byte("snapshots")

type snapshotRepository struct {
	db *bbolt.DB
}

// NewSnapshotRepository expects the base directory of the db file.
func NewSnapshotRepository(config ...interface{}) (ports.SnapshotStore, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok || len(baseDir) <= 0 {
		return nil, fmt.Errorf("invalid base directory")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bbolt.Open(
		filepath.Join(baseDir, boltDbFile), 0600,
		&bbolt.Options{Timeout: time.Second},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	}); err != nil {
		// nolint:all
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &snapshotRepository{db}, nil
}

func (r *snapshotRepository) Get(
	_ context.Context, address string,
) ([]byte, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketSnapshots).Get([]byte(address))
		if buf != nil {
			// Values are only valid for the life of the tx.
			data = append([]byte{}, buf...)
		}
		return nil
	})
	return data, err
}

func (r *snapshotRepository) Save(
	_ context.Context, address string, data []byte,
) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(address), data)
	})
}

func (r *snapshotRepository) Accounts(_ context.Context) ([]string, error) {
	addresses := make([]string, 0)
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, _ []byte) error {
			addresses = append(addresses, string(k))
			return nil
		})
	})
	return addresses, err
}

func (r *snapshotRepository) Close() {
	// nolint:all
	r.db.Close()
}
