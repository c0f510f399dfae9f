package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ark-network/notewallet/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const snapshotStoreDir = "snapshots"

type snapshotRecord struct {
	Address   string
	Data      []byte
	UpdatedAt int64
}

type snapshotRepository struct {
	store *badgerhold.Store
	done  chan struct{}
}

// NewSnapshotRepository expects an optional base directory (in-memory store
// if empty) and an optional badger.Logger.
func NewSnapshotRepository(config ...interface{}) (ports.SnapshotStore, error) {
	if len(config) > 2 {
		return nil, fmt.Errorf("invalid config")
	}
	var (
		baseDir string
		logger  badger.Logger
		ok      bool
	)
	if len(config) > 0 {
		baseDir, ok = config[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}
	}
	if len(config) > 1 && config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, snapshotStoreDir)
	}
	done := make(chan struct{})
	store, err := createDB(dir, logger, done)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %s", err)
	}

	return &snapshotRepository{store, done}, nil
}

func (r *snapshotRepository) Get(
	_ context.Context, address string,
) ([]byte, error) {
	var record snapshotRecord
	if err := r.store.Get(address, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.Data, nil
}

func (r *snapshotRepository) Save(
	_ context.Context, address string, data []byte,
) error {
	record := snapshotRecord{
		Address:   address,
		Data:      data,
		UpdatedAt: time.Now().Unix(),
	}
	return r.store.Upsert(address, &record)
}

func (r *snapshotRepository) Accounts(_ context.Context) ([]string, error) {
	var records []snapshotRecord
	if err := r.store.Find(&records, nil); err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(records))
	for _, record := range records {
		addresses = append(addresses, record.Address)
	}
	sort.Strings(addresses)
	return addresses, nil
}

func (r *snapshotRepository) Close() {
	close(r.done)
	// nolint:all
	r.store.Close()
}
