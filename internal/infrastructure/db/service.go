package db

import (
	"fmt"

	"github.com/ark-network/notewallet/internal/core/ports"
	badgerdb "github.com/ark-network/notewallet/internal/infrastructure/db/badger"
	boltdb "github.com/ark-network/notewallet/internal/infrastructure/db/bolt"
	filedb "github.com/ark-network/notewallet/internal/infrastructure/db/file"
	inmemorydb "github.com/ark-network/notewallet/internal/infrastructure/db/inmemory"
	sqlitedb "github.com/ark-network/notewallet/internal/infrastructure/db/sqlite"
)

const (
	BadgerStore   = "badger"
	BoltStore     = "bolt"
	SqliteStore   = "sqlite"
	FileStore     = "file"
	InMemoryStore = "inmemory"
)

var snapshotStoreTypes = map[string]func(...interface{}) (ports.SnapshotStore, error){
	BadgerStore:   badgerdb.NewSnapshotRepository,
	BoltStore:     boltdb.NewSnapshotRepository,
	SqliteStore:   sqlitedb.NewSnapshotRepository,
	FileStore:     filedb.NewSnapshotRepository,
	InMemoryStore: inmemorydb.NewSnapshotRepository,
}

type ServiceConfig struct {
	StoreType   string
	StoreConfig []interface{}
}

func NewSnapshotStore(config ServiceConfig) (ports.SnapshotStore, error) {
	factory, ok := snapshotStoreTypes[config.StoreType]
	if !ok {
		return nil, fmt.Errorf("invalid snapshot store type: %s", config.StoreType)
	}

	store, err := factory(config.StoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}
	return store, nil
}

func SupportedStoreTypes() []string {
	return []string{BadgerStore, BoltStore, SqliteStore, FileStore, InMemoryStore}
}
