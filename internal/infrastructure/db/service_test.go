package db_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ark-network/notewallet/internal/core/ports"
	"github.com/ark-network/notewallet/internal/infrastructure/db"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestNewSnapshotStore(t *testing.T) {
	_, err := db.NewSnapshotStore(db.ServiceConfig{StoreType: "postgres"})
	require.EqualError(t, err, "invalid snapshot store type: postgres")

	_, err = db.NewSnapshotStore(db.ServiceConfig{StoreType: db.BoltStore})
	require.Error(t, err)

	_, err = db.NewSnapshotStore(db.ServiceConfig{
		StoreType: db.FileStore, StoreConfig: []interface{}{42},
	})
	require.Error(t, err)
}

func TestSnapshotStores(t *testing.T) {
	fixtures := []struct {
		name   string
		config func(dir string) db.ServiceConfig
	}{
		{
			name: "inmemory",
			config: func(string) db.ServiceConfig {
				return db.ServiceConfig{StoreType: db.InMemoryStore}
			},
		},
		{
			name: "badger in memory",
			config: func(string) db.ServiceConfig {
				return db.ServiceConfig{
					StoreType: db.BadgerStore, StoreConfig: []interface{}{"", nil},
				}
			},
		},
		{
			name: "badger",
			config: func(dir string) db.ServiceConfig {
				return db.ServiceConfig{
					StoreType: db.BadgerStore, StoreConfig: []interface{}{dir},
				}
			},
		},
		{
			name: "bolt",
			config: func(dir string) db.ServiceConfig {
				return db.ServiceConfig{
					StoreType: db.BoltStore, StoreConfig: []interface{}{dir},
				}
			},
		},
		{
			name: "sqlite",
			config: func(dir string) db.ServiceConfig {
				return db.ServiceConfig{
					StoreType: db.SqliteStore, StoreConfig: []interface{}{dir},
				}
			},
		},
		{
			name: "file",
			config: func(dir string) db.ServiceConfig {
				return db.ServiceConfig{
					StoreType: db.FileStore, StoreConfig: []interface{}{dir},
				}
			},
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			store, err := db.NewSnapshotStore(f.config(t.TempDir()))
			require.NoError(t, err)
			require.NotNil(t, store)
			defer store.Close()

			testSnapshotStore(t, store)
		})
	}
}

func testSnapshotStore(t *testing.T, store ports.SnapshotStore) {
	t.Run("get missing", func(t *testing.T) {
		data, err := store.Get(ctx, "addr1")
		require.NoError(t, err)
		require.Nil(t, data)

		accounts, err := store.Accounts(ctx)
		require.NoError(t, err)
		require.Empty(t, accounts)
	})

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "addr1", []byte("first")))
		require.NoError(t, store.Save(ctx, "addr2", []byte("other")))

		data, err := store.Get(ctx, "addr1")
		require.NoError(t, err)
		require.Equal(t, []byte("first"), data)

		require.NoError(t, store.Save(ctx, "addr1", []byte("second")))
		data, err = store.Get(ctx, "addr1")
		require.NoError(t, err)
		require.Equal(t, []byte("second"), data)

		accounts, err := store.Accounts(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"addr1", "addr2"}, accounts)
	})

	t.Run("concurrent accounts", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				addr := fmt.Sprintf("concurrent%d", i)
				for j := 0; j < 5; j++ {
					// nolint
					store.Save(ctx, addr, []byte(fmt.Sprintf("v%d", j)))
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			data, err := store.Get(ctx, fmt.Sprintf("concurrent%d", i))
			require.NoError(t, err)
			require.Equal(t, []byte("v4"), data)
		}
	})
}
