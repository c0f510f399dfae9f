package inmemorydb

import (
	"context"
	"sort"
	"sync"

	"github.com/ark-network/notewallet/internal/core/ports"
)

type snapshotRepository struct {
	lock      sync.RWMutex
	snapshots map[string][]byte
}

func NewSnapshotRepository(_ ...interface{}) (ports.SnapshotStore, error) {
	return &snapshotRepository{
		snapshots: make(map[string][]byte),
	}, nil
}

func (r *snapshotRepository) Get(
	_ context.Context, address string,
) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	data, ok := r.snapshots[address]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, data...), nil
}

func (r *snapshotRepository) Save(
	_ context.Context, address string, data []byte,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.snapshots[address] = append([]byte{}, data...)
	return nil
}

func (r *snapshotRepository) Accounts(_ context.Context) ([]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	addresses := make([]string, 0, len(r.snapshots))
	for addr := range r.snapshots {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses, nil
}

func (r *snapshotRepository) Close() {}
