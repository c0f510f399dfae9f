package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ark-network/notewallet/internal/core/domain"
	"github.com/ark-network/notewallet/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// persistenceCoordinator writes encrypted full snapshots of the accounts
// whose ledgers changed since their last successful write.
type persistenceCoordinator struct {
	store      ports.SnapshotStore
	cypher     ports.Cypher
	password   []byte
	maxHistory int

	lock  sync.Mutex
	dirty map[string]bool
}

func newPersistenceCoordinator(
	store ports.SnapshotStore, cypher ports.Cypher, password []byte,
	maxHistory int,
) *persistenceCoordinator {
	return &persistenceCoordinator{
		store:      store,
		cypher:     cypher,
		password:   password,
		maxHistory: maxHistory,
		dirty:      make(map[string]bool),
	}
}

// load returns the persisted account, or nil if none exists.
func (p *persistenceCoordinator) load(
	ctx context.Context, address string,
) (*domain.Account, error) {
	encrypted, err := p.store.Get(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot of %s: %w", address, err)
	}
	if encrypted == nil {
		return nil, nil
	}

	buf, err := p.cypher.Decrypt(encrypted, p.password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot of %s: %w", address, err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(buf, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of %s: %w", address, err)
	}
	acct, err := domain.NewAccountFromSnapshot(snapshot, p.maxHistory)
	if err != nil {
		return nil, err
	}
	if acct.Address != address {
		return nil, fmt.Errorf(
			"snapshot stored for %s belongs to %s", address, acct.Address,
		)
	}

	p.track(acct)
	return acct, nil
}

// create returns a new empty account, marked to be written on next persist.
func (p *persistenceCoordinator) create(address string) *domain.Account {
	acct := domain.NewAccount(address, p.maxHistory)
	p.track(acct)
	p.markDirty(address)
	return acct
}

// track hooks the account ledgers so that every mutation marks the account
// to be written.
func (p *persistenceCoordinator) track(acct *domain.Account) {
	address := acct.Address
	acct.Notes.OnChange(func() { p.markDirty(address) })
	acct.Txs.OnChange(func() { p.markDirty(address) })
}

func (p *persistenceCoordinator) isDirty(address string) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dirty[address]
}

// persist writes the account snapshot if it changed. The account stays
// dirty when the write fails so that the next call retries.
func (p *persistenceCoordinator) persist(
	ctx context.Context, acct *domain.Account,
) error {
	if !p.isDirty(acct.Address) {
		return nil
	}

	buf, err := json.Marshal(acct.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	encrypted, err := p.cypher.Encrypt(buf, p.password)
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	if err := p.store.Save(ctx, acct.Address, encrypted); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	p.lock.Lock()
	p.dirty[acct.Address] = false
	p.lock.Unlock()

	log.Debugf("persisted snapshot of account %s", acct.Address)
	return nil
}

func (p *persistenceCoordinator) markDirty(address string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.dirty[address] = true
}
