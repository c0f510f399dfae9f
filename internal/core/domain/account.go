package domain

import "fmt"

const SnapshotVersion = 1

// Account groups the ledgers owned by one address.
type Account struct {
	Address string
	Notes   *NoteLedger
	Txs     *TxLedger
}

func NewAccount(address string, maxHistory int) *Account {
	return &Account{
		Address: address,
		Notes:   NewNoteLedger(address),
		Txs:     NewTxLedger(address, maxHistory),
	}
}

// NewAccountFromSnapshot restores an account from its persisted form.
func NewAccountFromSnapshot(s Snapshot, maxHistory int) (*Account, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if len(s.Address) <= 0 {
		return nil, fmt.Errorf("snapshot is missing account address")
	}
	return &Account{
		Address: s.Address,
		Notes:   RestoreNoteLedger(s.Address, s.Notes, s.NoteVersion),
		Txs:     RestoreTxLedger(s.Address, maxHistory, s.Transactions),
	}, nil
}

func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		Version:      SnapshotVersion,
		Address:      a.Address,
		NoteVersion:  a.Notes.Version(),
		Notes:        a.Notes.List(),
		Transactions: a.Txs.List(TxFilter{}),
	}
}

func (a *Account) Balance() Balance {
	available, inFlight := a.Notes.Totals()
	pendingChange := uint64(0)
	for _, tx := range a.Txs.Pending() {
		pendingChange += tx.ExpectedChange
	}
	return Balance{
		Available:     available,
		PendingOut:    inFlight,
		PendingChange: pendingChange,
		Total:         available + inFlight,
	}
}

type Snapshot struct {
	Version      int        `json:"version"`
	Address      string     `json:"address"`
	NoteVersion  uint64     `json:"noteVersion"`
	Notes        []Note     `json:"notes"`
	Transactions []WalletTx `json:"transactions"`
}

type Balance struct {
	Available     uint64 `json:"available"`
	PendingOut    uint64 `json:"pendingOut"`
	PendingChange uint64 `json:"pendingChange"`
	Total         uint64 `json:"total"`
}

// SyncSummary counts what a reconciliation pass changed.
type SyncSummary struct {
	NewIncoming     int `json:"newIncoming"`
	NewChange       int `json:"newChange"`
	NewlySpent      int `json:"newlySpent"`
	Confirmed       int `json:"confirmed"`
	Expired         int `json:"expired"`
	Purged          int `json:"purged"`
	ReleasedOrphans int `json:"releasedOrphans"`
}

func (s SyncSummary) HasChanges() bool {
	return s != SyncSummary{}
}
