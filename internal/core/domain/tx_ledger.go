package domain

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

const DefaultMaxTxHistory = 200

type TxFilter struct {
	Direction *TxDirection
	Status    func(TxStatus) bool
}

func (f TxFilter) match(tx WalletTx) bool {
	if f.Direction != nil && tx.Direction != *f.Direction {
		return false
	}
	if f.Status != nil && !f.Status(tx.Status) {
		return false
	}
	return true
}

// TxLedger is the bounded, most-recent-first history of wallet transactions
// of one account.
type TxLedger struct {
	lock       sync.RWMutex
	address    string
	txs        []*WalletTx
	index      map[string]*WalletTx
	maxHistory int
	version    uint64
	onChange   func()
}

func NewTxLedger(address string, maxHistory int) *TxLedger {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxTxHistory
	}
	return &TxLedger{
		address:    address,
		txs:        make([]*WalletTx, 0),
		index:      make(map[string]*WalletTx),
		maxHistory: maxHistory,
	}
}

// RestoreTxLedger rebuilds a ledger from a most-recent-first list.
func RestoreTxLedger(address string, maxHistory int, txs []WalletTx) *TxLedger {
	l := NewTxLedger(address, maxHistory)
	for i := range txs {
		tx := txs[i]
		if _, ok := l.index[tx.Id]; ok {
			continue
		}
		l.txs = append(l.txs, &tx)
		l.index[tx.Id] = &tx
	}
	l.evict()
	return l
}

func (l *TxLedger) OnChange(fn func()) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.onChange = fn
}

func (l *TxLedger) Version() uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.version
}

// Append adds tx on top of the history. It returns false if a transaction
// with the same id is already recorded.
func (l *TxLedger) Append(tx WalletTx) bool {
	l.lock.Lock()
	if _, ok := l.index[tx.Id]; ok {
		l.lock.Unlock()
		return false
	}
	if len(tx.Address) <= 0 {
		tx.Address = l.address
	}
	l.txs = append([]*WalletTx{&tx}, l.txs...)
	l.index[tx.Id] = &tx
	l.evict()
	l.lock.Unlock()

	l.changed()
	return true
}

// Update applies fn to a copy of the transaction with the given id and
// stores the result if the status change it carries is legal.
func (l *TxLedger) Update(id string, fn func(tx *WalletTx)) error {
	l.lock.Lock()
	current, ok := l.index[id]
	if !ok {
		l.lock.Unlock()
		log.WithField("tx", id).Warn("ignoring update of unknown transaction")
		return NewError(KindNotFound, nil, "transaction %s not found", id)
	}

	updated := *current
	fn(&updated)
	updated.Id = current.Id
	updated.Direction = current.Direction

	if updated.Direction == TxOutgoing &&
		!current.Status.CanTransitionTo(updated.Status) {
		l.lock.Unlock()
		return fmt.Errorf(
			"%w: %s -> %s", ErrInvalidTransition, current.Status, updated.Status,
		)
	}
	*current = updated
	l.lock.Unlock()

	l.changed()
	return nil
}

func (l *TxLedger) Get(id string) (WalletTx, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	tx, ok := l.index[id]
	if !ok {
		return WalletTx{}, false
	}
	return *tx, true
}

// List returns the matching transactions, most recent first.
func (l *TxLedger) List(filter TxFilter) []WalletTx {
	l.lock.RLock()
	defer l.lock.RUnlock()
	txs := make([]WalletTx, 0, len(l.txs))
	for _, tx := range l.txs {
		if filter.match(*tx) {
			txs = append(txs, *tx)
		}
	}
	return txs
}

// Pending returns the non-terminal outgoing transactions.
func (l *TxLedger) Pending() []WalletTx {
	outgoing := TxOutgoing
	return l.List(TxFilter{
		Direction: &outgoing,
		Status:    func(s TxStatus) bool { return !s.IsTerminal() },
	})
}

func (l *TxLedger) Outgoing() []WalletTx {
	outgoing := TxOutgoing
	return l.List(TxFilter{Direction: &outgoing})
}

func (l *TxLedger) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.txs)
}

// evict drops the oldest terminal transactions until the history fits.
// Non terminal transactions are never dropped, so the history may exceed
// its cap while too many of them are in progress.
func (l *TxLedger) evict() {
	for len(l.txs) > l.maxHistory {
		victim := -1
		for i := len(l.txs) - 1; i >= 0; i-- {
			if l.txs[i].Status.IsTerminal() {
				victim = i
				break
			}
		}
		if victim < 0 {
			log.WithField("address", l.address).Warnf(
				"transaction history holds %d entries over cap %d, "+
					"none of them terminal", len(l.txs), l.maxHistory,
			)
			return
		}
		delete(l.index, l.txs[victim].Id)
		l.txs = append(l.txs[:victim], l.txs[victim+1:]...)
	}
}

func (l *TxLedger) changed() {
	l.lock.Lock()
	l.version++
	fn := l.onChange
	l.lock.Unlock()

	if fn != nil {
		fn()
	}
}
