package domain

import (
	"fmt"
	"sync"
	"time"
)

// NoteLedger holds the notes known for one account. Mutations are expected
// to happen inside the account's serialized section, the internal lock only
// protects concurrent readers.
type NoteLedger struct {
	lock     sync.RWMutex
	address  string
	notes    map[string]*Note
	order    []string
	version  uint64
	onChange func()
}

func NewNoteLedger(address string) *NoteLedger {
	return &NoteLedger{
		address: address,
		notes:   make(map[string]*Note),
		order:   make([]string, 0),
	}
}

// RestoreNoteLedger rebuilds a ledger from persisted notes without bumping
// its version.
func RestoreNoteLedger(address string, notes []Note, version uint64) *NoteLedger {
	l := NewNoteLedger(address)
	for _, n := range notes {
		l.put(n)
	}
	l.version = version
	return l
}

// OnChange registers a hook invoked after every effective mutation.
func (l *NoteLedger) OnChange(fn func()) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.onChange = fn
}

func (l *NoteLedger) Address() string {
	return l.address
}

func (l *NoteLedger) Version() uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.version
}

// Upsert merges the given notes by id, last write wins.
func (l *NoteLedger) Upsert(notes ...Note) int {
	if len(notes) <= 0 {
		return 0
	}

	l.lock.Lock()
	for _, n := range notes {
		l.put(n)
	}
	l.lock.Unlock()

	l.changed()
	return len(notes)
}

// Lock moves every given note from available to in flight for txId. The
// batch is applied only if all notes are available.
func (l *NoteLedger) Lock(ids []string, txId string) error {
	if len(txId) <= 0 {
		return fmt.Errorf("missing tx id")
	}
	if len(ids) <= 0 {
		return fmt.Errorf("missing notes to lock")
	}

	l.lock.Lock()
	for _, id := range ids {
		n, ok := l.notes[id]
		if !ok {
			l.lock.Unlock()
			return NewError(KindNotFound, nil, "note %s not found", id)
		}
		if n.State != NoteAvailable {
			l.lock.Unlock()
			return NewError(
				KindLockConflict, nil, "note %s is %s, held by tx %s",
				id, n.State, n.PendingTxId,
			)
		}
	}
	for _, id := range ids {
		n := l.notes[id]
		n.State = NoteInFlight
		n.PendingTxId = txId
	}
	l.lock.Unlock()

	l.changed()
	return nil
}

// Release moves in flight notes back to available. Notes in any other state
// are left untouched.
func (l *NoteLedger) Release(ids []string) int {
	l.lock.Lock()
	count := 0
	for _, id := range ids {
		n, ok := l.notes[id]
		if !ok || n.State != NoteInFlight {
			continue
		}
		n.State = NoteAvailable
		n.PendingTxId = ""
		count++
	}
	l.lock.Unlock()

	if count > 0 {
		l.changed()
	}
	return count
}

// ReleaseByTx releases every note currently locked by txId.
func (l *NoteLedger) ReleaseByTx(txId string) int {
	l.lock.RLock()
	ids := make([]string, 0)
	for _, id := range l.order {
		n := l.notes[id]
		if n.State == NoteInFlight && n.PendingTxId == txId {
			ids = append(ids, id)
		}
	}
	l.lock.RUnlock()

	return l.Release(ids)
}

// MarkSpent marks the given notes spent regardless of their current state.
// Unknown ids are ignored.
func (l *NoteLedger) MarkSpent(ids []string, at time.Time) int {
	l.lock.Lock()
	count := 0
	for _, id := range ids {
		n, ok := l.notes[id]
		if !ok || n.State == NoteSpent {
			continue
		}
		n.State = NoteSpent
		n.PendingTxId = ""
		n.SpentAt = at
		count++
	}
	l.lock.Unlock()

	if count > 0 {
		l.changed()
	}
	return count
}

// ReplaceAll swaps the whole note set. Notes currently in flight keep their
// lock, whether or not they are part of the new set.
func (l *NoteLedger) ReplaceAll(notes []Note) int {
	l.lock.Lock()
	prev := l.notes
	prevOrder := l.order
	l.notes = make(map[string]*Note)
	l.order = make([]string, 0, len(notes))

	for _, n := range notes {
		if old, ok := prev[n.Id]; ok {
			n.DiscoveredAt = old.DiscoveredAt
			n.IsChange = old.IsChange
			n.ChangeOf = old.ChangeOf
			if old.State == NoteInFlight {
				n.State = NoteInFlight
				n.PendingTxId = old.PendingTxId
			}
		}
		l.put(n)
	}
	for _, id := range prevOrder {
		old := prev[id]
		if old.State != NoteInFlight {
			continue
		}
		if _, ok := l.notes[id]; !ok {
			l.put(*old)
		}
	}
	count := len(l.order)
	l.lock.Unlock()

	l.changed()
	return count
}

// PurgeSpent drops spent notes whose spend was recorded before the given
// time.
func (l *NoteLedger) PurgeSpent(before time.Time) int {
	l.lock.Lock()
	order := make([]string, 0, len(l.order))
	count := 0
	for _, id := range l.order {
		n := l.notes[id]
		if n.State == NoteSpent && n.SpentAt.Before(before) {
			delete(l.notes, id)
			count++
			continue
		}
		order = append(order, id)
	}
	l.order = order
	l.lock.Unlock()

	if count > 0 {
		l.changed()
	}
	return count
}

func (l *NoteLedger) Get(id string) (Note, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	n, ok := l.notes[id]
	if !ok {
		return Note{}, false
	}
	return *n, true
}

func (l *NoteLedger) Has(id string) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	_, ok := l.notes[id]
	return ok
}

// List returns all notes in discovery order.
func (l *NoteLedger) List() []Note {
	return l.filter(func(Note) bool { return true })
}

// Available returns the spendable notes in discovery order.
func (l *NoteLedger) Available() []Note {
	return l.filter(func(n Note) bool { return n.State == NoteAvailable })
}

func (l *NoteLedger) InFlight() []Note {
	return l.filter(func(n Note) bool { return n.State == NoteInFlight })
}

// Totals returns the summed amounts of available and in flight notes.
func (l *NoteLedger) Totals() (available, inFlight uint64) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	for _, n := range l.notes {
		switch n.State {
		case NoteAvailable:
			available += n.Amount
		case NoteInFlight:
			inFlight += n.Amount
		case NoteSpent:
		}
	}
	return
}

func (l *NoteLedger) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.order)
}

func (l *NoteLedger) filter(keep func(Note) bool) []Note {
	l.lock.RLock()
	defer l.lock.RUnlock()
	notes := make([]Note, 0, len(l.order))
	for _, id := range l.order {
		n := *l.notes[id]
		if keep(n) {
			notes = append(notes, n)
		}
	}
	return notes
}

func (l *NoteLedger) put(n Note) {
	if n.State != NoteInFlight {
		n.PendingTxId = ""
	}
	if len(n.Address) <= 0 {
		n.Address = l.address
	}
	if _, ok := l.notes[n.Id]; !ok {
		l.order = append(l.order, n.Id)
	}
	l.notes[n.Id] = &n
}

func (l *NoteLedger) changed() {
	l.lock.Lock()
	l.version++
	fn := l.onChange
	l.lock.Unlock()

	if fn != nil {
		fn()
	}
}
