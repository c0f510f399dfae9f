package application

import (
	"time"

	"github.com/ark-network/notewallet/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTxExpiry       = 6 * time.Hour
	DefaultSpentRetention = 24 * time.Hour
)

type ReconcileOptions struct {
	TxExpiry       time.Duration
	SpentRetention time.Duration
}

func (o ReconcileOptions) withDefaults() ReconcileOptions {
	if o.TxExpiry <= 0 {
		o.TxExpiry = DefaultTxExpiry
	}
	if o.SpentRetention <= 0 {
		o.SpentRetention = DefaultSpentRetention
	}
	return o
}

// Reconcile aligns the account ledgers with the notes the chain currently
// reports for the account address. It never fails: whatever the chain
// reports, the ledgers end up in a consistent state. Running it again with
// the same chain notes and time changes nothing.
func Reconcile(
	acct *domain.Account, chainNotes []domain.ChainNote, now time.Time,
	opts ReconcileOptions,
) domain.SyncSummary {
	opts = opts.withDefaults()
	summary := domain.SyncSummary{}

	onChain := make(map[string]domain.ChainNote, len(chainNotes))
	fresh := make([]domain.ChainNote, 0)
	for _, c := range chainNotes {
		id := c.Id()
		if _, ok := onChain[id]; ok {
			continue
		}
		onChain[id] = c
		if !acct.Notes.Has(id) {
			fresh = append(fresh, c)
		}
	}

	// Known notes missing from chain are spent.
	spent := make(map[string]struct{})
	for _, n := range acct.Notes.List() {
		if n.IsSpent() {
			continue
		}
		if _, ok := onChain[n.Id]; !ok {
			spent[n.Id] = struct{}{}
		}
	}
	summary.NewlySpent = acct.Notes.MarkSpent(keys(spent), now)

	// Pending txs whose inputs are all spent confirm now, whether the inputs
	// were spent during this pass or an earlier one.
	confirmedNow := make([]domain.WalletTx, 0)
	for _, tx := range acct.Txs.Pending() {
		if inputsSpent(acct.Notes, tx) {
			confirmedNow = append(confirmedNow, tx)
		}
	}

	candidates := append([]domain.WalletTx{}, confirmedNow...)
	for _, tx := range acct.Txs.Outgoing() {
		if tx.AwaitingChange() && now.Sub(tx.CreatedAt) < opts.TxExpiry {
			candidates = append(candidates, tx)
		}
	}
	changeOf := attributeChange(acct.Notes, candidates, fresh)
	changeByTx := make(map[string][]string)
	for noteId, txId := range changeOf {
		changeByTx[txId] = append(changeByTx[txId], noteId)
	}

	for _, tx := range confirmedNow {
		changeIds := changeByTx[tx.Id]
		if err := acct.Txs.Update(tx.Id, func(t *domain.WalletTx) {
			t.Status = domain.TxConfirmed
			t.ChangeNoteIds = changeIds
			t.UpdatedAt = now
		}); err != nil {
			log.WithError(err).Warnf("failed to confirm tx %s", tx.Id)
			continue
		}
		summary.Confirmed++
		delete(changeByTx, tx.Id)
	}
	for txId, changeIds := range changeByTx {
		if err := acct.Txs.Update(txId, func(t *domain.WalletTx) {
			t.ChangeNoteIds = changeIds
			t.UpdatedAt = now
		}); err != nil {
			log.WithError(err).Warnf("failed to attach change to tx %s", txId)
		}
	}

	// New notes are either change of one of our txs or incoming funds.
	if len(fresh) > 0 {
		notes := make([]domain.Note, 0, len(fresh))
		for _, c := range fresh {
			note := domain.NewNote(acct.Address, c, now)
			if txId, ok := changeOf[note.Id]; ok {
				note.IsChange = true
				note.ChangeOf = txId
				summary.NewChange++
			} else {
				acct.Txs.Append(domain.NewIncomingTx(acct.Address, note, now))
				summary.NewIncoming++
			}
			notes = append(notes, note)
		}
		acct.Notes.Upsert(notes...)
	}

	active := make(map[string]struct{})
	for _, tx := range acct.Txs.Pending() {
		if now.Sub(tx.CreatedAt) < opts.TxExpiry {
			active[tx.Id] = struct{}{}
			continue
		}
		if err := acct.Txs.Update(tx.Id, func(t *domain.WalletTx) {
			t.Status = domain.TxExpired
			t.UpdatedAt = now
		}); err != nil {
			log.WithError(err).Warnf("failed to expire tx %s", tx.Id)
			active[tx.Id] = struct{}{}
			continue
		}
		released := acct.Notes.ReleaseByTx(tx.Id)
		log.Debugf("tx %s expired, released %d notes", tx.Id, released)
		summary.Expired++
	}

	// In flight notes must belong to a pending tx.
	orphans := make([]string, 0)
	for _, n := range acct.Notes.InFlight() {
		if _, ok := active[n.PendingTxId]; !ok {
			orphans = append(orphans, n.Id)
		}
	}
	summary.ReleasedOrphans = acct.Notes.Release(orphans)

	summary.Purged = acct.Notes.PurgeSpent(now.Add(-opts.SpentRetention))

	return summary
}

// attributeChange matches fresh notes to the txs they are likely change of.
// A note is change of tx when its amount equals the expected change and it
// was created no earlier than the tx inputs. Only one-to-one matches count.
func attributeChange(
	notes *domain.NoteLedger, txs []domain.WalletTx, fresh []domain.ChainNote,
) map[string]string {
	notesByTx := make(map[string][]string)
	txsByNote := make(map[string][]string)

	for _, tx := range txs {
		if tx.ExpectedChange == 0 {
			continue
		}
		minPage := uint64(0)
		for _, id := range tx.InputNoteIds {
			if n, ok := notes.Get(id); ok && n.OriginPage > minPage {
				minPage = n.OriginPage
			}
		}
		for _, c := range fresh {
			if c.Amount != tx.ExpectedChange || c.OriginPage < minPage {
				continue
			}
			id := c.Id()
			notesByTx[tx.Id] = append(notesByTx[tx.Id], id)
			txsByNote[id] = append(txsByNote[id], tx.Id)
		}
	}

	changeOf := make(map[string]string)
	for txId, ids := range notesByTx {
		if len(ids) != 1 || len(txsByNote[ids[0]]) != 1 {
			continue
		}
		changeOf[ids[0]] = txId
	}
	return changeOf
}

// inputsSpent reports whether every input of tx is spent. Inputs no longer
// in the ledger were purged after being spent.
func inputsSpent(notes *domain.NoteLedger, tx domain.WalletTx) bool {
	if len(tx.InputNoteIds) <= 0 {
		return false
	}
	for _, id := range tx.InputNoteIds {
		n, ok := notes.Get(id)
		if ok && !n.IsSpent() {
			return false
		}
	}
	return true
}

func keys(m map[string]struct{}) []string {
	list := make([]string, 0, len(m))
	for k := range m {
		list = append(list, k)
	}
	return list
}
