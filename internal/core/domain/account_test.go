package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/ark-network/notewallet/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestAccountBalance(t *testing.T) {
	acct := domain.NewAccount(address, domain.DefaultMaxTxHistory)
	n1, n2, n3 := makeNote(1, 60), makeNote(2, 40), makeNote(3, 25)
	acct.Notes.Upsert(n1, n2, n3)

	balance := acct.Balance()
	require.Equal(t, domain.Balance{Available: 125, Total: 125}, balance)

	tx := domain.NewOutgoingTx(
		address, "bob", 50, 2, 8, []string{n1.Id}, now,
	)
	require.NoError(t, acct.Notes.Lock([]string{n1.Id}, tx.Id))
	require.True(t, acct.Txs.Append(tx))

	balance = acct.Balance()
	require.Equal(t, domain.Balance{
		Available:     65,
		PendingOut:    60,
		PendingChange: 8,
		Total:         125,
	}, balance)

	acct.Notes.MarkSpent([]string{n1.Id}, now)
	require.NoError(t, acct.Txs.Update(tx.Id, func(t *domain.WalletTx) {
		t.Status = domain.TxConfirmed
	}))

	balance = acct.Balance()
	require.Equal(t, domain.Balance{Available: 65, Total: 65}, balance)
}

func TestAccountSnapshot(t *testing.T) {
	acct := domain.NewAccount(address, domain.DefaultMaxTxHistory)
	n1, n2 := makeNote(1, 60), makeNote(2, 40)
	acct.Notes.Upsert(n1, n2)
	tx := domain.NewOutgoingTx(address, "bob", 50, 2, 8, []string{n1.Id}, now)
	require.NoError(t, acct.Notes.Lock([]string{n1.Id}, tx.Id))
	acct.Txs.Append(tx)

	snapshot := acct.Snapshot()
	require.Equal(t, domain.SnapshotVersion, snapshot.Version)
	require.Equal(t, address, snapshot.Address)
	require.Equal(t, acct.Notes.Version(), snapshot.NoteVersion)

	restored, err := domain.NewAccountFromSnapshot(snapshot, domain.DefaultMaxTxHistory)
	require.NoError(t, err)
	require.Equal(t, acct.Notes.List(), restored.Notes.List())
	require.Equal(t, acct.Txs.List(domain.TxFilter{}), restored.Txs.List(domain.TxFilter{}))
	require.Equal(t, acct.Notes.Version(), restored.Notes.Version())
	require.Equal(t, acct.Balance(), restored.Balance())

	t.Run("invalid", func(t *testing.T) {
		bad := snapshot
		bad.Version = 2
		_, err := domain.NewAccountFromSnapshot(bad, domain.DefaultMaxTxHistory)
		require.EqualError(t, err, "unsupported snapshot version 2")

		bad = snapshot
		bad.Address = ""
		_, err = domain.NewAccountFromSnapshot(bad, domain.DefaultMaxTxHistory)
		require.EqualError(t, err, "snapshot is missing account address")
	})
}

func TestEnumsText(t *testing.T) {
	n := makeNote(1, 60)
	n.State = domain.NoteInFlight
	buf, err := json.Marshal(n)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"state":"IN_FLIGHT"`)

	var note domain.Note
	require.NoError(t, json.Unmarshal(buf, &note))
	require.Equal(t, domain.NoteInFlight, note.State)

	tx := domain.NewIncomingTx(address, n, now)
	buf, err = json.Marshal(tx)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"direction":"INCOMING"`)
	require.Contains(t, string(buf), `"status":"CONFIRMED"`)

	var decoded domain.WalletTx
	require.NoError(t, json.Unmarshal(buf, &decoded))
	require.Equal(t, domain.TxIncoming, decoded.Direction)
	require.Equal(t, domain.TxConfirmed, decoded.Status)

	t.Run("invalid", func(t *testing.T) {
		var state domain.NoteState
		require.EqualError(t, state.UnmarshalText([]byte("LOST")), `unknown note state "LOST"`)

		var status domain.TxStatus
		require.Error(t, json.Unmarshal([]byte(`"PENDING"`), &status))

		_, err := json.Marshal(struct {
			Direction domain.TxDirection
		}{domain.TxDirection(7)})
		require.Error(t, err)
	})
}
