package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ark-network/notewallet/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestTxStatus(t *testing.T) {
	fixtures := []struct {
		from, to domain.TxStatus
		allowed  bool
	}{
		{domain.TxCreated, domain.TxBroadcastPending, true},
		{domain.TxCreated, domain.TxFailed, true},
		{domain.TxCreated, domain.TxExpired, true},
		{domain.TxBroadcastPending, domain.TxBroadcastedUnconfirmed, true},
		{domain.TxBroadcastPending, domain.TxFailed, true},
		{domain.TxBroadcastedUnconfirmed, domain.TxConfirmed, true},
		{domain.TxBroadcastedUnconfirmed, domain.TxExpired, true},
		{domain.TxBroadcastedUnconfirmed, domain.TxFailed, false},
		{domain.TxBroadcastedUnconfirmed, domain.TxCreated, false},
		{domain.TxConfirmed, domain.TxExpired, false},
		{domain.TxExpired, domain.TxConfirmed, false},
		{domain.TxFailed, domain.TxCreated, false},
		{domain.TxFailed, domain.TxFailed, true},
	}

	for _, f := range fixtures {
		t.Run(fmt.Sprintf("%s->%s", f.from, f.to), func(t *testing.T) {
			require.Equal(t, f.allowed, f.from.CanTransitionTo(f.to))
		})
	}

	require.False(t, domain.TxCreated.IsTerminal())
	require.False(t, domain.TxBroadcastedUnconfirmed.IsTerminal())
	require.True(t, domain.TxConfirmed.IsTerminal())
	require.True(t, domain.TxExpired.IsTerminal())
	require.True(t, domain.TxFailed.IsTerminal())
}

func TestTxLedger(t *testing.T) {
	t.Run("append", func(t *testing.T) {
		ledger := domain.NewTxLedger(address, 10)
		tx1 := domain.NewOutgoingTx(address, "bob", 60, 5, 35, []string{"n1"}, now)
		tx2 := domain.NewIncomingTx(address, makeNote(2, 20), now.Add(time.Minute))

		require.True(t, ledger.Append(tx1))
		require.True(t, ledger.Append(tx2))
		require.False(t, ledger.Append(tx1))
		require.Equal(t, 2, ledger.Len())
		require.Equal(t, uint64(2), ledger.Version())

		list := ledger.List(domain.TxFilter{})
		require.Equal(t, tx2.Id, list[0].Id)
		require.Equal(t, tx1.Id, list[1].Id)
	})

	t.Run("update", func(t *testing.T) {
		ledger := domain.NewTxLedger(address, 10)
		tx := domain.NewOutgoingTx(address, "bob", 60, 5, 35, []string{"n1"}, now)
		ledger.Append(tx)

		err := ledger.Update(tx.Id, func(tx *domain.WalletTx) {
			tx.Status = domain.TxBroadcastPending
			tx.Fee = 4
		})
		require.NoError(t, err)
		got, ok := ledger.Get(tx.Id)
		require.True(t, ok)
		require.Equal(t, domain.TxBroadcastPending, got.Status)
		require.Equal(t, uint64(4), got.Fee)

		err = ledger.Update("unknown", func(tx *domain.WalletTx) {})
		require.Error(t, err)
		require.True(t, errors.Is(err, domain.ErrNotFound))

		version := ledger.Version()
		err = ledger.Update(tx.Id, func(tx *domain.WalletTx) {
			tx.Status = domain.TxCreated
		})
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		require.Equal(t, version, ledger.Version())
		got, _ = ledger.Get(tx.Id)
		require.Equal(t, domain.TxBroadcastPending, got.Status)
	})

	t.Run("filter", func(t *testing.T) {
		ledger := domain.NewTxLedger(address, 10)
		out1 := domain.NewOutgoingTx(address, "bob", 10, 1, 0, []string{"n1"}, now)
		out2 := domain.NewOutgoingTx(address, "bob", 20, 1, 0, []string{"n2"}, now)
		in := domain.NewIncomingTx(address, makeNote(3, 30), now)
		ledger.Append(out1)
		ledger.Append(out2)
		ledger.Append(in)
		require.NoError(t, ledger.Update(out1.Id, func(tx *domain.WalletTx) {
			tx.Status = domain.TxFailed
		}))

		incoming := domain.TxIncoming
		list := ledger.List(domain.TxFilter{Direction: &incoming})
		require.Len(t, list, 1)
		require.Equal(t, in.Id, list[0].Id)

		pending := ledger.Pending()
		require.Len(t, pending, 1)
		require.Equal(t, out2.Id, pending[0].Id)

		require.Len(t, ledger.Outgoing(), 2)
	})

	t.Run("history cap", func(t *testing.T) {
		ledger := domain.NewTxLedger(address, 3)
		pending := domain.NewOutgoingTx(address, "bob", 10, 1, 0, []string{"n0"}, now)
		ledger.Append(pending)

		ids := make([]string, 0)
		for i := 1; i <= 4; i++ {
			tx := domain.NewIncomingTx(address, makeNote(i, 10), now)
			ledger.Append(tx)
			ids = append(ids, tx.Id)
		}

		require.Equal(t, 3, ledger.Len())
		_, ok := ledger.Get(pending.Id)
		require.True(t, ok)
		_, ok = ledger.Get(ids[0])
		require.False(t, ok)
		_, ok = ledger.Get(ids[1])
		require.False(t, ok)
		_, ok = ledger.Get(ids[3])
		require.True(t, ok)
	})

	t.Run("history cap keeps non terminal", func(t *testing.T) {
		ledger := domain.NewTxLedger(address, 2)
		ids := make([]string, 0)
		for i := 0; i < 3; i++ {
			tx := domain.NewOutgoingTx(
				address, "bob", 10, 1, 0, []string{fmt.Sprintf("n%d", i)}, now,
			)
			require.True(t, ledger.Append(tx))
			ids = append(ids, tx.Id)
		}

		require.Equal(t, 3, ledger.Len())
		require.Len(t, ledger.Pending(), 3)

		require.NoError(t, ledger.Update(ids[0], func(tx *domain.WalletTx) {
			tx.Status = domain.TxFailed
		}))
		in := domain.NewIncomingTx(address, makeNote(1, 10), now)
		require.True(t, ledger.Append(in))

		require.Equal(t, 3, ledger.Len())
		_, ok := ledger.Get(ids[0])
		require.False(t, ok)
		_, ok = ledger.Get(in.Id)
		require.True(t, ok)
		require.Len(t, ledger.Pending(), 2)
	})
}
