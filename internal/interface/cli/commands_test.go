package cli_interface_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ark-network/notewallet/internal/core/application"
	"github.com/ark-network/notewallet/internal/core/domain"
	cli_interface "github.com/ark-network/notewallet/internal/interface/cli"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockedApp struct {
	mock.Mock
}

func (m *mockedApp) Start() error { return m.Called().Error(0) }
func (m *mockedApp) Stop()        { m.Called() }

func (m *mockedApp) Unlock(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}

func (m *mockedApp) Lock(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockedApp) IsUnlocked() bool { return m.Called().Bool(0) }

func (m *mockedApp) AddAccount(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *mockedApp) Accounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func (m *mockedApp) Sync(ctx context.Context, address string) (*domain.SyncSummary, error) {
	args := m.Called(ctx, address)
	var res *domain.SyncSummary
	if a := args.Get(0); a != nil {
		res = a.(*domain.SyncSummary)
	}
	return res, args.Error(1)
}

func (m *mockedApp) Resync(ctx context.Context, address string) (*domain.SyncSummary, error) {
	args := m.Called(ctx, address)
	var res *domain.SyncSummary
	if a := args.Get(0); a != nil {
		res = a.(*domain.SyncSummary)
	}
	return res, args.Error(1)
}

func (m *mockedApp) Send(ctx context.Context, req application.SendRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockedApp) GetBalance(ctx context.Context, address string) (*domain.Balance, error) {
	args := m.Called(ctx, address)
	var res *domain.Balance
	if a := args.Get(0); a != nil {
		res = a.(*domain.Balance)
	}
	return res, args.Error(1)
}

func (m *mockedApp) ListNotes(ctx context.Context, address string) ([]domain.Note, error) {
	args := m.Called(ctx, address)
	var res []domain.Note
	if a := args.Get(0); a != nil {
		res = a.([]domain.Note)
	}
	return res, args.Error(1)
}

func (m *mockedApp) ListTransactions(
	ctx context.Context, address string, filter domain.TxFilter,
) ([]domain.WalletTx, error) {
	args := m.Called(ctx, address, filter)
	var res []domain.WalletTx
	if a := args.Get(0); a != nil {
		res = a.([]domain.WalletTx)
	}
	return res, args.Error(1)
}

func (m *mockedApp) AnnotatePrice(
	ctx context.Context, address, txId string, price float64,
) error {
	return m.Called(ctx, address, txId, price).Error(0)
}

func run(t *testing.T, app *mockedApp, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cliApp := cli_interface.NewApp(func() (application.Service, error) {
		return app, nil
	}, out)
	err := cliApp.Run(append([]string{"notewalletd", "--password", "pwd"}, args...))
	return out.String(), err
}

func TestBalanceCommand(t *testing.T) {
	app := &mockedApp{}
	app.On("Unlock", mock.Anything, "pwd").Return(nil)
	app.On("GetBalance", mock.Anything, "addr1").Return(&domain.Balance{
		Available: 60, PendingOut: 40, PendingChange: 10, Total: 100,
	}, nil)
	app.On("Stop").Return()

	out, err := run(t, app, "balance", "--address", "addr1")
	require.NoError(t, err)

	var balance domain.Balance
	require.NoError(t, json.Unmarshal([]byte(out), &balance))
	require.Equal(t, uint64(100), balance.Total)
	app.AssertExpectations(t)
}

func TestSyncCommand(t *testing.T) {
	app := &mockedApp{}
	app.On("Unlock", mock.Anything, "pwd").Return(nil)
	app.On("Sync", mock.Anything, "addr1").Return(&domain.SyncSummary{NewIncoming: 2}, nil)
	app.On("Resync", mock.Anything, "addr1").Return(nil, fmt.Errorf("chain unreachable"))
	app.On("Stop").Return()

	out, err := run(t, app, "sync", "--address", "addr1")
	require.NoError(t, err)
	require.Contains(t, out, `"newIncoming": 2`)

	_, err = run(t, app, "resync", "--address", "addr1")
	require.EqualError(t, err, "chain unreachable")
	app.AssertNumberOfCalls(t, "Stop", 2)
}

func TestSendCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fee := uint64(3)
		price := 1.5
		app := &mockedApp{}
		app.On("Unlock", mock.Anything, "pwd").Return(nil)
		app.On("Send", mock.Anything, application.SendRequest{
			Address:     "addr1",
			Recipient:   "bob",
			Amount:      70,
			Fee:         &fee,
			PriceAtTime: &price,
		}).Return("tx1", nil)
		app.On("Stop").Return()

		out, err := run(
			t, app, "send", "--address", "addr1", "--to", "bob",
			"--amount", "70", "--fee", "3", "--price", "1.5",
		)
		require.NoError(t, err)
		require.Contains(t, out, `"txid": "tx1"`)
		app.AssertExpectations(t)
	})

	t.Run("sweep", func(t *testing.T) {
		app := &mockedApp{}
		app.On("Unlock", mock.Anything, "pwd").Return(nil)
		app.On("Send", mock.Anything, application.SendRequest{
			Address: "addr1", Recipient: "bob", Sweep: true,
		}).Return("", domain.ErrInsufficientFunds)
		app.On("Stop").Return()

		_, err := run(t, app, "send", "--address", "addr1", "--to", "bob", "--sweep")
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})

	t.Run("invalid", func(t *testing.T) {
		app := &mockedApp{}

		_, err := run(t, app, "send", "--address", "addr1", "--to", "bob")
		require.EqualError(t, err, "missing amount")

		_, err = run(
			t, app, "send", "--address", "addr1", "--to", "bob",
			"--amount", "10", "--sweep",
		)
		require.EqualError(t, err, "amount and sweep are mutually exclusive")
		app.AssertNotCalled(t, "Unlock", mock.Anything, mock.Anything)
	})
}

func TestHistoryCommand(t *testing.T) {
	app := &mockedApp{}
	app.On("Unlock", mock.Anything, "pwd").Return(nil)
	app.On("ListTransactions", mock.Anything, "addr1", mock.MatchedBy(
		func(f domain.TxFilter) bool {
			return f.Direction != nil && *f.Direction == domain.TxOutgoing &&
				f.Status != nil && f.Status(domain.TxBroadcastPending) &&
				!f.Status(domain.TxConfirmed)
		},
	)).Return([]domain.WalletTx{
		{Id: "tx1", Direction: domain.TxOutgoing, Status: domain.TxBroadcastPending},
	}, nil)
	app.On("Stop").Return()

	out, err := run(
		t, app, "history", "--address", "addr1", "--direction", "outgoing", "--pending",
	)
	require.NoError(t, err)
	require.Contains(t, out, `"id": "tx1"`)
	require.Contains(t, out, `"direction": "OUTGOING"`)
	require.Contains(t, out, `"status": "BROADCAST_PENDING"`)

	_, err = run(t, app, "history", "--address", "addr1", "--direction", "sideways")
	require.EqualError(t, err, "invalid direction sideways, must be incoming or outgoing")
}

func TestUnlockFailure(t *testing.T) {
	app := &mockedApp{}
	app.On("Unlock", mock.Anything, "pwd").Return(fmt.Errorf("invalid password"))
	app.On("Stop").Return()

	_, err := run(t, app, "notes", "--address", "addr1")
	require.EqualError(t, err, "invalid password")
	app.AssertNotCalled(t, "ListNotes", mock.Anything, mock.Anything)
	app.AssertCalled(t, "Stop")
}
