package application

import (
	"context"
	"time"

	"github.com/ark-network/notewallet/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()

	Unlock(ctx context.Context, password string) error
	Lock(ctx context.Context) error
	IsUnlocked() bool

	AddAccount(ctx context.Context, address string) error
	Accounts(ctx context.Context) ([]string, error)

	Sync(ctx context.Context, address string) (*domain.SyncSummary, error)
	Resync(ctx context.Context, address string) (*domain.SyncSummary, error)
	Send(ctx context.Context, req SendRequest) (string, error)
	GetBalance(ctx context.Context, address string) (*domain.Balance, error)
	ListNotes(ctx context.Context, address string) ([]domain.Note, error)
	ListTransactions(
		ctx context.Context, address string, filter domain.TxFilter,
	) ([]domain.WalletTx, error)
	AnnotatePrice(ctx context.Context, address, txId string, price float64) error
}

type Config struct {
	TxExpiry       time.Duration
	SpentRetention time.Duration
	MaxTxHistory   int
	FeeBase        uint64
	FeePerNote     uint64
	// SyncInterval in seconds, 0 disables periodic sync.
	SyncInterval int64
	// Accounts are created on unlock if missing.
	Accounts []string
}

type SendRequest struct {
	Address       string
	Recipient     string
	Amount        uint64
	Fee           *uint64
	Sweep         bool
	Authorization string
	RefundAddress string
	PriceAtTime   *float64
}
