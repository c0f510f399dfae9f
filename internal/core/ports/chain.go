package ports

import (
	"context"

	"github.com/ark-network/notewallet/internal/core/domain"
)

// ChainClient is the network client giving access to chain-confirmed notes.
type ChainClient interface {
	FetchNotes(ctx context.Context, address string) ([]domain.ChainNote, error)
	// Broadcast submits a signed serialized tx and returns the hash assigned
	// by the chain.
	Broadcast(ctx context.Context, rawTx string) (string, error)
}
