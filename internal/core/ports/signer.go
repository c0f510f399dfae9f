package ports

import (
	"context"

	"github.com/ark-network/notewallet/internal/core/domain"
)

// SignerService builds and signs transactions spending the given notes.
type SignerService interface {
	Sign(ctx context.Context, req SignRequest) (*SignedTx, error)
}

type SignRequest struct {
	Notes         []domain.Note
	Authorization string
	Recipient     string
	Amount        uint64
	// Fee is nil when the signer must compute the minimum fee itself.
	Fee           *uint64
	RefundAddress string
}

type SignedTx struct {
	TxId  string
	RawTx string
	Fee   uint64
	// SpentNoteIds lists the subset of the given notes actually spent, empty
	// if all of them are used.
	SpentNoteIds []string
}
