package ports

import "context"

// SnapshotStore persists opaque, already encrypted account snapshots.
// Save must be atomic: a crash never leaves a partially written snapshot.
type SnapshotStore interface {
	// Get returns nil without error if no snapshot exists for the account.
	Get(ctx context.Context, address string) ([]byte, error)
	Save(ctx context.Context, address string, data []byte) error
	Accounts(ctx context.Context) ([]string, error)
	Close()
}

type Cypher interface {
	Encrypt(plaintext, password []byte) ([]byte, error)
	Decrypt(ciphertext, password []byte) ([]byte, error)
}
