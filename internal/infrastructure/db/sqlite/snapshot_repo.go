package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ark-network/notewallet/internal/core/ports"
)

const (
	selectSnapshot = `SELECT data FROM snapshot WHERE address = ?`
	upsertSnapshot = `
INSERT INTO snapshot (address, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(address) DO UPDATE SET
    data = excluded.data,
    updated_at = excluded.updated_at`
	selectAddresses = `SELECT address FROM snapshot ORDER BY address`
)

type snapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository expects the base directory of the db file. The
// schema is migrated on open.
func NewSnapshotRepository(config ...interface{}) (ports.SnapshotStore, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok || len(baseDir) <= 0 {
		return nil, fmt.Errorf("invalid base directory")
	}

	db, err := OpenDb(filepath.Join(baseDir, sqliteDbFile))
	if err != nil {
		return nil, err
	}
	if err := migrateDb(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &snapshotRepository{db}, nil
}

func (r *snapshotRepository) Get(
	ctx context.Context, address string,
) ([]byte, error) {
	var data []byte
	if err := r.db.QueryRowContext(ctx, selectSnapshot, address).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (r *snapshotRepository) Save(
	ctx context.Context, address string, data []byte,
) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx, upsertSnapshot, address, data, time.Now().Unix(),
		)
		return err
	})
}

func (r *snapshotRepository) Accounts(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, selectAddresses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := make([]string, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, rows.Err()
}

func (r *snapshotRepository) Close() {
	_ = r.db.Close()
}
