package filedb

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ark-network/notewallet/internal/core/ports"
)

const (
	snapshotDir = "snapshots"
	snapshotExt = ".snap"
)

type snapshotRepository struct {
	dir string
}

// NewSnapshotRepository expects the base directory where snapshot files
// are written, one per account.
func NewSnapshotRepository(config ...interface{}) (ports.SnapshotStore, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok || len(baseDir) <= 0 {
		return nil, fmt.Errorf("invalid base directory")
	}

	dir := filepath.Join(baseDir, snapshotDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &snapshotRepository{dir}, nil
}

func (r *snapshotRepository) Get(
	_ context.Context, address string,
) ([]byte, error) {
	data, err := os.ReadFile(r.path(address))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// previous snapshot.
func (r *snapshotRepository) Save(
	_ context.Context, address string, data []byte,
) error {
	tmp, err := os.CreateTemp(r.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// nolint:all
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		// nolint:all
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		// nolint:all
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, r.path(address)); err != nil {
		return err
	}
	return syncDir(r.dir)
}

func (r *snapshotRepository) Accounts(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		buf, err := hex.DecodeString(strings.TrimSuffix(name, snapshotExt))
		if err != nil {
			continue
		}
		addresses = append(addresses, string(buf))
	}
	sort.Strings(addresses)
	return addresses, nil
}

func (r *snapshotRepository) Close() {}

func (r *snapshotRepository) path(address string) string {
	return filepath.Join(r.dir, hex.EncodeToString([]byte(address))+snapshotExt)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
