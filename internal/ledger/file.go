package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"jobmonitor-engine/internal/domain"
)

const lockRetry = 50 * time.Millisecond

// FileStore keeps the ledger as a JSON array of ids. Writes go through a
// temp file in the same directory and a rename, so a crash leaves either the
// old or the new file. A sibling .lock file serializes processes.
type FileStore struct {
	Path string
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, lock: flock.New(path + ".lock")}
}

func (s *FileStore) Load(ctx context.Context) (Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return Ledger{}, domain.LedgerErrorf("create ledger dir: %v", err)
	}
	ok, err := s.lock.TryRLockContext(ctx, lockRetry)
	if err != nil || !ok {
		return Ledger{}, domain.LedgerErrorf("lock %s: %v", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return Ledger{}, domain.LedgerErrorf("read %s: %v", s.Path, err)
	}

	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return Ledger{}, domain.LedgerErrorf("parse %s: %v", s.Path, err)
	}
	return New(ids...), nil
}

func (s *FileStore) Save(ctx context.Context, l Ledger) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.LedgerErrorf("create ledger dir: %v", err)
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil || !ok {
		return domain.LedgerErrorf("lock %s: %v", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	b, err := json.Marshal(l.IDs())
	if err != nil {
		return domain.LedgerErrorf("encode ledger: %v", err)
	}
	if err := writeAtomic(s.Path, b); err != nil {
		return domain.LedgerErrorf("write %s: %v", s.Path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return s.lock.Close() }

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// persist the rename itself; not every platform supports syncing a dir
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
