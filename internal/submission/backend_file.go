package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps every record in one JSON array file, rewritten in full on
// each append. It suits small hunts; the ledger's single writer keeps
// read-modify-write cycles from overlapping.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend opens path, creating it as an empty array if missing.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("create data dir", err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := writeFileAtomic(path, []byte("[]"), 0o644); err != nil {
			return nil, storageErr("init submissions file", err)
		}
	} else if err != nil {
		return nil, storageErr("stat submissions file", err)
	}
	return &FileBackend{path: path}, nil
}

func (b *FileBackend) read() ([]Record, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, storageErr("read submissions", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, storageErr("parse submissions", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (b *FileBackend) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return storageErr("encode submissions", err)
	}
	return storageErr("write submissions", writeFileAtomic(b.path, data, 0o644))
}

func (b *FileBackend) NextID(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	records, err := b.read()
	if err != nil {
		return 0, err
	}
	return int64(len(records)) + 1, nil
}

func (b *FileBackend) Append(_ context.Context, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	records, err := b.read()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == rec.ID {
			return ErrDuplicateID
		}
	}
	return b.write(append(records, rec))
}

func (b *FileBackend) Query(_ context.Context, teamID string) ([]Record, error) {
	b.mu.Lock()
	records, err := b.read()
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if teamID == "" || r.TeamID == teamID {
			out = append(out, r)
		}
	}
	sortByID(out)
	return out, nil
}

func (b *FileBackend) ResetAll(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write([]Record{})
}

func (b *FileBackend) Close() error { return nil }
