package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/securecloudx/securecloudx/internal/filex"
)

// FileStore keeps the chain as one JSON document, rewritten wholesale on
// each append. The write-temp-then-rename in filex.WriteFileAtomic gives
// readers all-or-nothing visibility of each append. Simple and non-scaling,
// which is fine for a single-writer audit log.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) ([]*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chain file: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse chain file: %w", err)
	}
	return records, nil
}

func (s *FileStore) Save(_ context.Context, records []*Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize chain: %w", err)
	}
	if err := filex.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write chain file: %w", err)
	}
	return nil
}
