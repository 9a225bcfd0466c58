package save

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore keeps the save as a JSON file.
type FileStore struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

// Save writes to a temp file and renames it over the old save, so a crash
// mid-write leaves the previous save intact.
func (f *FileStore) Save(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".save-*")
	if err != nil {
		return fmt.Errorf("create save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context) (State, bool) {
	if ctx.Err() != nil {
		return State{}, false
	}

	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()

	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.log.Warn("save unreadable, ignoring", zap.String("path", f.path), zap.Error(err))
		}
		return State{}, false
	}

	s, err := Decode(data)
	if err != nil {
		f.log.Warn("save corrupt, ignoring", zap.String("path", f.path), zap.Error(err))
		return State{}, false
	}
	return s, true
}

func (f *FileStore) Close() error { return nil }
