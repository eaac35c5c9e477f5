package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const sessionFileName = "session.json"

// FileStore keeps the session as a small JSON file, by default under
// os.UserConfigDir()/wgdashctl/session.json.
type FileStore struct {
	path string
	log  *zap.Logger

	mu        sync.Mutex
	observers []func(*Session)
}

// NewFileStore creates a store writing to path. The parent directory is
// created on first Save.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// DefaultPath returns the per-user session file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wgdashctl", sessionFileName), nil
}

func (fs *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Session{}, nil
		}
		return nil, err
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return fromPersisted(p)
}

func (fs *FileStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.toPersisted(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return err
	}
	fs.log.Debug("session saved", zap.String("path", fs.path))
	fs.notify(s.Clone())
	return nil
}

func (fs *FileStore) Reset() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	fs.log.Info("session forgotten", zap.String("path", fs.path))
	fs.notify(nil)
	return nil
}

func (fs *FileStore) Subscribe(fn func(*Session)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.observers = append(fs.observers, fn)
}

func (fs *FileStore) notify(s *Session) {
	fs.mu.Lock()
	obs := make([]func(*Session), len(fs.observers))
	copy(obs, fs.observers)
	fs.mu.Unlock()
	for _, fn := range obs {
		fn(s)
	}
}
