package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// historyVersion is bumped when the file layout changes.
const historyVersion = 1

// HistoryFile is the on-disk history layout.
type HistoryFile struct {
	Version int                       `json:"version"`
	Entries []schema.CommandExecution `json:"entries"`
}

// Store persists the command history to a JSON file.
type Store struct {
	path string
	log  pslog.Logger
}

// NewStore constructs a history store at the given file path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger constructs a history store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("history_file", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the history. A missing file yields no entries and no error.
func (s *Store) Load() ([]schema.CommandExecution, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("history load miss")
			}
			return nil, nil
		}
		if s.log != nil {
			s.log.Warn("history load failed", "err", err)
		}
		return nil, err
	}
	var file HistoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		if s.log != nil {
			s.log.Warn("history load failed", "err", err)
		}
		return nil, err
	}
	if s.log != nil {
		s.log.Debug("history load ok", "entries", len(file.Entries))
	}
	return file.Entries, nil
}

// Append adds entry to the history file under the file lock and returns the
// resulting entries. Entries written by other processes since the last call
// are kept.
func (s *Store) Append(entry schema.CommandExecution) ([]schema.CommandExecution, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, s.saveFailed(err)
	}
	defer unlock()
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	if err := s.write(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Clear truncates the history file under the file lock.
func (s *Store) Clear() error {
	unlock, err := s.lock()
	if err != nil {
		return s.saveFailed(err)
	}
	defer unlock()
	return s.write(nil)
}

func (s *Store) lock() (func(), error) {
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unlockFile(f)
		_ = f.Close()
	}, nil
}

// write atomically replaces the history file.
func (s *Store) write(entries []schema.CommandExecution) error {
	if entries == nil {
		entries = []schema.CommandExecution{}
	}
	data, err := json.MarshalIndent(HistoryFile{Version: historyVersion, Entries: entries}, "", "  ")
	if err != nil {
		return s.saveFailed(err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return s.saveFailed(err)
	}
	tmp, err := os.CreateTemp(dir, "history-*.json")
	if err != nil {
		return s.saveFailed(err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if s.log != nil {
		s.log.Trace("history save ok", "entries", len(entries))
	}
	return nil
}

func (s *Store) saveFailed(err error) error {
	if s.log != nil {
		s.log.Warn("history save failed", "err", err)
	}
	return err
}
