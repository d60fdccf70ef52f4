package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore writes one YAML document per thread under dir/<agent>/.
// Writes go through a temp file and rename so a crash never leaves a torn file.
type FileStore struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now, locks: make(map[string]*sync.Mutex)}, nil
}

func (f *FileStore) path(agentName, threadID string) string {
	return filepath.Join(f.dir, url.PathEscape(agentName), url.PathEscape(threadID)+".yaml")
}

func (f *FileStore) lock(agentName, threadID string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(agentName, threadID)
	l, ok := f.locks[k]
	if !ok {
		l = &sync.Mutex{}
		f.locks[k] = l
	}
	return l
}

// Get reads the thread's snapshot.
func (f *FileStore) Get(ctx context.Context, agentName, threadID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := f.lock(agentName, threadID)
	l.Lock()
	defer l.Unlock()

	data, err := os.ReadFile(f.path(agentName, threadID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %q: %w", threadID, err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %q: %w", threadID, err)
	}
	if sess.State == nil {
		sess.State = make(map[string]any)
	}
	return &sess, nil
}

// Save replaces the thread's snapshot.
func (f *FileStore) Save(ctx context.Context, agentName, threadID string, sess *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("cannot save nil session for thread %q", threadID)
	}
	stored := sess.Clone()
	stored.AgentName = agentName
	stored.ThreadID = threadID
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = f.now()
	}

	data, err := yaml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode session %q: %w", threadID, err)
	}

	l := f.lock(agentName, threadID)
	l.Lock()
	defer l.Unlock()

	target := f.path(agentName, threadID)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session %q: %w", threadID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session %q: %w", threadID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to commit session %q: %w", threadID, err)
	}
	return nil
}
