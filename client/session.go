package client

import (
	"encoding/json"
	"fmt"
	"os"
)

// Session records the last opened project and the secret used to open it.
type Session struct {
	ProjectID string `json:"projectId"`
	SecretKey string `json:"secretKey"`
}

// SessionStore persists the session between runs. It is injected rather
// than ambient so callers decide where the credential lands on disk.
type SessionStore interface {
	Load() (Session, bool, error)
	Save(Session) error
	Clear() error
}

// FileSessionStore keeps the session in a single JSON file.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore creates a session store persisting to path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Load returns the saved session; the second return is false when no
// session has been saved yet.
func (s *FileSessionStore) Load() (Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("corrupt session file %s: %w", s.path, err)
	}
	if sess.ProjectID == "" {
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Save writes the session, readable by the owner only since it contains the
// project secret.
func (s *FileSessionStore) Save(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear forgets the saved session.
func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
