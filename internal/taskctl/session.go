package taskctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const sessionFile = "session.json"

// Session is the login state kept between runs.
type Session struct {
	Server string `json:"server"`
	Token  string `json:"token"`
	Email  string `json:"email"`
}

// DefaultDir is <user config dir>/taskctl.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "taskctl"), nil
}

// LoadSession returns an empty session when none was saved.
func LoadSession(dir string) (*Session, error) {
	b, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", filepath.Join(dir, sessionFile), err)
	}
	return &s, nil
}

func (s *Session) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, sessionFile), b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// RemoveSession reports whether there was anything to remove.
func RemoveSession(dir string) (bool, error) {
	err := os.Remove(filepath.Join(dir, sessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove session: %w", err)
	}
	return true, nil
}
