package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pocketgrow/internal/core"
)

// File persists the session as a JSON file so CLI invocations share one
// login. The file carries the bearer token and is written 0600.
type File struct {
	mu   sync.Mutex
	path string

	token string
	user  core.UserSummary
}

type fileState struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

// NewFile loads any persisted session from path. A missing file is a
// logged-out session, not an error.
func NewFile(path string) (*File, error) {
	f := &File{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	f.token = state.Token
	f.user = core.UserSummary{
		ID:    state.User.ID,
		Name:  state.User.Name,
		Email: state.User.Email,
		Role:  core.Role(state.User.Role),
	}
	return f, nil
}

func (f *File) Token() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *File) User() (core.UserSummary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.token != ""
}

func (f *File) SetToken(token string, user core.UserSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.user = user
	return f.persist()
}

func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.user = core.UserSummary{}

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// persist writes the session atomically; callers hold f.mu.
func (f *File) persist() error {
	var state fileState
	state.Token = f.token
	state.User.ID = f.user.ID
	state.User.Name = f.user.Name
	state.User.Email = f.user.Email
	state.User.Role = string(f.user.Role)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(f.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
