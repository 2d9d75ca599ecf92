// Package session holds the bearer token and identity obtained at login.
//
// The core never touches persistent storage directly; it talks to a Store,
// so the backing medium (process memory, a token file for the CLI, a cookie
// for the web app) is an injection choice.
package session

import (
	"sync"

	"pocketgrow/internal/core"
)

// Store is the session capability consumed by the API client and the
// front-ends: set on successful login, cleared on logout. No expiry or
// refresh is implemented; the token lives until an explicit logout.
type Store interface {
	// Token returns the bearer token, or false when logged out.
	Token() (string, bool)

	// SetToken installs the token and identity returned by login.
	SetToken(token string, user core.UserSummary) error

	// User returns the logged-in identity, or false when logged out.
	User() (core.UserSummary, bool)

	// Clear drops the session.
	Clear() error
}

// Memory is a process-wide in-memory session store.
type Memory struct {
	mu    sync.Mutex
	token string
	user  core.UserSummary
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *Memory) SetToken(token string, user core.UserSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = user
	return nil
}

func (m *Memory) User() (core.UserSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.token != ""
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = core.UserSummary{}
	return nil
}
