// Package identity persists the client-side identifiers the chat relies on:
// the active repérage, the UI language and the fixer's display name.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const CurrentVersion = 1

// Identity is the persisted client state.
type Identity struct {
	Version   int       `json:"version"`
	ReportID  int64     `json:"current_report_id,omitempty"`
	Language  string    `json:"language,omitempty"`
	FixerName string    `json:"fixer_name,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HasReport reports whether an active repérage is known.
func (i Identity) HasReport() bool {
	return i.ReportID > 0
}

func (i Identity) String() string {
	if !i.HasReport() && i.FixerName == "" {
		return "(no report selected)"
	}
	parts := make([]string, 0, 3)
	if i.HasReport() {
		parts = append(parts, "report:"+strconv.FormatInt(i.ReportID, 10))
	}
	if i.FixerName != "" {
		parts = append(parts, "fixer:"+i.FixerName)
	}
	if i.Language != "" {
		parts = append(parts, "lang:"+i.Language)
	}
	return strings.Join(parts, " ")
}

// Injected is identity data handed to the client at startup (flags, page data).
// Non-zero fields win over what is stored and are written back.
type Injected struct {
	ReportID  int64
	Language  string
	FixerName string
}

// Manager loads and saves the identity file.
type Manager struct {
	path     string
	lockPath string

	mu    sync.Mutex
	state Identity
}

// New creates a manager for the given path. An empty path keeps state in memory only.
func New(path string) *Manager {
	path = strings.TrimSpace(path)
	lockPath := ""
	if path != "" {
		lockPath = path + ".lock"
	}
	return &Manager{
		path:     path,
		lockPath: lockPath,
		state:    Identity{Version: CurrentVersion},
	}
}

func (m *Manager) Path() string { return m.path }

// Load reads the identity from disk. A missing file yields an empty identity.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return nil
	}

	var out Identity
	err := withFileLock(m.lockPath, func() error {
		payload, err := os.ReadFile(m.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			return nil
		}
		return json.Unmarshal(payload, &out)
	})
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	m.state = out
	return nil
}

// Snapshot returns a copy of the current identity.
func (m *Manager) Snapshot() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReportID returns the active report id, or 0 when none is set.
func (m *Manager) ReportID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ReportID
}

// SetReport selects the active report and persists it.
func (m *Manager) SetReport(id int64) error {
	if id < 0 {
		return fmt.Errorf("invalid report id %d", id)
	}
	m.mu.Lock()
	m.state.ReportID = id
	m.mu.Unlock()
	return m.Save()
}

// Clear forgets the active report, keeping language and name.
func (m *Manager) Clear() error {
	return m.SetReport(0)
}

// Apply merges injected startup data and persists the result when it changed anything.
func (m *Manager) Apply(in Injected) error {
	m.mu.Lock()
	changed := false
	if in.ReportID > 0 && in.ReportID != m.state.ReportID {
		m.state.ReportID = in.ReportID
		changed = true
	}
	if lang := strings.ToUpper(strings.TrimSpace(in.Language)); lang != "" && lang != m.state.Language {
		m.state.Language = lang
		changed = true
	}
	if name := strings.TrimSpace(in.FixerName); name != "" && name != m.state.FixerName {
		m.state.FixerName = name
		changed = true
	}
	m.mu.Unlock()

	if !changed {
		return nil
	}
	return m.Save()
}

// Save writes the identity atomically.
func (m *Manager) Save() error {
	m.mu.Lock()
	m.state.Version = CurrentVersion
	m.state.UpdatedAt = time.Now().UTC()
	state := m.state
	m.mu.Unlock()

	if m.path == "" {
		return nil
	}
	if err := withFileLock(m.lockPath, func() error {
		return writeAtomicJSON(m.path, state)
	}); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state Identity) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
