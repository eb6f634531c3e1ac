// Package session persists the active order between CLI invocations in a
// small YAML file. The tracker itself keeps everything in memory.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

const currentVersion = 1

// File models the session file on disk. The order is stored with its wire
// field names so the file reads like an API response.
type File struct {
	Version        int                    `yaml:"version"`
	APIURL         string                 `yaml:"api_url,omitempty"`
	SavedAt        time.Time              `yaml:"saved_at"`
	Order          map[string]interface{} `yaml:"order,omitempty"`
	TransientError bool                   `yaml:"transient_error,omitempty"`
	LastQuery      string                 `yaml:"last_query,omitempty"`
}

// Session is the decoded content of a session file.
type Session struct {
	APIURL    string
	Order     *model.OrderRecord
	LastQuery string
	SavedAt   time.Time
}

// Load reads the session at path. A missing file is an empty session.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("session: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Session{}, fmt.Errorf("session: parse %s: %w", path, err)
	}
	if f.Version > currentVersion {
		return Session{}, fmt.Errorf("session: unsupported version %d", f.Version)
	}
	out := Session{APIURL: f.APIURL, LastQuery: f.LastQuery, SavedAt: f.SavedAt}
	if len(f.Order) > 0 {
		raw, err := json.Marshal(f.Order)
		if err != nil {
			return Session{}, fmt.Errorf("session: re-encode order: %w", err)
		}
		var rec model.OrderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Session{}, fmt.Errorf("session: decode order: %w", err)
		}
		if rec.Error != nil {
			rec.Error.Transient = f.TransientError
		}
		out.Order = &rec
	}
	return out, nil
}

// Save writes s to path, replacing the previous file atomically.
func Save(path string, s Session) error {
	f := File{
		Version:   currentVersion,
		APIURL:    s.APIURL,
		SavedAt:   time.Now().UTC(),
		LastQuery: s.LastQuery,
	}
	if s.Order != nil {
		raw, err := json.Marshal(s.Order)
		if err != nil {
			return fmt.Errorf("session: encode order: %w", err)
		}
		if err := json.Unmarshal(raw, &f.Order); err != nil {
			return fmt.Errorf("session: encode order: %w", err)
		}
		f.TransientError = s.Order.Error != nil && s.Order.Error.Transient
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session: ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("session: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("session: replace: %w", err)
	}
	return nil
}

// Clear removes the session file.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}
