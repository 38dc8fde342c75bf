// Package store persists the engagement state and import backups as JSON
// files. It is the only component that touches the filesystem; everything
// above it works on in-memory state.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/communityops/engage/modules/engagement/csvimport"
	"github.com/communityops/engage/modules/engagement/domain/model"
)

type Store struct {
	statePath string
	backupDir string
}

func New(statePath, backupDir string) *Store {
	return &Store{statePath: statePath, backupDir: backupDir}
}

// LoadState reads the state file. A missing file is not an error: it yields
// an empty state so first runs need no setup step.
func (s *Store) LoadState() (*model.State, error) {
	b, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.State{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read state file %s", s.statePath)
	}
	var st model.State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, errors.Wrapf(err, "failed to decode state file %s", s.statePath)
	}
	return &st, nil
}

// SaveState writes the state atomically: a temp file in the same directory is
// renamed over the target, so a crash never leaves a truncated state file.
func (s *Store) SaveState(st *model.State) error {
	return writeJSONAtomic(s.statePath, st)
}

func (s *Store) backupPath(id uuid.UUID) string {
	return filepath.Join(s.backupDir, id.String()+".json")
}

func (s *Store) SaveBackup(b *csvimport.Backup) error {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create backup dir %s", s.backupDir)
	}
	return writeJSONAtomic(s.backupPath(b.ID), b)
}

// SaveSummary keeps the import summary next to its backup so the run stays
// reviewable after the process exits.
func (s *Store) SaveSummary(summary *csvimport.ImportSummary) error {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create backup dir %s", s.backupDir)
	}
	path := filepath.Join(s.backupDir, summary.BackupID.String()+".summary.json")
	return writeJSONAtomic(path, summary)
}

func (s *Store) LoadSummary(backupID uuid.UUID) (*csvimport.ImportSummary, error) {
	path := filepath.Join(s.backupDir, backupID.String()+".summary.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read summary %s", path)
	}
	var summary csvimport.ImportSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, errors.Wrapf(err, "failed to decode summary %s", path)
	}
	return &summary, nil
}

func (s *Store) LoadBackup(id uuid.UUID) (*csvimport.Backup, error) {
	path := s.backupPath(id)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read backup %s", path)
	}
	var b csvimport.Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrapf(err, "failed to decode backup %s", path)
	}
	return &b, nil
}

// BackupInfo is the listing view of a stored backup, cheap enough to build
// for every file in the directory.
type BackupInfo struct {
	ID        uuid.UUID `json:"id"`
	Timestamp string    `json:"timestamp"`
	Actions   int       `json:"actions"`
	People    int       `json:"people"`
}

// ListBackups returns every stored backup, newest first. Files that are not
// valid backups are skipped rather than failing the whole listing.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read backup dir %s", s.backupDir)
	}

	var out []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		b, err := s.LoadBackup(id)
		if err != nil {
			continue
		}
		info := BackupInfo{
			ID:        b.ID,
			Timestamp: b.Timestamp.Format("2006-01-02 15:04:05"),
			Actions:   len(b.Actions),
		}
		if b.State != nil {
			info.People = len(b.State.People)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create dir %s", dir)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal json")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to write %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to close %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}
