package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/communityops/engage/modules/engagement/csvimport"
	"github.com/communityops/engage/modules/engagement/domain/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "state.json"), filepath.Join(dir, "backups"))
}

func TestLoadStateMissingFileYieldsEmptyState(t *testing.T) {
	s := newTestStore(t)

	st, err := s.LoadState()
	require.NoError(t, err)
	require.Empty(t, st.People)
	require.Empty(t, st.Activities)
	require.Empty(t, st.Families)
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	st := &model.State{
		People: []model.Person{{
			ID:           uuid.New(),
			Name:         "John Smith",
			Area:         "Oak Street",
			AgeGroup:     model.AgeGroupAdult,
			Categories:   []model.Category{model.CategoryJY},
			DateAdded:    now,
			LastModified: now,
		}},
	}

	require.NoError(t, s.SaveState(st))

	loaded, err := s.LoadState()
	require.NoError(t, err)
	require.Len(t, loaded.People, 1)
	require.Equal(t, "John Smith", loaded.People[0].Name)
	require.Equal(t, st.People[0].ID, loaded.People[0].ID)
	require.True(t, loaded.People[0].DateAdded.Equal(now))
}

func TestLoadStateCorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.statePath, []byte("{not json"), 0o644))

	_, err := s.LoadState()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode state file")
}

func TestBackupRoundTripAndListing(t *testing.T) {
	s := newTestStore(t)

	older := &csvimport.Backup{
		ID:        uuid.New(),
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		State:     &model.State{},
	}
	newer := &csvimport.Backup{
		ID:        uuid.New(),
		Timestamp: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		State: &model.State{People: []model.Person{
			{ID: uuid.New(), Name: "John Smith", Area: "Oak Street"},
		}},
		Actions: []csvimport.ImportAction{
			{Type: csvimport.ActionCreate, Entity: csvimport.EntityPerson, EntityID: uuid.New()},
		},
	}
	require.NoError(t, s.SaveBackup(older))
	require.NoError(t, s.SaveBackup(newer))

	loaded, err := s.LoadBackup(newer.ID)
	require.NoError(t, err)
	require.Equal(t, newer.ID, loaded.ID)
	require.Len(t, loaded.State.People, 1)
	require.Len(t, loaded.Actions, 1)

	infos, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, newer.ID, infos[0].ID)
	require.Equal(t, older.ID, infos[1].ID)
	require.Equal(t, 1, infos[0].Actions)
	require.Equal(t, 1, infos[0].People)
}

func TestSummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	summary := &csvimport.ImportSummary{
		SuccessCount: 3,
		ErrorCount:   1,
		Errors: []csvimport.ImportError{
			{RowNumber: 4, EntityName: "Row", Reason: "invalid age group"},
		},
		BackupID: uuid.New(),
	}
	require.NoError(t, s.SaveSummary(summary))

	loaded, err := s.LoadSummary(summary.BackupID)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.SuccessCount)
	require.Len(t, loaded.Errors, 1)
	require.Equal(t, summary.BackupID, loaded.BackupID)

	// Summary files never show up as backups.
	infos, err := s.ListBackups()
	require.NoError(t, err)
	require.Empty(t, infos)
}

func TestListBackupsSkipsForeignFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.backupDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.backupDir, "notes.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.backupDir, "README.md"), []byte("x"), 0o644))

	infos, err := s.ListBackups()
	require.NoError(t, err)
	require.Empty(t, infos)
}

func TestListBackupsMissingDir(t *testing.T) {
	s := newTestStore(t)
	infos, err := s.ListBackups()
	require.NoError(t, err)
	require.Nil(t, infos)
}

func TestSaveStateReplacesAtomically(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveState(&model.State{}))
	require.NoError(t, s.SaveState(&model.State{People: []model.Person{{ID: uuid.New(), Name: "Jane Smith"}}}))

	loaded, err := s.LoadState()
	require.NoError(t, err)
	require.Len(t, loaded.People, 1)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(s.statePath))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{"state.json"}, names)
}
