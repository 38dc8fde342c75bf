// Package services orchestrates the import pipeline over persisted state:
// structure a CSV, execute it against the live collections, persist the
// backup and the new state, and roll back when asked.
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/communityops/engage/modules/engagement/csvimport"
	"github.com/communityops/engage/modules/engagement/domain/model"
	"github.com/communityops/engage/modules/engagement/match"
	"github.com/communityops/engage/pkg/configuration"
	"github.com/communityops/engage/pkg/store"
)

type ImportService struct {
	store    *store.Store
	executor *csvimport.Executor
	match    configuration.MatchOptions
	log      *logrus.Logger
}

func NewImportService(conf *configuration.Configuration, log *logrus.Logger) *ImportService {
	executor := csvimport.NewExecutor()
	executor.AttendeeThreshold = conf.Match.AttendeeThreshold
	return &ImportService{
		store:    store.New(conf.StatePath, conf.BackupDir),
		executor: executor,
		match:    conf.Match,
		log:      log,
	}
}

// Preview structures the CSV without touching state. This is the dry run: the
// caller gets every validation finding and the detected type.
func (s *ImportService) Preview(text string, explicitType csvimport.ImportType) (*csvimport.ParseResult, error) {
	result, err := csvimport.Structure(text, explicitType)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"import_type":   result.ImportType,
		"type_detected": result.TypeDetected,
		"total_rows":    result.TotalRows,
		"valid_rows":    result.ValidRows,
		"error_rows":    result.ErrorRows,
	}).Info("structured import file")
	return result, nil
}

// Execute runs the full pipeline and persists both the backup and the new
// state. The backup is written before the state, so a failed state write
// still leaves a way back.
func (s *ImportService) Execute(ctx context.Context, text string, explicitType csvimport.ImportType) (*csvimport.ImportSummary, *csvimport.ParseResult, error) {
	result, err := s.Preview(text, explicitType)
	if err != nil {
		return nil, nil, err
	}
	if len(result.HeaderErrors) > 0 {
		return nil, result, errors.New("import file is missing required columns")
	}

	st, err := s.store.LoadState()
	if err != nil {
		return nil, result, err
	}

	summary, err := s.executor.ExecuteImport(ctx, result, st)
	if err != nil {
		return nil, result, err
	}

	backup, ok := s.executor.RestoreBackup(summary.BackupID)
	if !ok {
		return nil, result, errors.Errorf("backup %s missing after import", summary.BackupID)
	}
	if err := s.store.SaveBackup(backup); err != nil {
		return nil, result, err
	}
	if err := s.store.SaveState(st); err != nil {
		return nil, result, err
	}
	if err := s.store.SaveSummary(summary); err != nil {
		return nil, result, err
	}

	s.log.WithFields(logrus.Fields{
		"backup_id":          summary.BackupID,
		"success":            summary.SuccessCount,
		"errors":             summary.ErrorCount,
		"created_people":     summary.Created.People,
		"created_families":   summary.Created.Families,
		"created_activities": summary.Created.Activities,
		"updated_people":     summary.Updated.People,
		"updated_activities": summary.Updated.Activities,
	}).Info("import applied")
	return summary, result, nil
}

// Rollback replaces the live state with a stored backup snapshot.
func (s *ImportService) Rollback(backupID uuid.UUID) (*csvimport.Backup, error) {
	backup, err := s.store.LoadBackup(backupID)
	if err != nil {
		return nil, err
	}
	if backup.State == nil {
		return nil, errors.Errorf("backup %s has no snapshot", backupID)
	}
	if err := s.store.SaveState(backup.State); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"backup_id": backupID,
		"actions":   len(backup.Actions),
	}).Info("state rolled back to backup")
	return backup, nil
}

func (s *ImportService) Backups() ([]store.BackupInfo, error) {
	return s.store.ListBackups()
}

// Summary returns the persisted summary of a past import.
func (s *ImportService) Summary(backupID uuid.UUID) (*csvimport.ImportSummary, error) {
	return s.store.LoadSummary(backupID)
}

func (s *ImportService) State() (*model.State, error) {
	return s.store.LoadState()
}

// FindSimilarPeople exposes fuzzy person search against the persisted state,
// using the configured candidate threshold.
func (s *ImportService) FindSimilarPeople(name string) ([]match.Match, error) {
	st, err := s.store.LoadState()
	if err != nil {
		return nil, err
	}
	return match.FindSimilarPeople(name, st.People, s.match.Threshold), nil
}
