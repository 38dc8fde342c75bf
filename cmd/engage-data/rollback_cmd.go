package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type rollbackOptions struct {
	backupID uuid.UUID
	apply    bool
	yes      bool
}

func newRollbackCmd() *cobra.Command {
	var opts rollbackOptions
	var backup string

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore the state snapshot taken before an import",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(opts)
		},
	}

	cmd.Flags().StringVar(&backup, "backup", "", "Backup UUID from an import summary (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply rollback (default is dry-run)")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Confirm destructive rollback")
	_ = cmd.MarkFlagRequired("backup")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(strings.TrimSpace(backup))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --backup: %w", err))
		}
		opts.backupID = id
		return nil
	}

	return cmd
}

func runRollback(opts rollbackOptions) error {
	svc := newService()

	if !opts.apply {
		backups, err := svc.Backups()
		if err != nil {
			return withCode(exitState, err)
		}
		for _, b := range backups {
			if b.ID == opts.backupID {
				return writeJSONLine(struct {
					Status    string `json:"status"`
					BackupID  string `json:"backup_id"`
					Timestamp string `json:"timestamp"`
					Actions   int    `json:"actions"`
					People    int    `json:"people"`
				}{"dry_run", b.ID.String(), b.Timestamp, b.Actions, b.People})
			}
		}
		return withCode(exitValidation, fmt.Errorf("backup %s not found", opts.backupID))
	}

	if !opts.yes {
		return withCode(exitSafetyNet, fmt.Errorf("refusing to rollback without --yes"))
	}

	backup, err := svc.Rollback(opts.backupID)
	if err != nil {
		return withCode(exitStateWrite, err)
	}
	return writeJSONLine(struct {
		Status   string `json:"status"`
		BackupID string `json:"backup_id"`
		Actions  int    `json:"actions"`
	}{"applied", backup.ID.String(), len(backup.Actions)})
}
