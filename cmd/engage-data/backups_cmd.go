package main

import (
	"github.com/spf13/cobra"
)

func newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List stored import backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newService()
			backups, err := svc.Backups()
			if err != nil {
				return withCode(exitState, err)
			}
			for _, b := range backups {
				if err := writeJSONLine(b); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
