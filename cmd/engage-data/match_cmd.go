package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <name>",
		Short: "Find people with names similar to the given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return withCode(exitUsage, fmt.Errorf("name must not be empty"))
			}
			matches, err := newService().FindSimilarPeople(name)
			if err != nil {
				return withCode(exitState, err)
			}
			for _, m := range matches {
				if err := writeJSONLine(m); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
