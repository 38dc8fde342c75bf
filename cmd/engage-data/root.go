package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/communityops/engage/modules/engagement/services"
	"github.com/communityops/engage/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "engage-data",
		Short:         "Community engagement data import/rollback tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newRollbackCmd())
	cmd.AddCommand(newBackupsCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newMatchCmd())
	return cmd
}

func newService() *services.ImportService {
	conf := configuration.Use()
	return services.NewImportService(conf, conf.Logger())
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

func main() {
	Execute()
}
