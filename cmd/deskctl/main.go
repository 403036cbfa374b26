// Command deskctl is the operator CLI: migrations, admin seeding, job
// triggers and offline document rendering.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Service desk operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedAdminCmd())
	root.AddCommand(newJobsCmd())
	root.AddCommand(newRenderCmd())
	return root
}
