package system

import "github.com/spf13/cobra"

// NewSystemCommand groups the one-off commands an operator runs around a
// deploy: creating databases, applying the schema, regenerating CLI docs.
func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Prepare notifyhub storage and docs",
	}
	cmd.AddCommand(
		NewInitCommand(),
		NewMigrateCommand(),
		NewGenDocsCommand(),
	)
	return cmd
}
