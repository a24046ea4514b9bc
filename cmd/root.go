package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	systemcmd "github.com/Alijeyrad/notifyhub/cmd/system"
	workercmd "github.com/Alijeyrad/notifyhub/cmd/worker"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "notifyhub",
	Short: "Notification subscription and fan-out engine.",
	Long: `notifyhub records events as notifications and fans them out to the mediums
entities are subscribed to, honoring group rules and unsubscribes.
Events arrive over NATS; subscriptions and notifications live in SQL.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(workercmd.NewWorkerCommand())
}
