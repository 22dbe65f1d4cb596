// Package cli wires configuration, storage and the planner into the dailytasks commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "dailytasks",
		Short: "Daily task planner with rollover and weekly recurrence",
		Long: `dailytasks keeps a task list bucketed by civil day (UTC+9).

Every night pending tasks due today move to tomorrow and recurring tasks
spawn today's instance. Tasks are reachable through a Telegram bot, an MCP
tool server on stdio and the day/tick commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a config file (default ./dailytasks.yaml if present)")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(tickCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
