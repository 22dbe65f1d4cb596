package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"daily-tasks/internal/logging"
	"daily-tasks/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the task store as MCP tools on stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: get_all_tasks, add_task, update_task, delete_task,
get_tasks_by_date, get_repeat_tasks. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol, so logs must stay on stderr.
	a, err := openApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(a.tasks, rootCmd.Version, logging.Component(a.log, "mcp"))
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
