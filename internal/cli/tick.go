package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick [YYYY-MM-DD]",
	Short: "Run the nightly rollover and recurrence as of a date",
	Long: `Run rollover and recurrence once, as the nightly job would at the
start of the given day (today by default). Changes are written to the store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTick,
}

func runTick(cmd *cobra.Command, args []string) error {
	day, err := dayArg(args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.loadPlanner(cmd.Context())
	if err != nil {
		return err
	}
	moved, created := p.RunDaily(cmd.Context(), day)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d task(s) rolled over, %d recurring instance(s) created\n", moved, len(created))
	for _, task := range created {
		fmt.Fprintf(out, "  + %s  %s\n", task.ID, task.Title)
	}
	return nil
}
