package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage simulation executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionSnapshotCmd(clientFn, outputFn),
		newExecutionPauseCmd(clientFn, outputFn),
		newExecutionResumeCmd(clientFn, outputFn),
		newExecutionStopCmd(clientFn, outputFn),
	)

	return cmd
}

var executionHeaders = []string{"ID", "TEMPLATE_ID", "STATUS", "TICK", "CREATED"}

func executionRow(e *ExecutionResponse) []string {
	return []string{e.ID, e.TemplateID, e.Status, strconv.Itoa(e.CurrentTick), e.CreatedAt}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var templateID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				TemplateID: templateID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(executions))
			for i := range executions {
				rows[i] = executionRow(&executions[i])
			}

			out.Print(executionHeaders, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template-id", "", "Filter by template ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (IDLE, RUNNING, PAUSED, STOPPED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var variables []string
	var seed int64
	var tickIntervalMs int

	cmd := &cobra.Command{
		Use:   "start TEMPLATE_ID",
		Short: "Start a new execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateExecutionRequest{
				Seed:           seed,
				TickIntervalMs: tickIntervalMs,
			}

			if len(variables) > 0 {
				req.Variables = make(map[string]any)
				for _, kv := range variables {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid variable format %q, expected KEY=VALUE", kv)
					}
					req.Variables[parts[0]] = parts[1]
				}
			}

			exec, err := client.CreateExecution(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))
			out.Print(executionHeaders, [][]string{executionRow(exec)}, exec)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&variables, "var", nil, "Scenario variables as KEY=VALUE (repeatable)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = random)")
	cmd.Flags().IntVar(&tickIntervalMs, "tick-interval-ms", 0, "Tick interval in milliseconds")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "TEMPLATE_ID", "STATUS", "TICK", "SEED", "CREATED"},
				[][]string{{
					exec.ID, exec.TemplateID, exec.Status,
					strconv.Itoa(exec.CurrentTick), strconv.FormatInt(exec.Seed, 10), exec.CreatedAt,
				}},
				exec,
			)
			return nil
		},
	}
}

func newExecutionSnapshotCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot ID",
		Short: "Show the latest node state snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			snapshot, err := client.GetSnapshot(args[0])
			if err != nil {
				return err
			}

			out.Snapshot(snapshot)
			return nil
		},
	}
}

func newExecutionPauseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "pause ID",
		Short: "Pause a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.PauseExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Pause requested: %s", exec.ID))
			return nil
		},
	}
}

func newExecutionResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume ID",
		Short: "Resume a paused execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.ResumeExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Resume requested: %s", exec.ID))
			return nil
		},
	}
}

func newExecutionStopCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stop ID",
		Short: "Stop an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.StopExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Stop requested: %s", exec.ID))
			return nil
		},
	}
}
