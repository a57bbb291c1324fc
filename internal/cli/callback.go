package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCallbackCmd создаёт группу команд для ручной отправки callbacks.
// Используется для отладки без живого тестера.
func NewCallbackCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Send tester callbacks manually",
	}

	cmd.AddCommand(
		newCallbackStatusCmd(clientFn, outputFn),
		newCallbackResultCmd(clientFn, outputFn),
		newCallbackProgressCmd(clientFn, outputFn),
	)

	return cmd
}

func newCallbackStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var comment string
	var issueFailed bool
	var issueStep bool

	cmd := &cobra.Command{
		Use:   "status CORRELATION_ID STATUS",
		Short: "Send a status change callback",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exp, err := client.SendStatus(StatusCallbackRequest{
				CorrelationID:       args[0],
				Status:              args[1],
				Comment:             comment,
				MaterialIssueFailed: issueFailed,
				IsIssueStep:         issueStep,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Status applied: %s", args[1]))
			printExperiments(out, []ExperimentResponse{*exp})
			return nil
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Status change comment")
	cmd.Flags().BoolVar(&issueFailed, "issue-failed", false, "Material issue failed")
	cmd.Flags().BoolVar(&issueStep, "issue-step", false, "Material issue step acknowledgement")

	return cmd
}

func newCallbackResultCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var passed bool
	var comment string

	cmd := &cobra.Command{
		Use:   "result CORRELATION_ID",
		Short: "Send a condition result callback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exp, err := client.SendResult(ResultCallbackRequest{
				CorrelationID: args[0],
				Passed:        passed,
				Comment:       comment,
			})
			if err != nil {
				return err
			}

			out.Success("Result recorded")
			printExperiments(out, []ExperimentResponse{*exp})
			return nil
		},
	}

	cmd.Flags().BoolVar(&passed, "passed", false, "Test passed")
	cmd.Flags().StringVar(&comment, "comment", "", "Result comment")

	return cmd
}

func newCallbackProgressCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "progress EXPERIMENT_ID STATUS",
		Short: "Send an experiment progress callback",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.SendProgress(ProgressCallbackRequest{
				ExperimentID: args[0],
				Status:       args[1],
			}); err != nil {
				return err
			}

			out.Success("Progress forwarded")
			return nil
		},
	}
}
