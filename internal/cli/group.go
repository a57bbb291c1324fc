package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewGroupCmd создаёт группу команд для управления группами экспериментов.
func NewGroupCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage experiment groups",
	}

	cmd.AddCommand(
		newGroupCreateCmd(clientFn, outputFn),
		newGroupShowCmd(clientFn, outputFn),
		newGroupUpdateCmd(clientFn, outputFn),
		newGroupAddCmd(clientFn, outputFn),
		newGroupCancelCmd(clientFn, outputFn),
		newGroupDeleteCmd(clientFn, outputFn),
		newGroupResumeCmd(clientFn, outputFn),
		newGroupStateCmd(clientFn, outputFn),
	)

	return cmd
}

func newGroupCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an experiment group from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read group file: %w", err)
			}

			group, err := client.CreateGroup(json.RawMessage(body))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Group created: %s", group.ID))
			printGroup(out, group)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to group definition JSON (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newGroupShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show group details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			group, err := client.GetGroup(args[0])
			if err != nil {
				return err
			}

			printGroup(out, group)
			return nil
		},
	}
}

func newGroupUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var owner string

	cmd := &cobra.Command{
		Use:   "update GROUP_ID",
		Short: "Update group name and owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			group, err := client.UpdateGroup(args[0], UpdateGroupRequest{
				Name:  name,
				Owner: owner,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Group updated: %s", group.ID))
			printGroup(out, group)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New group name (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "New group owner")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newGroupAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add GROUP_ID",
		Short: "Add experiments to a group from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read experiments file: %w", err)
			}

			group, err := client.AddExperiments(args[0], json.RawMessage(body))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Experiments added to group: %s", group.ID))
			printGroup(out, group)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to experiments JSON (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newGroupCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var experiments []string
	var comment string

	cmd := &cobra.Command{
		Use:   "cancel GROUP_ID",
		Short: "Cancel experiments in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			group, err := client.CancelExperiments(args[0], CancelExperimentsRequest{
				ExperimentIDs: experiments,
				Comment:       comment,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Experiments cancelled in group: %s", group.ID))
			printGroup(out, group)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&experiments, "experiment", nil, "Experiment ID (repeatable)")
	cmd.Flags().StringVar(&comment, "comment", "", "Cancellation comment")
	cmd.MarkFlagRequired("experiment")

	return cmd
}

func newGroupDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var experiments []string
	var comment string

	cmd := &cobra.Command{
		Use:   "delete GROUP_ID",
		Short: "Cancel and archive experiments in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			group, err := client.DeleteExperiments(args[0], CancelExperimentsRequest{
				ExperimentIDs: experiments,
				Comment:       comment,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Experiments archived in group: %s", group.ID))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&experiments, "experiment", nil, "Experiment ID (repeatable)")
	cmd.Flags().StringVar(&comment, "comment", "", "Deletion comment")
	cmd.MarkFlagRequired("experiment")

	return cmd
}

func newGroupResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "resume GROUP_ID EXPERIMENT_ID",
		Short: "Resume a paused experiment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exp, err := client.ResumeExperiment(args[0], args[1], comment)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Experiment resumed: %s", exp.ID))
			printExperiments(out, []ExperimentResponse{*exp})
			return nil
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Resume comment")

	return cmd
}

func newGroupStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var experiments []string

	cmd := &cobra.Command{
		Use:   "state GROUP_ID STATE",
		Short: "Set experiments state (DRAFT or READY)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			group, err := client.UpdateState(args[0], UpdateStateRequest{
				ExperimentIDs: experiments,
				State:         args[1],
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("State updated in group: %s", group.ID))
			printGroup(out, group)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&experiments, "experiment", nil, "Experiment ID (repeatable)")
	cmd.MarkFlagRequired("experiment")

	return cmd
}

// printGroup выводит группу: строка на эксперимент.
func printGroup(out *Output, group *GroupResponse) {
	headers := []string{"ID", "TITLE", "STATE", "ARCHIVED", "LOT", "STAGES"}
	rows := make([][]string, len(group.Experiments))
	for i, e := range group.Experiments {
		rows[i] = []string{
			shortID(e.ID), e.Title, e.State,
			strconv.FormatBool(e.IsArchived),
			e.LotID,
			strconv.Itoa(len(e.Stages)),
		}
	}
	out.Print(headers, rows, group)
}

// printExperiments выводит таблицу экспериментов.
func printExperiments(out *Output, experiments []ExperimentResponse) {
	headers := []string{"ID", "TITLE", "STATE", "ARCHIVED", "LOT", "STAGES"}
	rows := make([][]string, len(experiments))
	for i, e := range experiments {
		rows[i] = []string{
			shortID(e.ID), e.Title, e.State,
			strconv.FormatBool(e.IsArchived),
			e.LotID,
			strconv.Itoa(len(e.Stages)),
		}
	}
	out.Print(headers, rows, experiments)
}
