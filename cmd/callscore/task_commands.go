package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"callscore/internal/store"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect processing tasks",
	}
	cmd.AddCommand(newTaskListCommand(ctx))
	cmd.AddCommand(newTaskShowCommand(ctx))
	cmd.AddCommand(newTaskStatsCommand(ctx))
	return cmd
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []store.Status
			if statusFlag != "" {
				status, ok := store.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of %v)", statusFlag, store.AllStatuses())
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(st *store.Store) error {
				tasks, err := st.ListTasks(context.Background(), args[0], statuses...)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						task.ID,
						string(task.Status),
						task.CreatedAt.Local().Format(time.RFC3339),
						task.FailedReason,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "STATUS", "CREATED", "FAILED REASON"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (processing, ready, failed)")
	return cmd
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task with its metrics and dictionary matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				bg := context.Background()
				task, err := st.GetTask(bg, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Task:     %s\n", task.ID)
				fmt.Fprintf(out, "Project:  %s\n", task.ProjectID)
				fmt.Fprintf(out, "Status:   %s\n", task.Status)
				if task.FailedReason != "" {
					fmt.Fprintf(out, "Reason:   %s\n", task.FailedReason)
				}
				fmt.Fprintf(out, "Created:  %s\n", task.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Updated:  %s\n", task.UpdatedAt.Local().Format(time.RFC3339))

				metrics, err := st.GetCallMetrics(bg, task.ID)
				switch {
				case err == nil:
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderMetrics(metrics))
				case errors.Is(err, store.ErrNotFound):
					fmt.Fprintln(out, "\nNo metrics staged yet.")
				default:
					return err
				}

				matches, err := st.ListMatches(bg, task.ID)
				if err != nil {
					return err
				}
				if len(matches) > 0 {
					rows := make([][]string, 0, len(matches))
					for _, match := range matches {
						rows = append(rows, []string{
							strconv.FormatInt(match.DictionaryID, 10),
							strconv.FormatBool(match.Found),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"DICTIONARY", "FOUND"},
						rows,
						[]columnAlignment{alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}
}

func renderMetrics(m *store.CallMetrics) string {
	rows := [][]string{
		{"call duration", fmt.Sprintf("%.1fs", m.CallDuration)},
		{"time to answer", fmt.Sprintf("%.1fs", m.TimeToAnswer)},
		{"employee speech", fmt.Sprintf("%.1fs (%.0f%%)", m.TotalEmployeeSpeech, m.EmployeeSpeechRatio)},
		{"client speech", fmt.Sprintf("%.1fs (%.0f%%)", m.TotalClientSpeech, m.ClientSpeechRatio)},
		{"speech ratio", fmt.Sprintf("%.0f%%", m.EmployeeClientSpeechRatio)},
		{"holds", strconv.Itoa(m.CallHoldsCount)},
		{"silence pauses", fmt.Sprintf("%d (%.1fs)", m.SilencePauseCount, m.TotalEmployeeSilence)},
		{"interruptions", fmt.Sprintf("%d (%.1fs)", m.ClientInterruptionsCount, m.TotalClientInterruptionsDuration)},
		{"employee wpm", fmt.Sprintf("%.0f", m.AvgEmployeeWordsPerMin)},
		{"client wpm", fmt.Sprintf("%.0f", m.AvgClientWordsPerMin)},
		{"script score", formatScore(m.ScriptScore)},
		{"quality score", formatScore(m.EmployeeQualityScore)},
		{"emotion", formatEmotion(m.EmotionMode)},
	}
	return renderTable(
		[]string{"METRIC", "VALUE"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return strconv.Itoa(*score)
}

func formatEmotion(emotion *store.Emotion) string {
	if emotion == nil {
		return "-"
	}
	return string(*emotion)
}

func newTaskStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <project-id>",
		Short: "Count a project's tasks per status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				stats, err := st.TaskStats(context.Background(), args[0])
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(stats))
				for _, status := range store.AllStatuses() {
					rows = append(rows, []string{string(status), strconv.Itoa(stats[status])})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"STATUS", "COUNT"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
