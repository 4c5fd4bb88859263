package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"callscore/internal/store"
)

func newDictCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage phrase dictionaries",
	}
	cmd.AddCommand(newDictListCommand(ctx))
	cmd.AddCommand(newDictCreateCommand(ctx))
	cmd.AddCommand(newDictPhrasesCommand(ctx))
	cmd.AddCommand(newDictAddPhrasesCommand(ctx))
	cmd.AddCommand(newDictDeleteCommand(ctx))
	return cmd
}

func newDictListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all dictionaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				dicts, err := st.ListDictionaries(context.Background())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(dicts))
				for _, dict := range dicts {
					rows = append(rows, []string{
						strconv.FormatInt(dict.ID, 10),
						dict.Name,
						string(dict.Participant),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "NAME", "PARTICIPANT"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newDictCreateCommand(ctx *commandContext) *cobra.Command {
	var participantFlag string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a dictionary for one participant's speech",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, ok := store.ParseParticipant(participantFlag)
			if !ok {
				return fmt.Errorf("unknown participant %q (expected client or employee)", participantFlag)
			}

			return ctx.withStore(func(st *store.Store) error {
				dict, err := st.CreateDictionary(context.Background(), args[0], participant)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created dictionary %d (%s, %s)\n", dict.ID, dict.Name, dict.Participant)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&participantFlag, "participant", "employee", "Which side of the call to match (client, employee)")
	return cmd
}

func newDictPhrasesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "phrases <dictionary-id>",
		Short: "List a dictionary's phrases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid dictionary id %q", args[0])
			}

			return ctx.withStore(func(st *store.Store) error {
				phrases, err := st.ListPhrases(context.Background(), id)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(phrases))
				for _, phrase := range phrases {
					rows = append(rows, []string{strconv.FormatInt(phrase.ID, 10), phrase.Text})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "TEXT"},
					rows,
					[]columnAlignment{alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newDictAddPhrasesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-phrases <dictionary-id> <phrase>...",
		Short: "Add phrases to a dictionary",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid dictionary id %q", args[0])
			}

			return ctx.withStore(func(st *store.Store) error {
				if err := st.AddPhrases(context.Background(), id, args[1:]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d phrase(s) to dictionary %d\n", len(args)-1, id)
				return nil
			})
		},
	}
}

func newDictDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dictionary-id>",
		Short: "Delete a dictionary and everything bound to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid dictionary id %q", args[0])
			}

			return ctx.withStore(func(st *store.Store) error {
				if err := st.DeleteDictionary(context.Background(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted dictionary %d\n", id)
				return nil
			})
		},
	}
}
