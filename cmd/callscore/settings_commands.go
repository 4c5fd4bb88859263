package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"callscore/internal/store"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage per-project scoring configuration",
	}
	cmd.AddCommand(newSettingsShowCommand(ctx))
	cmd.AddCommand(newSettingsCreateCommand(ctx))
	cmd.AddCommand(newSettingsAddItemCommand(ctx))
	cmd.AddCommand(newSettingsRemoveItemCommand(ctx))
	return cmd
}

func parseSettingsKindArg(value string) (store.SettingsKind, error) {
	kind, ok := store.ParseSettingsKind(value)
	if !ok {
		return "", fmt.Errorf("unknown settings type %q (expected quality or script)", value)
	}
	return kind, nil
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id> <quality|script>",
		Short: "Show a project's scoring container with items and bindings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseSettingsKindArg(args[1])
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				settings, err := st.GetSettings(context.Background(), args[0], kind)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Container: %s (%s, project %s)\n", settings.ID, settings.Kind, settings.ProjectID)
				fmt.Fprintf(out, "Total weight: %d\n\n", settings.WeightSum())

				rows := make([][]string, 0, len(settings.Items))
				for _, item := range settings.Items {
					rows = append(rows, []string{
						item.ID,
						item.Name,
						string(item.Kind),
						strconv.Itoa(item.ScoreWeight),
						strconv.FormatBool(item.Immutable),
						formatBindings(item.Bindings),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "NAME", "TYPE", "WEIGHT", "SYSTEM", "BINDINGS"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func formatBindings(bindings []store.DictionaryBinding) string {
	if len(bindings) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		polarity := "must contain"
		if !binding.Contains {
			polarity = "must not contain"
		}
		parts = append(parts, fmt.Sprintf("dict %d (%s)", binding.DictionaryID, polarity))
	}
	return strings.Join(parts, ", ")
}

func newSettingsCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <project-id> <quality|script>",
		Short: "Create a project's scoring container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseSettingsKindArg(args[1])
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				settings, err := st.CreateSettings(context.Background(), args[0], kind)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s container %s for project %s\n", settings.Kind, settings.ID, settings.ProjectID)
				return nil
			})
		},
	}
}

func newSettingsAddItemCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag    string
		weightFlag  int
		containFlag []int64
		excludeFlag []int64
	)

	cmd := &cobra.Command{
		Use:   "add-item <settings-id> <name>",
		Short: "Add a weighted criterion to a container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := store.ParseItemKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown item type %q", kindFlag)
			}

			var bindings []store.NewDictionaryBinding
			for _, id := range containFlag {
				bindings = append(bindings, store.NewDictionaryBinding{DictionaryID: id, Contains: true})
			}
			for _, id := range excludeFlag {
				bindings = append(bindings, store.NewDictionaryBinding{DictionaryID: id, Contains: false})
			}

			return ctx.withStore(func(st *store.Store) error {
				item, err := st.AddSettingsItem(context.Background(), args[0], store.NewSettingsItem{
					Kind:        kind,
					Name:        args[1],
					ScoreWeight: weightFlag,
					Bindings:    bindings,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added item %s (%s, weight %d)\n", item.ID, item.Kind, item.ScoreWeight)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kindFlag, "type", string(store.ItemDictionary), "Criterion type")
	cmd.Flags().IntVar(&weightFlag, "weight", 1, "Score weight")
	cmd.Flags().Int64SliceVar(&containFlag, "contains", nil, "Dictionary ids whose phrases must be present")
	cmd.Flags().Int64SliceVar(&excludeFlag, "excludes", nil, "Dictionary ids whose phrases must be absent")
	return cmd
}

func newSettingsRemoveItemCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <item-id>",
		Short: "Remove a user-defined criterion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				if err := st.DeleteSettingsItem(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %s\n", args[0])
				return nil
			})
		},
	}
}
