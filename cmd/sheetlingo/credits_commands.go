package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sheetlingo/internal/config"
	"sheetlingo/internal/store"
)

func newCreditsCommand(ctx *commandContext) *cobra.Command {
	var user string

	creditsCmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and grant word credits",
		Long: `Inspect and grant word credits.

Each job is checked against the user's balance before it starts and is
debited by the words actually translated. Metering only applies when
credits.enabled is true; balances can be managed either way.`,
	}
	creditsCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "Account owner (default user when empty)")

	creditsCmd.AddCommand(newCreditsBalanceCommand(ctx, &user))
	creditsCmd.AddCommand(newCreditsGrantCommand(ctx, &user))
	creditsCmd.AddCommand(newCreditsHistoryCommand(ctx, &user))
	return creditsCmd
}

func newCreditsBalanceCommand(ctx *commandContext, user *string) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the remaining word balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				balance, err := st.Credits(cfg.Credits.InitialGrant).Balance(cmd.Context(), *user)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"user":    displayUser(*user),
						"balance": balance,
						"metered": cfg.Credits.Enabled,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s words\n", displayUser(*user), humanize.Comma(balance))
				if !cfg.Credits.Enabled {
					fmt.Fprintln(out, "Credits are disabled; jobs are not metered")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCreditsGrantCommand(ctx *commandContext, user *string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "grant <words>",
		Short: "Add words to a balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid word amount %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				balance, err := st.Credits(cfg.Credits.InitialGrant).Grant(cmd.Context(), *user, amount, note)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Granted %s words to %s; balance is now %s\n",
					humanize.Comma(amount), displayUser(*user), humanize.Comma(balance))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Note stored with the transaction")
	return cmd
}

func newCreditsHistoryCommand(ctx *commandContext, user *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent credit transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				history, err := st.Credits(cfg.Credits.InitialGrant).History(cmd.Context(), *user, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(history) == 0 {
					fmt.Fprintf(out, "No transactions for %s\n", displayUser(*user))
					return nil
				}
				rows := make([][]string, 0, len(history))
				for _, t := range history {
					rows = append(rows, []string{
						formatAge(t.CreatedAt),
						t.Kind,
						humanize.Comma(t.Amount),
						humanize.Comma(t.BalanceAfter),
						dash(shortID(t.JobID)),
						dash(t.Note),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"When", "Kind", "Amount", "Balance", "Job", "Note"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transactions to show (0 for all)")
	return cmd
}
