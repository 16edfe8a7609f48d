package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/store"
)

var (
	budgetsFilter store.BudgetFilter
	budgetsStatus string
	budgetsJSON   bool
	statusID      string
	statusTo      string
)

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "List and manage stored budgets",
}

var budgetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored budgets, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := model.ParseStatus(budgetsStatus)
		if err != nil {
			return &apperr.InvalidInputError{Reason: err.Error()}
		}
		filter := budgetsFilter
		filter.Status = st

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return runBudgetsList(cmd.Context(), env, filter, budgetsJSON, cmd.OutOrStdout())
	},
}

var budgetsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Move a budget to another commercial status",
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := model.ParseStatus(statusTo)
		if err != nil || to == "" {
			return &apperr.InvalidInputError{Reason: "--to must be one of RASCUNHO, ENVIADO, APROVADO, REJEITADO"}
		}
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Store.UpdateBudgetStatus(cmd.Context(), statusID, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rec.Budget.Codigo, rec.Status)
		return nil
	},
}

func runBudgetsList(ctx context.Context, env *appEnv, filter store.BudgetFilter, asJSON bool, w io.Writer) error {
	recs, err := env.Store.ListBudgets(ctx, filter)
	if err != nil {
		return err
	}
	if asJSON {
		if recs == nil {
			recs = []model.BudgetRecord{}
		}
		return printJSON(w, recs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODIGO\tESCRITORIO\tSTATUS\tVALOR\tCRIADO")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n",
			r.Budget.Codigo, r.EscritorioID, r.Status, r.Budget.ValorTotal, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func init() {
	budgetsListCmd.Flags().StringVar(&budgetsFilter.EscritorioID, "escritorio", "", "filter by office id")
	budgetsListCmd.Flags().StringVar(&budgetsStatus, "status", "", "filter by status")
	budgetsListCmd.Flags().IntVar(&budgetsFilter.Limit, "limit", 100, "max budgets to list")
	budgetsListCmd.Flags().IntVar(&budgetsFilter.Offset, "offset", 0, "budgets to skip")
	budgetsListCmd.Flags().BoolVar(&budgetsJSON, "json", false, "print JSON instead of a table")

	budgetsStatusCmd.Flags().StringVar(&statusID, "id", "", "budget id")
	budgetsStatusCmd.Flags().StringVar(&statusTo, "to", "", "target status")
	_ = budgetsStatusCmd.MarkFlagRequired("id")
	_ = budgetsStatusCmd.MarkFlagRequired("to")

	budgetsCmd.AddCommand(budgetsListCmd, budgetsStatusCmd)
	rootCmd.AddCommand(budgetsCmd)
}
