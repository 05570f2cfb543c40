package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/fluxi/internal/engine"
)

// txParams holds the flags shared by "tx add" and "tx update".
type txParams struct {
	typ         string
	amount      float64
	description string
	category    string
	date        string
	notes       string
}

func (p *txParams) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.typ, "type", "t", "", "income or expense")
	cmd.Flags().Float64VarP(&p.amount, "amount", "a", 0, "amount, greater than zero")
	cmd.Flags().StringVarP(&p.description, "description", "d", "", "description")
	cmd.Flags().StringVar(&p.category, "category", "", "category id (see 'fluxi tx categories')")
	cmd.Flags().StringVar(&p.date, "date", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&p.notes, "notes", "", "free-text notes")
}

// newTxCmd creates the transaction command group.
func newTxCmd(app *appState, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction", "transactions"},
		Short:   "Record and list income and expenses",
	}
	cmd.AddCommand(
		newTxAddCmd(app),
		newTxListCmd(app),
		newTxUpdateCmd(app),
		newTxDeleteCmd(app),
		newTxCategoriesCmd(app),
		newTxByCategoryCmd(app, out),
	)
	return cmd
}

func newTxAddCmd(app *appState) *cobra.Command {
	var p txParams

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  fluxi tx add --type income --amount 3200 --description "Salary"
  fluxi tx add -t expense -a 18.50 -d "Lunch" --date 2025-03-07`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			tx, err := e.CreateTransaction(commandContext(cmd), engine.Transaction{
				Type:        engine.TransactionType(strings.ToLower(p.typ)),
				Amount:      p.amount,
				Description: p.description,
				CategoryID:  p.category,
				Date:        p.date,
				Notes:       p.notes,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s\n", tx.Type, tx.ID)
			return err
		},
	}
	p.bind(cmd)
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTxListCmd(app *appState) *cobra.Command {
	var (
		typ      string
		from     string
		to       string
		category string
		limit    int
		asc      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Example: `  fluxi tx list
  fluxi tx list --type expense --from 2025-03-01 --to 2025-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			txs, err := e.Transactions(commandContext(cmd), engine.TransactionFilter{
				Type:       engine.TransactionType(strings.ToLower(typ)),
				StartDate:  from,
				EndDate:    to,
				CategoryID: category,
				Limit:      limit,
				Ascending:  asc,
			})
			if err != nil {
				return err
			}
			return renderTransactions(cmd.OutOrStdout(), txs)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "only income or expense")
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&category, "category", "", "only this category id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum rows (default 50)")
	cmd.Flags().BoolVar(&asc, "asc", false, "oldest first")
	return cmd
}

func newTxUpdateCmd(app *appState) *cobra.Command {
	var p txParams

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change fields of a transaction",
		Example: `  fluxi tx update 01jnx3... --amount 20.75`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}

			var u engine.TransactionUpdate
			f := cmd.Flags()
			if f.Changed("type") {
				t := engine.TransactionType(strings.ToLower(p.typ))
				u.Type = &t
			}
			if f.Changed("amount") {
				u.Amount = &p.amount
			}
			if f.Changed("description") {
				u.Description = &p.description
			}
			if f.Changed("category") {
				u.CategoryID = &p.category
			}
			if f.Changed("date") {
				u.Date = &p.date
			}
			if f.Changed("notes") {
				u.Notes = &p.notes
			}

			tx, err := e.UpdateTransaction(commandContext(cmd), args[0], u)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", tx.ID)
			return err
		},
	}
	p.bind(cmd)
	return cmd
}

func newTxDeleteCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			if err = e.DeleteTransaction(commandContext(cmd), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		},
	}
}

func newTxCategoriesCmd(app *appState) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List transaction categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			cats, err := e.Categories(commandContext(cmd), engine.TransactionType(strings.ToLower(typ)))
			if err != nil {
				return err
			}
			for _, c := range cats {
				if _, err = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s  %s\n", c.ID, c.Type, c.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "only income or expense categories")
	return cmd
}

func newTxByCategoryCmd(app *appState, out *outputOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "by-category",
		Short: "Total expenses per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			rows, err := e.ExpensesByCategory(commandContext(cmd), from, to)
			if err != nil {
				return err
			}

			p := newPrinter()
			var b strings.Builder
			if len(rows) == 0 {
				b.WriteString("No categorized expenses.\n")
			}
			for _, r := range rows {
				b.WriteString(p.Sprintf("%-16s %12s  (%d)\n", r.Name, money(p, r.Total), r.Count))
			}
			w := cmd.OutOrStdout()
			return renderBox(w, "EXPENSES BY CATEGORY", b.String(), out.styled(w))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD (inclusive)")
	return cmd
}
