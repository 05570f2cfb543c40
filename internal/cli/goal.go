package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/fluxi/internal/engine"
)

// goalParams holds the flags shared by "goal add" and "goal update".
type goalParams struct {
	name        string
	description string
	target      float64
	initial     float64
	deadline    string
	icon        string
	color       string
	status      string
}

func (p *goalParams) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.name, "name", "", "goal name")
	cmd.Flags().StringVar(&p.description, "description", "", "description")
	cmd.Flags().Float64Var(&p.target, "target", 0, "target amount, greater than zero")
	cmd.Flags().StringVar(&p.deadline, "deadline", "", "deadline YYYY-MM-DD")
	cmd.Flags().StringVar(&p.icon, "icon", "", "icon name")
	cmd.Flags().StringVar(&p.color, "color", "", "color, e.g. #5C3FD6")
}

// newGoalCmd creates the savings goal command group.
func newGoalCmd(app *appState, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals"},
		Short:   "Manage savings goals",
	}
	cmd.AddCommand(
		newGoalAddCmd(app),
		newGoalListCmd(app, out),
		newGoalUpdateCmd(app),
		newGoalDepositCmd(app),
		newGoalWithdrawCmd(app),
		newGoalDeleteCmd(app),
	)
	return cmd
}

func newGoalAddCmd(app *appState) *cobra.Command {
	var p goalParams

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create a savings goal",
		Example: `  fluxi goal add --name "Trip" --target 2500 --deadline 2025-12-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			g, err := e.CreateGoal(commandContext(cmd), engine.Goal{
				Name:          p.name,
				Description:   p.description,
				TargetAmount:  p.target,
				CurrentAmount: p.initial,
				Deadline:      p.deadline,
				Icon:          p.icon,
				Color:         p.color,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s (%s)\n", g.ID, g.Status)
			return err
		},
	}
	p.bind(cmd)
	cmd.Flags().Float64Var(&p.initial, "initial", 0, "amount already saved")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newGoalListCmd(app *appState, out *outputOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals, newest first",
		Example: `  fluxi goal list
  fluxi goal list --status completed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			s := engine.GoalStatus(strings.ToLower(status))
			if s == "all" {
				s = ""
			}
			goals, err := e.Goals(commandContext(cmd), s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return renderGoals(w, goals, out.styled(w))
		},
	}
	cmd.Flags().StringVar(&status, "status", "active", "active, completed, cancelled or all")
	return cmd
}

func newGoalUpdateCmd(app *appState) *cobra.Command {
	var p goalParams

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change fields of a goal",
		Example: `  fluxi goal update 01jnx3... --target 3000 --status cancelled`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}

			var u engine.GoalUpdate
			f := cmd.Flags()
			if f.Changed("name") {
				u.Name = &p.name
			}
			if f.Changed("description") {
				u.Description = &p.description
			}
			if f.Changed("target") {
				u.TargetAmount = &p.target
			}
			if f.Changed("deadline") {
				u.Deadline = &p.deadline
			}
			if f.Changed("icon") {
				u.Icon = &p.icon
			}
			if f.Changed("color") {
				u.Color = &p.color
			}
			if f.Changed("status") {
				s := engine.GoalStatus(strings.ToLower(p.status))
				u.Status = &s
			}

			g, err := e.UpdateGoal(commandContext(cmd), args[0], u)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated goal %s (%s)\n", g.ID, g.Status)
			return err
		},
	}
	p.bind(cmd)
	cmd.Flags().StringVar(&p.status, "status", "", "active, completed or cancelled")
	return cmd
}

// parseAmount parses a positional amount argument.
func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, engine.ErrInvalidAmount)
	}
	return v, nil
}

func newGoalDepositCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:     "deposit <id> <amount>",
		Short:   "Move money from the available balance into a goal",
		Example: `  fluxi goal deposit 01jnx3... 150`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			g, err := e.Deposit(commandContext(cmd), args[0], amount)
			if err != nil {
				return err
			}
			p := newPrinter()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s / %s (%s)\n",
				g.Name, money(p, g.CurrentAmount), money(p, g.TargetAmount), g.Status)
			return err
		},
	}
}

func newGoalWithdrawCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <id> [amount]",
		Short: "Return money from a goal to the available balance",
		Long:  "Returns money from a goal. Without an amount, everything saved in the goal is withdrawn.",
		Example: `  fluxi goal withdraw 01jnx3... 50
  fluxi goal withdraw 01jnx3...`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount float64
			if len(args) == 2 {
				var err error
				if amount, err = parseAmount(args[1]); err != nil {
					return err
				}
				if amount <= 0 {
					return engine.ErrInvalidAmount
				}
			}
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			g, err := e.Withdraw(commandContext(cmd), args[0], amount)
			if err != nil {
				return err
			}
			p := newPrinter()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s / %s (%s)\n",
				g.Name, money(p, g.CurrentAmount), money(p, g.TargetAmount), g.Status)
			return err
		},
	}
}

func newGoalDeleteCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			if err = e.DeleteGoal(commandContext(cmd), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal %s\n", args[0])
			return err
		},
	}
}
