package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/fluxi/internal/engine"
)

// newSummaryCmd creates the "summary" command printing the cached balance overview.
func newSummaryCmd(app *appState, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses, balance and money in goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			s, err := e.FinancialSummary(commandContext(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return renderSummary(w, s, out.styled(w))
		},
	}
}

// newDashboardCmd creates the "dashboard" command loading every landing page read.
func newDashboardCmd(app *appState, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show summary, recent transactions, the last 7 days and the next goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			d, err := e.Dashboard(commandContext(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return renderDashboard(w, d, out.styled(w))
		},
	}
}

// newProfileCmd creates the profile command group.
func newProfileCmd(app *appState, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			p, err := e.Profile(commandContext(cmd))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			return renderProfile(w, p, out.styled(w))
		},
	}

	var name, avatar string
	update := &cobra.Command{
		Use:     "update",
		Short:   "Change the profile name or avatar",
		Example: `  fluxi profile update --name "Ada Lovelace" --avatar https://example.com/ada.png`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var u engine.ProfileUpdate
			if cmd.Flags().Changed("name") {
				u.FullName = &name
			}
			if cmd.Flags().Changed("avatar") {
				u.AvatarURL = &avatar
			}
			if u.FullName == nil && u.AvatarURL == nil {
				return errors.New("nothing to update: set --name or --avatar")
			}
			e, err := app.financeEngine()
			if err != nil {
				return err
			}
			p, err := e.UpdateProfile(commandContext(cmd), u)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %s\n", p.FullName)
			return err
		},
	}
	update.Flags().StringVar(&name, "name", "", "full name")
	update.Flags().StringVar(&avatar, "avatar", "", "avatar URL")

	cmd.AddCommand(show, update)
	return cmd
}
