package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/fluxi/internal/engine"
)

// Rendering constants.
const (
	boxWidth          = 56
	boxTitlePadding   = 4
	progressBarWidth  = 20
	chartBarWidth     = 24
	progressFilled    = "█"
	progressEmpty     = "░"
	percentFull       = 100
	shortIDLength     = 8
	descriptionMaxLen = 28
)

// outputOptions carries rendering decisions made once per invocation.
type outputOptions struct {
	noColor bool
}

// styled reports whether w should receive lipgloss output.
func (o *outputOptions) styled(w io.Writer) bool {
	return !o.noColor && isWriterTerminal(w)
}

// isWriterTerminal reports whether w is a terminal file.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

func boxBorderColor() lipgloss.Color { return lipgloss.Color("240") }
func boxTitleColor() lipgloss.Color  { return lipgloss.Color("39") }
func incomeColor() lipgloss.Color    { return lipgloss.Color("42") }
func expenseColor() lipgloss.Color   { return lipgloss.Color("203") }
func mutedColor() lipgloss.Color     { return lipgloss.Color("244") }

// newPrinter returns the printer used for money and counts.
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// money formats v with two decimals and thousands separators.
func money(p *message.Printer, v float64) string {
	return p.Sprintf("%.2f", v)
}

// shortID shortens a ULID for table output.
func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[len(id)-shortIDLength:]
}

// truncate cuts s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// progressBar renders pct (0-100+) as a fixed-width bar.
func progressBar(pct float64, width int, styled bool) string {
	capped := min(max(pct, 0), percentFull)
	filled := int(capped / percentFull * float64(width))
	bar := strings.Repeat(progressFilled, filled)
	rest := strings.Repeat(progressEmpty, width-filled)
	if !styled {
		return bar + rest
	}
	return lipgloss.NewStyle().Foreground(incomeColor()).Render(bar) +
		lipgloss.NewStyle().Foreground(boxBorderColor()).Render(rest)
}

// renderBox frames content with a title when styled, or prints a plain header.
func renderBox(w io.Writer, title, content string, styled bool) error {
	if !styled {
		_, err := fmt.Fprintf(w, "%s\n%s\n%s", title, strings.Repeat("=", len(title)), content)
		return err
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(boxTitleColor())
	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(boxBorderColor()).
		Padding(0, 1).
		Width(boxWidth)

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("═", boxWidth-boxTitlePadding))
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(content, "\n"))

	_, err := fmt.Fprintln(w, border.Render(b.String()))
	return err
}

// summaryContent lists the balance overview lines.
func summaryContent(p *message.Printer, s engine.Summary, styled bool) string {
	income := money(p, s.Income)
	expense := money(p, s.Expense)
	if styled {
		income = lipgloss.NewStyle().Foreground(incomeColor()).Render(income)
		expense = lipgloss.NewStyle().Foreground(expenseColor()).Render(expense)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Income:        %s\n", income)
	fmt.Fprintf(&b, "Expenses:      %s\n", expense)
	fmt.Fprintf(&b, "Balance:       %s\n", money(p, s.Balance))
	fmt.Fprintf(&b, "In goals:      %s\n", money(p, s.InGoals))
	fmt.Fprintf(&b, "Available:     %s\n", money(p, s.Available))
	b.WriteString(p.Sprintf("Transactions:  %d\n", s.TransactionCount))
	return b.String()
}

// renderSummary writes the balance overview.
func renderSummary(w io.Writer, s engine.Summary, styled bool) error {
	return renderBox(w, "FINANCIAL SUMMARY", summaryContent(newPrinter(), s, styled), styled)
}

// transactionLines renders transactions as aligned rows.
func transactionLines(p *message.Printer, txs []engine.Transaction, styled bool) string {
	if len(txs) == 0 {
		return "No transactions.\n"
	}
	var b strings.Builder
	for _, tx := range txs {
		amount := money(p, tx.Amount)
		sign := "+"
		color := incomeColor()
		if tx.Type == engine.TransactionExpense {
			sign = "-"
			color = expenseColor()
		}
		amount = sign + amount
		if styled {
			amount = lipgloss.NewStyle().Foreground(color).Render(amount)
		}
		desc := tx.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(&b, "%s  %-8s  %-*s  %s\n",
			tx.Date, shortID(tx.ID), descriptionMaxLen, truncate(desc, descriptionMaxLen), amount)
	}
	return b.String()
}

// renderTransactions writes a transaction table with full ids.
func renderTransactions(w io.Writer, txs []engine.Transaction) error {
	p := newPrinter()
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	for _, tx := range txs {
		if _, err := fmt.Fprintf(w, "%s  %s  %-7s  %12s  %s\n",
			tx.ID, tx.Date, tx.Type, money(p, tx.Amount), tx.Description); err != nil {
			return err
		}
	}
	return nil
}

// goalLine renders one goal with its progress bar.
func goalLine(p *message.Printer, g engine.Goal, styled bool) string {
	return p.Sprintf("%s %s %5.1f%%  %s / %s  [%s]",
		truncate(g.Name, descriptionMaxLen),
		progressBar(g.Progress(), progressBarWidth, styled),
		g.Progress(),
		money(p, g.CurrentAmount),
		money(p, g.TargetAmount),
		g.Status)
}

// renderGoals writes goals with their ids.
func renderGoals(w io.Writer, goals []engine.Goal, styled bool) error {
	if len(goals) == 0 {
		_, err := fmt.Fprintln(w, "No goals.")
		return err
	}
	p := newPrinter()
	for _, g := range goals {
		if _, err := fmt.Fprintf(w, "%s  %s\n", g.ID, goalLine(p, g, styled)); err != nil {
			return err
		}
	}
	return nil
}

// chartContent renders the seven-day expense bars.
func chartContent(p *message.Printer, days []engine.DailyTotal, styled bool) string {
	var peak float64
	for _, d := range days {
		peak = max(peak, d.Expense)
	}
	var b strings.Builder
	for _, d := range days {
		width := 0
		if peak > 0 {
			width = int(d.Expense / peak * chartBarWidth)
		}
		bar := strings.Repeat(progressFilled, width)
		if styled {
			bar = lipgloss.NewStyle().Foreground(expenseColor()).Render(bar)
		}
		fmt.Fprintf(&b, "%s %s  %-*s %s\n", d.Weekday, d.Date[5:], chartBarWidth, bar, money(p, d.Expense))
	}
	return b.String()
}

// renderDashboard writes the landing page sections.
func renderDashboard(w io.Writer, d *engine.Dashboard, styled bool) error {
	p := newPrinter()

	if err := renderBox(w, "FINANCIAL SUMMARY", summaryContent(p, d.Summary, styled), styled); err != nil {
		return err
	}
	if err := renderBox(w, "RECENT TRANSACTIONS", transactionLines(p, d.Recent, styled), styled); err != nil {
		return err
	}
	if err := renderBox(w, "LAST 7 DAYS", chartContent(p, d.Chart, styled), styled); err != nil {
		return err
	}

	next := "No active goals.\n"
	if d.NextGoal != nil {
		next = goalLine(p, *d.NextGoal, styled) + "\n"
	}
	return renderBox(w, "NEXT GOAL", next, styled)
}

// renderProfile writes the profile fields.
func renderProfile(w io.Writer, prof *engine.Profile, styled bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:    %s\n", prof.FullName)
	if prof.Email != "" {
		fmt.Fprintf(&b, "Email:   %s\n", prof.Email)
	}
	if prof.AvatarURL != "" {
		fmt.Fprintf(&b, "Avatar:  %s\n", prof.AvatarURL)
	}
	updated := prof.UpdatedAt.Format("2006-01-02 15:04")
	if styled {
		updated = lipgloss.NewStyle().Foreground(mutedColor()).Render(updated)
	}
	fmt.Fprintf(&b, "Updated: %s\n", updated)
	return renderBox(w, "PROFILE", b.String(), styled)
}

// writeMetrics prints every gathered counter as "name{labels} value".
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	if reg == nil {
		return nil
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			if _, err = fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue()); err != nil {
				return err
			}
		}
	}
	return nil
}
