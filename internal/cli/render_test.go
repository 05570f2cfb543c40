package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/fluxi/internal/engine"
)

func TestMoney(t *testing.T) {
	p := newPrinter()
	assert.Equal(t, "0.00", money(p, 0))
	assert.Equal(t, "42.90", money(p, 42.9))
	assert.Equal(t, "1,234,567.89", money(p, 1234567.891))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "café…", truncate("cafés and more", 5))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "fghijklm", shortID("abcdefghijklm"))
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name   string
		pct    float64
		filled int
	}{
		{name: "empty", pct: 0, filled: 0},
		{name: "half", pct: 50, filled: 5},
		{name: "full", pct: 100, filled: 10},
		{name: "over target capped", pct: 180, filled: 10},
		{name: "negative clamped", pct: -5, filled: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := progressBar(tt.pct, 10, false)
			assert.Equal(t, tt.filled, strings.Count(bar, progressFilled))
			assert.Equal(t, 10-tt.filled, strings.Count(bar, progressEmpty))
		})
	}
}

func TestRenderBoxPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderBox(&buf, "TITLE", "line\n", false))
	assert.Equal(t, "TITLE\n=====\nline\n", buf.String())
}

func TestRenderTransactions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTransactions(&buf, nil))
	assert.Equal(t, "No transactions.\n", buf.String())

	buf.Reset()
	require.NoError(t, renderTransactions(&buf, []engine.Transaction{
		{ID: "01jnx3aaa", Type: engine.TransactionExpense, Amount: 1250, Description: "Rent", Date: "2025-03-01"},
	}))
	out := buf.String()
	assert.Contains(t, out, "01jnx3aaa")
	assert.Contains(t, out, "2025-03-01")
	assert.Contains(t, out, "1,250.00")
	assert.Contains(t, out, "Rent")
}

func TestRenderDashboardPlain(t *testing.T) {
	d := &engine.Dashboard{
		Summary: engine.Summary{Income: 1000, Expense: 200, Balance: 800, InGoals: 300, Available: 500, TransactionCount: 2},
		Recent: []engine.Transaction{
			{ID: "01jnx3abcdefgh", Type: engine.TransactionIncome, Amount: 1000, Description: "Salary", Date: "2025-03-07"},
		},
		Chart: []engine.DailyTotal{
			{Date: "2025-03-06", Weekday: "Thu", Expense: 0},
			{Date: "2025-03-07", Weekday: "Fri", Expense: 200},
		},
		NextGoal: &engine.Goal{Name: "Trip", TargetAmount: 600, CurrentAmount: 300, Status: engine.GoalActive},
	}

	var buf bytes.Buffer
	require.NoError(t, renderDashboard(&buf, d, false))
	out := buf.String()

	assert.Contains(t, out, "Available:     500.00")
	assert.Contains(t, out, "+1,000.00")
	assert.Contains(t, out, "Fri 03-07")
	assert.Contains(t, out, strings.Repeat(progressFilled, chartBarWidth))
	assert.Contains(t, out, " 50.0%")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderProfilePlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderProfile(&buf, &engine.Profile{
		FullName:  "Ada",
		Email:     "ada@example.com",
		UpdatedAt: time.Date(2025, 3, 7, 9, 30, 0, 0, time.UTC),
	}, false))
	out := buf.String()
	assert.Contains(t, out, "Email:   ada@example.com")
	assert.Contains(t, out, "Updated: 2025-03-07 09:30")
	assert.NotContains(t, out, "Avatar:")
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf, nil))
	assert.Empty(t, buf.String())

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_total", Help: "h"}, []string{"group"})
	reg.MustRegister(c)
	c.WithLabelValues("goal").Add(3)

	require.NoError(t, writeMetrics(&buf, reg))
	assert.Equal(t, "test_total{group=\"goal\"} 3\n", buf.String())
}

func TestOutputOptionsStyled(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, (&outputOptions{}).styled(&buf))
	assert.False(t, (&outputOptions{noColor: true}).styled(&buf))
}
