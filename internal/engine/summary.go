package engine

import (
	"math"
	"sort"
	"time"
)

// percentFull is the percentage value representing a fully funded goal.
const percentFull = 100

// centsPerUnit is used to round money to two decimals.
const centsPerUnit = 100

// chartDays is the number of days shown on the expenses chart, today included.
const chartDays = 7

// recentTransactionsLimit is the number of transactions shown on the dashboard.
const recentTransactionsLimit = 4

// defaultListLimit applies when a transaction listing has no explicit limit.
const defaultListLimit = 50

// roundMoney rounds to cents.
func roundMoney(v float64) float64 {
	return math.Round(v*centsPerUnit) / centsPerUnit
}

// CalculateSummary totals income and expense over txs and sets aside the
// money held in active goals.
func CalculateSummary(txs []Transaction, goals []Goal) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case TransactionIncome:
			s.Income += tx.Amount
		case TransactionExpense:
			s.Expense += tx.Amount
		}
	}
	s.TransactionCount = len(txs)
	s.Income = roundMoney(s.Income)
	s.Expense = roundMoney(s.Expense)
	s.Balance = roundMoney(s.Income - s.Expense)
	s.InGoals = TotalInGoals(goals)
	s.Available = roundMoney(s.Balance - s.InGoals)
	return s
}

// TotalInGoals sums the current amount of active goals.
func TotalInGoals(goals []Goal) float64 {
	var total float64
	for _, g := range goals {
		if g.Status == GoalActive {
			total += g.CurrentAmount
		}
	}
	return roundMoney(total)
}

// SelectNextGoal returns the active goal closest to completion, or nil.
// Ties keep the listing order.
func SelectNextGoal(goals []Goal) *Goal {
	var next *Goal
	for i := range goals {
		g := goals[i]
		if g.Status != GoalActive {
			continue
		}
		if next == nil || g.Progress() > next.Progress() {
			next = &g
		}
	}
	return next
}

// BuildExpensesChart returns one DailyTotal per day for the chartDays days
// ending on today. Transactions outside the window are ignored.
func BuildExpensesChart(txs []Transaction, today time.Time) []DailyTotal {
	days := make([]DailyTotal, 0, chartDays)
	index := make(map[string]int, chartDays)
	for i := chartDays - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		date := d.Format(DateLayout)
		index[date] = len(days)
		days = append(days, DailyTotal{Date: date, Weekday: d.Weekday().String()[:3]})
	}

	for _, tx := range txs {
		i, ok := index[tx.Date]
		if !ok {
			continue
		}
		if tx.Type == TransactionIncome {
			days[i].Income = roundMoney(days[i].Income + tx.Amount)
		} else {
			days[i].Expense = roundMoney(days[i].Expense + tx.Amount)
		}
	}
	return days
}

// GroupExpensesByCategory totals expense transactions per category, largest
// first. Transactions without a known category are skipped.
func GroupExpensesByCategory(txs []Transaction, categories []Category) []CategoryExpense {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	grouped := make(map[string]*CategoryExpense)
	for _, tx := range txs {
		if tx.Type != TransactionExpense {
			continue
		}
		cat, ok := byID[tx.CategoryID]
		if !ok {
			continue
		}
		ce, ok := grouped[cat.ID]
		if !ok {
			ce = &CategoryExpense{CategoryID: cat.ID, Name: cat.Name, Icon: cat.Icon, Color: cat.Color}
			grouped[cat.ID] = ce
		}
		ce.Total = roundMoney(ce.Total + tx.Amount)
		ce.Count++
	}

	result := make([]CategoryExpense, 0, len(grouped))
	for _, ce := range grouped {
		result = append(result, *ce)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Name < result[j].Name
	})
	return result
}
