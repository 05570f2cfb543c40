package cache

import "sort"

// Logical keys of the cached reads.
const (
	KeyFinancialSummary   = "financial_summary"
	KeyRecentTransactions = "recent_transactions"
	KeyExpensesChart      = "expenses_chart"
	KeyNextGoal           = "next_goal"
	KeyTotalInGoals       = "total_in_goals"
	KeyGoalsActive        = "goals_active"
	KeyGoalsCompleted     = "goals_completed"
	KeyGoalsAll           = "goals_all"
	KeyUserProfile        = "user_profile"
)

// Group names a set of keys computed from the same mutable records.
type Group string

// Invalidation groups.
const (
	// GroupTransaction is evicted after any transaction create, update or delete.
	GroupTransaction Group = "transaction"
	// GroupGoal is evicted after any goal create, update, delete, deposit or withdraw.
	// It includes the financial summary because available balance depends on goals.
	GroupGoal Group = "goal"
	// GroupProfile is evicted after a profile or avatar update.
	GroupProfile Group = "profile"
)

// groupKeys maps each mutation kind to the reads it affects. Adding a derived
// read means adding its key here.
//
//nolint:gochecknoglobals // Static dependency declaration.
var groupKeys = map[Group][]string{
	GroupTransaction: {
		KeyFinancialSummary,
		KeyRecentTransactions,
		KeyExpensesChart,
		KeyNextGoal,
		KeyTotalInGoals,
	},
	GroupGoal: {
		KeyGoalsActive,
		KeyGoalsCompleted,
		KeyGoalsAll,
		KeyNextGoal,
		KeyTotalInGoals,
		KeyFinancialSummary,
	},
	GroupProfile: {
		KeyUserProfile,
	},
}

// GroupKeys returns a copy of the keys belonging to g and whether g exists.
func GroupKeys(g Group) ([]string, bool) {
	keys, ok := groupKeys[g]
	if !ok {
		return nil, false
	}
	return append([]string(nil), keys...), true
}

// Groups returns every known group, sorted by name.
func Groups() []Group {
	groups := make([]Group, 0, len(groupKeys))
	for g := range groupKeys {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// ParseGroup converts a group name to a Group.
func ParseGroup(name string) (Group, bool) {
	g := Group(name)
	_, ok := groupKeys[g]
	return g, ok
}
