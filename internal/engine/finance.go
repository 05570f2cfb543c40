package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/fluxi/internal/engine/cache"
)

// FinanceEngine serves the dashboard, goal and profile reads through the cache
// and evicts the affected reads after every successful mutation.
type FinanceEngine struct {
	repo        Repository
	cache       *cache.Cache
	invalidator cache.Invalidator
	now         func() time.Time
	logger      zerolog.Logger
}

// EngineOption configures a FinanceEngine.
type EngineOption func(*FinanceEngine)

// WithCache serves reads from c and uses it to invalidate after writes.
// A nil c leaves the engine uncached.
func WithCache(c *cache.Cache) EngineOption {
	return func(e *FinanceEngine) {
		if c == nil {
			return
		}
		e.cache = c
		e.invalidator = c
	}
}

// WithInvalidator overrides the invalidation capability, e.g. to share one
// invalidator between several engines.
func WithInvalidator(inv cache.Invalidator) EngineOption {
	return func(e *FinanceEngine) {
		if inv != nil {
			e.invalidator = inv
		}
	}
}

// WithClock sets the time source used for "today".
func WithClock(now func() time.Time) EngineOption {
	return func(e *FinanceEngine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *FinanceEngine) { e.logger = logger }
}

// NewFinanceEngine creates an engine over repo. Without WithCache every read
// goes to repo and invalidation is a no-op.
func NewFinanceEngine(repo Repository, opts ...EngineOption) *FinanceEngine {
	e := &FinanceEngine{
		repo:        repo,
		invalidator: cache.NopInvalidator{},
		now:         time.Now,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ---- cached reads ----

// FinancialSummary returns income, expense, balance and the available balance
// after money set aside in goals.
func (e *FinanceEngine) FinancialSummary(ctx context.Context) (Summary, error) {
	return cache.WithCache(ctx, e.cache, cache.KeyFinancialSummary, e.computeSummary)
}

// RecentTransactions returns the most recently created transactions.
func (e *FinanceEngine) RecentTransactions(ctx context.Context) ([]Transaction, error) {
	return cache.WithCache(ctx, e.cache, cache.KeyRecentTransactions, func(ctx context.Context) ([]Transaction, error) {
		return e.repo.ListTransactions(ctx, TransactionFilter{
			Limit:   recentTransactionsLimit,
			OrderBy: OrderByCreatedAt,
		})
	})
}

// ExpensesChart returns per-day income and expense for the last seven days.
func (e *FinanceEngine) ExpensesChart(ctx context.Context) ([]DailyTotal, error) {
	return cache.WithCache(ctx, e.cache, cache.KeyExpensesChart, func(ctx context.Context) ([]DailyTotal, error) {
		today := e.now()
		txs, err := e.repo.ListTransactions(ctx, TransactionFilter{
			StartDate: today.AddDate(0, 0, -(chartDays - 1)).Format(DateLayout),
			EndDate:   today.Format(DateLayout),
		})
		if err != nil {
			return nil, fmt.Errorf("listing chart transactions: %w", err)
		}
		return BuildExpensesChart(txs, today), nil
	})
}

// NextGoal returns the active goal closest to completion, or nil if there is none.
func (e *FinanceEngine) NextGoal(ctx context.Context) (*Goal, error) {
	return cache.WithCache(ctx, e.cache, cache.KeyNextGoal, func(ctx context.Context) (*Goal, error) {
		goals, err := e.repo.ListGoals(ctx, GoalActive)
		if err != nil {
			return nil, fmt.Errorf("listing active goals: %w", err)
		}
		return SelectNextGoal(goals), nil
	})
}

// TotalInGoals returns the money held in active goals.
func (e *FinanceEngine) TotalInGoals(ctx context.Context) (float64, error) {
	return cache.WithCache(ctx, e.cache, cache.KeyTotalInGoals, e.computeTotalInGoals)
}

// Goals lists goals by status; an empty status lists every goal. Cancelled
// goals have no cached listing and are always read from the repository.
func (e *FinanceEngine) Goals(ctx context.Context, status GoalStatus) ([]Goal, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	read := func(ctx context.Context) ([]Goal, error) {
		return e.repo.ListGoals(ctx, status)
	}

	switch status {
	case GoalActive:
		return cache.WithCache(ctx, e.cache, cache.KeyGoalsActive, read)
	case GoalCompleted:
		return cache.WithCache(ctx, e.cache, cache.KeyGoalsCompleted, read)
	case "":
		return cache.WithCache(ctx, e.cache, cache.KeyGoalsAll, read)
	default:
		return read(ctx)
	}
}

// Profile returns the signed-in user's profile.
func (e *FinanceEngine) Profile(ctx context.Context) (*Profile, error) {
	return cache.WithCache(ctx, e.cache, cache.KeyUserProfile, e.repo.GetProfile)
}

// Dashboard loads the landing page reads concurrently. Concurrent misses on
// one key are not coalesced unless the cache was built WithSingleflight.
func (e *FinanceEngine) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := e.FinancialSummary(gctx)
		d.Summary = s
		return err
	})
	g.Go(func() error {
		txs, err := e.RecentTransactions(gctx)
		d.Recent = txs
		return err
	})
	g.Go(func() error {
		chart, err := e.ExpensesChart(gctx)
		d.Chart = chart
		return err
	})
	g.Go(func() error {
		goal, err := e.NextGoal(gctx)
		d.NextGoal = goal
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading dashboard: %w", err)
	}
	return &d, nil
}

// ---- uncached reads ----

// Transactions lists transactions matching filter, newest date first by
// default, capped at 50 unless a limit is given.
func (e *FinanceEngine) Transactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.OrderBy == "" {
		filter.OrderBy = OrderByDate
	}
	return e.repo.ListTransactions(ctx, filter)
}

// ExpensesByCategory totals expenses per category between from and to
// (inclusive, YYYY-MM-DD, either may be empty).
func (e *FinanceEngine) ExpensesByCategory(ctx context.Context, from, to string) ([]CategoryExpense, error) {
	txs, err := e.repo.ListTransactions(ctx, TransactionFilter{
		Type:      TransactionExpense,
		StartDate: from,
		EndDate:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	cats, err := e.repo.ListCategories(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return GroupExpensesByCategory(txs, cats), nil
}

// Categories lists categories of typ; empty means all.
func (e *FinanceEngine) Categories(ctx context.Context, typ TransactionType) ([]Category, error) {
	return e.repo.ListCategories(ctx, typ)
}

// ---- transaction mutations ----

// CreateTransaction validates and stores tx. An empty date means today.
func (e *FinanceEngine) CreateTransaction(ctx context.Context, tx Transaction) (*Transaction, error) {
	if tx.Date == "" {
		tx.Date = e.now().Format(DateLayout)
	}
	tx.Description = strings.TrimSpace(tx.Description)
	if err := validateTransaction(tx.Type, tx.Amount, tx.Date); err != nil {
		return nil, err
	}

	created, err := e.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}
	e.invalidate(ctx, cache.GroupTransaction, "transaction created", created.ID)
	return created, nil
}

// UpdateTransaction applies update to the transaction with id.
func (e *FinanceEngine) UpdateTransaction(ctx context.Context, id string, update TransactionUpdate) (*Transaction, error) {
	current, err := e.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", id, err)
	}

	typ, amount, date := current.Type, current.Amount, current.Date
	if update.Type != nil {
		typ = *update.Type
	}
	if update.Amount != nil {
		amount = *update.Amount
	}
	if update.Date != nil {
		date = *update.Date
	}
	if err = validateTransaction(typ, amount, date); err != nil {
		return nil, err
	}

	updated, err := e.repo.UpdateTransaction(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("updating transaction %s: %w", id, err)
	}
	e.invalidate(ctx, cache.GroupTransaction, "transaction updated", id)
	return updated, nil
}

// DeleteTransaction removes the transaction with id.
func (e *FinanceEngine) DeleteTransaction(ctx context.Context, id string) error {
	if err := e.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	e.invalidate(ctx, cache.GroupTransaction, "transaction deleted", id)
	return nil
}

// ---- goal mutations ----

// CreateGoal validates and stores goal. A goal created with its target
// already reached starts completed.
func (e *FinanceEngine) CreateGoal(ctx context.Context, goal Goal) (*Goal, error) {
	goal.Name = strings.TrimSpace(goal.Name)
	if goal.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidGoal)
	}
	if goal.TargetAmount <= 0 {
		return nil, fmt.Errorf("%w: target %w", ErrInvalidGoal, ErrInvalidAmount)
	}
	if goal.CurrentAmount < 0 {
		return nil, fmt.Errorf("%w: initial amount cannot be negative", ErrInvalidGoal)
	}
	if goal.Deadline != "" {
		if _, err := time.Parse(DateLayout, goal.Deadline); err != nil {
			return nil, fmt.Errorf("%w: deadline must be YYYY-MM-DD", ErrInvalidGoal)
		}
	}
	goal.Status = GoalActive
	if goal.CurrentAmount >= goal.TargetAmount {
		goal.Status = GoalCompleted
	}

	created, err := e.repo.CreateGoal(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("creating goal: %w", err)
	}
	e.invalidate(ctx, cache.GroupGoal, "goal created", created.ID)
	return created, nil
}

// UpdateGoal applies update to the goal with id.
func (e *FinanceEngine) UpdateGoal(ctx context.Context, id string, update GoalUpdate) (*Goal, error) {
	if update.Status != nil && !update.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *update.Status)
	}
	if update.TargetAmount != nil && *update.TargetAmount <= 0 {
		return nil, fmt.Errorf("%w: target %w", ErrInvalidGoal, ErrInvalidAmount)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidGoal)
	}

	updated, err := e.repo.UpdateGoal(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("updating goal %s: %w", id, err)
	}
	e.invalidate(ctx, cache.GroupGoal, "goal updated", id)
	return updated, nil
}

// DeleteGoal removes the goal with id. A goal still holding money must be
// emptied with Withdraw first.
func (e *FinanceEngine) DeleteGoal(ctx context.Context, id string) error {
	goal, err := e.repo.GetGoal(ctx, id)
	if err != nil {
		return fmt.Errorf("loading goal %s: %w", id, err)
	}
	if goal.CurrentAmount > 0 {
		return fmt.Errorf("deleting goal %s: %w (holds %.2f)", id, ErrGoalHasFunds, goal.CurrentAmount)
	}

	if err = e.repo.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("deleting goal %s: %w", id, err)
	}
	e.invalidate(ctx, cache.GroupGoal, "goal deleted", id)
	return nil
}

// Deposit moves amount from the available balance into the goal. The goal is
// completed once its current amount reaches the target. The balance check
// reads the repository directly so a stale cached summary cannot allow an
// overdraft.
func (e *FinanceEngine) Deposit(ctx context.Context, id string, amount float64) (*Goal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	goal, err := e.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading goal %s: %w", id, err)
	}

	summary, err := e.computeSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking available balance: %w", err)
	}
	if amount > summary.Available {
		return nil, fmt.Errorf("%w: available %.2f", ErrInsufficientBalance, summary.Available)
	}

	newAmount := roundMoney(goal.CurrentAmount + amount)
	status := GoalActive
	if newAmount >= goal.TargetAmount {
		status = GoalCompleted
	}

	updated, err := e.repo.UpdateGoal(ctx, id, GoalUpdate{CurrentAmount: &newAmount, Status: &status})
	if err != nil {
		return nil, fmt.Errorf("depositing into goal %s: %w", id, err)
	}
	e.invalidate(ctx, cache.GroupGoal, "goal deposit", id)
	return updated, nil
}

// Withdraw returns amount from the goal to the available balance. A zero
// amount withdraws everything. A completed goal emptied to zero becomes
// active again.
func (e *FinanceEngine) Withdraw(ctx context.Context, id string, amount float64) (*Goal, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	goal, err := e.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading goal %s: %w", id, err)
	}

	if amount == 0 {
		amount = goal.CurrentAmount
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount > goal.CurrentAmount {
		return nil, fmt.Errorf("%w: goal holds %.2f", ErrInsufficientGoalFunds, goal.CurrentAmount)
	}

	newAmount := roundMoney(goal.CurrentAmount - amount)
	status := goal.Status
	if newAmount == 0 && goal.Status == GoalCompleted {
		status = GoalActive
	}

	updated, err := e.repo.UpdateGoal(ctx, id, GoalUpdate{CurrentAmount: &newAmount, Status: &status})
	if err != nil {
		return nil, fmt.Errorf("withdrawing from goal %s: %w", id, err)
	}
	e.invalidate(ctx, cache.GroupGoal, "goal withdrawal", id)
	return updated, nil
}

// ---- profile mutations ----

// UpdateProfile changes the profile name or avatar.
func (e *FinanceEngine) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if update.FullName != nil && strings.TrimSpace(*update.FullName) == "" {
		return nil, errors.New("full name cannot be empty")
	}

	updated, err := e.repo.UpdateProfile(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	e.invalidate(ctx, cache.GroupProfile, "profile updated", updated.ID)
	return updated, nil
}

// ---- helpers ----

// computeSummary reads transactions and active goals from the repository.
func (e *FinanceEngine) computeSummary(ctx context.Context) (Summary, error) {
	txs, err := e.repo.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("listing transactions: %w", err)
	}
	goals, err := e.repo.ListGoals(ctx, GoalActive)
	if err != nil {
		return Summary{}, fmt.Errorf("listing active goals: %w", err)
	}
	return CalculateSummary(txs, goals), nil
}

// computeTotalInGoals reads active goals from the repository.
func (e *FinanceEngine) computeTotalInGoals(ctx context.Context) (float64, error) {
	goals, err := e.repo.ListGoals(ctx, GoalActive)
	if err != nil {
		return 0, fmt.Errorf("listing active goals: %w", err)
	}
	return TotalInGoals(goals), nil
}

// invalidate evicts g after a successful mutation.
func (e *FinanceEngine) invalidate(ctx context.Context, g cache.Group, event, id string) {
	e.invalidator.InvalidateGroup(ctx, g)
	e.logger.Debug().Ctx(ctx).Str("group", string(g)).Str("id", id).Msg(event)
}

// validateTransaction checks the fields every stored transaction must satisfy.
func validateTransaction(typ TransactionType, amount float64, date string) error {
	if !typ.IsValid() {
		return fmt.Errorf("%w: type must be income or expense, got %q", ErrInvalidTransaction, typ)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, ErrInvalidAmount)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidTransaction, date)
	}
	return nil
}
