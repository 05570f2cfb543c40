package engine

import (
	"errors"
	"time"
)

// DateLayout is the calendar date format used by transactions and goal deadlines.
const DateLayout = "2006-01-02"

// Finance errors.
var (
	// ErrNotFound is returned when a record does not exist for the current user.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInvalidTransaction is returned when a transaction fails validation.
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrInvalidGoal is returned when a goal fails validation.
	ErrInvalidGoal = errors.New("invalid goal")
	// ErrInvalidStatus is returned for an unknown goal status.
	ErrInvalidStatus = errors.New("invalid goal status")
	// ErrInsufficientBalance is returned when a deposit exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient available balance")
	// ErrInsufficientGoalFunds is returned when a withdrawal exceeds what the goal holds.
	ErrInsufficientGoalFunds = errors.New("amount exceeds the goal's current amount")
	// ErrGoalHasFunds is returned when deleting a goal that still holds money.
	ErrGoalHasFunds = errors.New("goal still holds money; withdraw it before deleting")
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

// Transaction types.
const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is a single income or expense record.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id,omitempty"`
	// Date is the calendar day of the transaction (YYYY-MM-DD).
	Date      string    `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionOrder selects the sort field for transaction listings.
type TransactionOrder string

// Transaction sort fields.
const (
	OrderByDate      TransactionOrder = "date"
	OrderByCreatedAt TransactionOrder = "created_at"
)

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	Type       TransactionType
	StartDate  string
	EndDate    string
	CategoryID string
	// Limit caps the number of results; 0 means no limit.
	Limit     int
	OrderBy   TransactionOrder
	Ascending bool
}

// TransactionUpdate carries the fields to change; nil fields are left untouched.
type TransactionUpdate struct {
	Type        *TransactionType
	Amount      *float64
	Description *string
	CategoryID  *string
	Date        *string
	Notes       *string
}

// Category groups transactions for reporting.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Icon  string          `json:"icon"`
	Color string          `json:"color"`
	Type  TransactionType `json:"type"`
}

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

// Goal statuses.
const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// IsValid reports whether s is a known goal status.
func (s GoalStatus) IsValid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalCancelled:
		return true
	}
	return false
}

// Goal is a savings target money can be set aside for.
type Goal struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	TargetAmount  float64    `json:"target_amount"`
	CurrentAmount float64    `json:"current_amount"`
	Deadline      string     `json:"deadline,omitempty"`
	Icon          string     `json:"icon,omitempty"`
	Color         string     `json:"color,omitempty"`
	Status        GoalStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Progress returns how much of the target is saved, in percent.
func (g Goal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return g.CurrentAmount / g.TargetAmount * percentFull
}

// GoalUpdate carries the fields to change; nil fields are left untouched.
type GoalUpdate struct {
	Name          *string
	Description   *string
	TargetAmount  *float64
	CurrentAmount *float64
	Deadline      *string
	Icon          *string
	Color         *string
	Status        *GoalStatus
}

// Profile is the signed-in user's profile record.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries the profile fields to change.
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
}

// Summary is the balance overview shown on the dashboard.
type Summary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
	// InGoals is the money set aside in active goals.
	InGoals float64 `json:"in_goals"`
	// Available is Balance minus InGoals.
	Available        float64 `json:"available"`
	TransactionCount int     `json:"transaction_count"`
}

// CategoryExpense aggregates expenses of one category.
type CategoryExpense struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon,omitempty"`
	Color      string  `json:"color,omitempty"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
}

// DailyTotal is one bar of the expenses chart.
type DailyTotal struct {
	Date    string  `json:"date"`
	Weekday string  `json:"weekday"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// Dashboard bundles the reads shown on the landing page.
type Dashboard struct {
	Summary  Summary       `json:"summary"`
	Recent   []Transaction `json:"recent"`
	Chart    []DailyTotal  `json:"chart"`
	NextGoal *Goal         `json:"next_goal"`
}
