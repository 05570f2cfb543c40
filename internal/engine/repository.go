package engine

import "context"

// Repository is the contract of the remote data service holding the signed-in
// user's records. Implementations scope every call to that user and return
// ErrNotFound for records that do not exist or belong to someone else.
type Repository interface {
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	CreateTransaction(ctx context.Context, tx Transaction) (*Transaction, error)
	UpdateTransaction(ctx context.Context, id string, update TransactionUpdate) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	// ListGoals returns goals newest first; an empty status lists every goal.
	ListGoals(ctx context.Context, status GoalStatus) ([]Goal, error)
	GetGoal(ctx context.Context, id string) (*Goal, error)
	CreateGoal(ctx context.Context, goal Goal) (*Goal, error)
	UpdateGoal(ctx context.Context, id string, update GoalUpdate) (*Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	// ListCategories returns categories of the given type; empty means all.
	ListCategories(ctx context.Context, typ TransactionType) ([]Category, error)

	GetProfile(ctx context.Context) (*Profile, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error)
}
