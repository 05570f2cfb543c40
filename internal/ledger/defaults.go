package ledger

import "github.com/rshade/fluxi/internal/engine"

const defaultProfileName = "Fluxi User"

// defaultCategories are seeded into a new ledger. IDs are assigned at seed time.
func defaultCategories() []engine.Category {
	return []engine.Category{
		{Name: "Salary", Icon: "payments", Color: "#2E7D32", Type: engine.TransactionIncome},
		{Name: "Freelance", Icon: "work", Color: "#00897B", Type: engine.TransactionIncome},
		{Name: "Investments", Icon: "trending_up", Color: "#1565C0", Type: engine.TransactionIncome},
		{Name: "Food", Icon: "restaurant", Color: "#EF6C00", Type: engine.TransactionExpense},
		{Name: "Housing", Icon: "home", Color: "#5C3FD6", Type: engine.TransactionExpense},
		{Name: "Transport", Icon: "directions_car", Color: "#0277BD", Type: engine.TransactionExpense},
		{Name: "Health", Icon: "favorite", Color: "#C62828", Type: engine.TransactionExpense},
		{Name: "Leisure", Icon: "sports_esports", Color: "#AD1457", Type: engine.TransactionExpense},
		{Name: "Other", Icon: "category", Color: "#616161", Type: engine.TransactionExpense},
	}
}
