package core

// DefaultCategories returns the built-in categories. Ids "1" to "6" are reserved.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Groceries", Description: "Food and supermarket purchases", Type: KindExpense},
		{ID: "2", Name: "Utilities", Description: "Electricity, water, gas, etc.", Type: KindExpense},
		{ID: "3", Name: "Salary", Description: "Monthly salary income", Type: KindIncome},
		{ID: "4", Name: "Transport", Description: "Public transport, fuel, etc.", Type: KindExpense},
		{ID: "5", Name: "Entertainment", Description: "Movies, games, hobbies", Type: KindExpense},
		{ID: "6", Name: "Other Income", Description: "Other sources of income", Type: KindIncome},
	}
}

// IsBuiltinCategory reports whether id belongs to a default category.
func IsBuiltinCategory(id string) bool {
	for _, c := range DefaultCategories() {
		if c.ID == id {
			return true
		}
	}
	return false
}
