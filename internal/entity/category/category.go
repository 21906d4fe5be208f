package category

// defaultExpenseCategories is the stock token set; any category outside the
// set counts as revenue.
var defaultExpenseCategories = []string{
	"rent", "bills", "groceries", "travel", "others", "shopping", "food",
	"utilities", "transport", "medical", "entertainment", "subscriptions",
	"education", "emi", "loan", "insurance", "tax", "fuel", "misc", "expense",
}

// Classifier labels a transaction category as expense or revenue. It is
// built once at startup and shared read-only across requests.
type Classifier struct {
	expense map[string]struct{}
}

func NewClassifier(tokens []string) *Classifier {
	c := &Classifier{expense: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		c.expense[t] = struct{}{}
	}
	return c
}

// Default returns a classifier over the stock expense token set.
func Default() *Classifier {
	return NewClassifier(defaultExpenseCategories)
}

func (c *Classifier) IsExpense(category string) bool {
	_, ok := c.expense[category]
	return ok
}
