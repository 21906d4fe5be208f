package config

type AppConfig struct {
	ExpenseCategoryList []string `yaml:"expense-categories"`
	PageSizeCap         int      `yaml:"max-page-size"`
}

// ExpenseCategories returns the configured expense token set; empty means
// the caller should fall back to the built-in default set.
func (s *AppConfig) ExpenseCategories() []string {
	return s.ExpenseCategoryList
}

func (s *AppConfig) MaxPageSize() int {
	if s.PageSizeCap <= 0 {
		return 1000
	}
	return s.PageSizeCap
}
