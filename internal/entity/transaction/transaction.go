package transaction

import (
	"time"
)

// Categories and types written by the wallet ledger. Everything else is
// free-form and comes from uploads.
const (
	CategoryWalletAdd      = "wallet_add"
	CategoryWalletWithdraw = "wallet_withdraw"

	TypeIncome  = "income"
	TypeExpense = "expense"

	StatusCompleted = "completed"
)

// Record is a single monetary transaction. Amount is always a positive
// magnitude; whether it credits or debits is implied by the category.
type Record struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
}

// Filter is a typed, already-validated description of which records to
// read and in what order. Nil optional fields mean "not filtered".
// Bounds are inclusive on both ends.
type Filter struct {
	Category   *string
	Status     *string
	Categories []string
	DateFrom   *time.Time
	DateTo     *time.Time
	AmountMin  *float64
	AmountMax  *float64

	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// Sortable record fields accepted by Filter.SortBy.
const (
	SortByDate     = "date"
	SortByAmount   = "amount"
	SortByCategory = "category"
	SortByStatus   = "status"
)

func (f Filter) Matches(rec Record) bool {
	if f.Category != nil && rec.Category != *f.Category {
		return false
	}
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if rec.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != nil && rec.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && rec.Date.After(*f.DateTo) {
		return false
	}
	if f.AmountMin != nil && rec.Amount < *f.AmountMin {
		return false
	}
	if f.AmountMax != nil && rec.Amount > *f.AmountMax {
		return false
	}
	return true
}
