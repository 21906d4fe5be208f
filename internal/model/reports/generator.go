package reports

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/jinzhu/now"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/entity/category"
	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/logger"
)

var monthNames = [...]string{
	1: "Jan", 2: "Feb", 3: "Mar", 4: "Apr", 5: "May", 6: "Jun",
	7: "Jul", 8: "Aug", 9: "Sep", 10: "Oct", 11: "Nov", 12: "Dec",
}

type transactionStorage interface {
	GetTransactions(ctx context.Context, userID int64, f transaction.Filter) ([]transaction.Record, error)
}

// Summary is the dashboard totals report. Balance equals Savings under a
// zero starting balance; it is computed from the transaction log alone and
// is independent of the wallet's stored balance.
type Summary struct {
	Revenue          float64 `json:"revenue"`
	Expenses         float64 `json:"expenses"`
	Savings          float64 `json:"savings"`
	Balance          float64 `json:"balance"`
	TransactionCount int64   `json:"transactionCount"`
}

// MonthRow is one month of the revenue/expense time series.
type MonthRow struct {
	Month    string  `json:"month"`
	Revenue  float64 `json:"revenue"`
	Expenses float64 `json:"expenses"`
}

type Generator struct {
	storage    transactionStorage
	classifier *category.Classifier
}

func NewGenerator(storage transactionStorage, classifier *category.Classifier) *Generator {
	return &Generator{storage: storage, classifier: classifier}
}

// Summary scans all of the user's transactions and accumulates revenue and
// expense totals by category classification. A user with no transactions
// gets an all-zero summary.
func (g *Generator) Summary(ctx context.Context, userID int64) (Summary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "summaryReport")
	defer span.Finish()

	logger.Info("Summary - start", zap.Int64("userID", userID))

	recs, err := g.storage.GetTransactions(ctx, userID, transaction.Filter{})
	if err != nil {
		return Summary{}, errors.Wrap(err, "summary report")
	}

	var res Summary
	for _, rec := range recs {
		if g.classifier.IsExpense(rec.Category) {
			res.Expenses += rec.Amount
		} else {
			res.Revenue += rec.Amount
		}
	}
	res.Savings = res.Revenue - res.Expenses
	// starting balance is assumed zero
	res.Balance = res.Savings
	res.TransactionCount = int64(len(recs))

	return res, nil
}

// Monthly groups the user's matching transactions by calendar month and
// returns one row per non-empty month, ascending by (year, month). The
// ordering feeds a time-series chart and is part of the contract.
func (g *Generator) Monthly(ctx context.Context, userID int64, categoryFilter, statusFilter *string) ([]MonthRow, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "monthlyReport")
	defer span.Finish()

	logger.Info("Monthly - start", zap.Int64("userID", userID))

	recs, err := g.storage.GetTransactions(ctx, userID, transaction.Filter{
		Category: categoryFilter,
		Status:   statusFilter,
	})
	if err != nil {
		return nil, errors.Wrap(err, "monthly report")
	}

	buckets := make(map[time.Time]*MonthRow)
	for _, rec := range recs {
		key := now.New(rec.Date.UTC()).BeginningOfMonth()
		row, ok := buckets[key]
		if !ok {
			row = &MonthRow{Month: monthLabel(key)}
			buckets[key] = row
		}
		if g.classifier.IsExpense(rec.Category) {
			row.Expenses += rec.Amount
		} else {
			row.Revenue += rec.Amount
		}
	}

	keys := make([]time.Time, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})

	rows := make([]MonthRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, *buckets[key])
	}
	return rows, nil
}

func monthLabel(key time.Time) string {
	return monthNames[int(key.Month())] + " " + strconv.Itoa(key.Year())
}
