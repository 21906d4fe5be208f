package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/model/storage"
)

func seedStorage(t *testing.T) *storage.InMemStorage {
	t.Helper()
	ctx := context.Background()
	db := storage.NewInMemStorage()

	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
	}
	recs := []transaction.Record{
		{UserID: 1, Amount: 100, Category: "salary", Status: "completed", Date: day(1)},
		{UserID: 1, Amount: 40, Category: "rent", Status: "completed", Date: day(5)},
		{UserID: 1, Amount: 15, Category: "food", Status: "pending", Date: day(10)},
		{UserID: 1, Amount: 60, Category: "food", Status: "completed", Date: day(20)},
		{UserID: 2, Amount: 999, Category: "salary", Status: "completed", Date: day(2)},
	}
	require.NoError(t, db.SaveTransactions(ctx, recs))
	return db
}

func Test_OnList_ShouldNeverReturnAnotherUsersTransactions(t *testing.T) {
	svc := NewService(seedStorage(t))

	f, err := ParseFilter(RawFilter{}, 1000)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, f)
	require.NoError(t, err)

	assert.EqualValues(t, 4, page.Total)
	for _, rec := range page.Transactions {
		assert.EqualValues(t, 1, rec.UserID)
	}
}

func Test_OnList_ShouldReturnTotalIgnoringPagination(t *testing.T) {
	svc := NewService(seedStorage(t))

	f, err := ParseFilter(RawFilter{Page: "2", PageSize: "3"}, 1000)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, f)
	require.NoError(t, err)

	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Transactions, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.PageSize)
}

func Test_OnList_ShouldSortByRequestedFieldAndDirection(t *testing.T) {
	svc := NewService(seedStorage(t))

	f, err := ParseFilter(RawFilter{SortBy: "amount", SortDir: "desc"}, 1000)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, f)
	require.NoError(t, err)

	amounts := make([]float64, 0, len(page.Transactions))
	for _, rec := range page.Transactions {
		amounts = append(amounts, rec.Amount)
	}
	assert.Equal(t, []float64{100, 60, 40, 15}, amounts)
}

func Test_OnList_ShouldCombineFilters(t *testing.T) {
	svc := NewService(seedStorage(t))

	f, err := ParseFilter(RawFilter{
		Category:  "food",
		Status:    "completed",
		AmountMin: "20",
	}, 1000)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, f)
	require.NoError(t, err)

	require.Len(t, page.Transactions, 1)
	assert.Equal(t, 60.0, page.Transactions[0].Amount)
	assert.EqualValues(t, 1, page.Total)
}

func Test_OnList_ShouldApplyInclusiveDateBounds(t *testing.T) {
	svc := NewService(seedStorage(t))

	f, err := ParseFilter(RawFilter{
		DateFrom: "2024-03-05T12:00:00Z",
		DateTo:   "2024-03-10T12:00:00Z",
	}, 1000)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, f)
	require.NoError(t, err)

	assert.EqualValues(t, 2, page.Total)
}

func Test_OnNoMatches_ShouldReturnEmptyPageWithZeroTotal(t *testing.T) {
	svc := NewService(seedStorage(t))

	f, err := ParseFilter(RawFilter{Category: "yachts"}, 1000)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), 1, f)
	require.NoError(t, err)

	assert.Empty(t, page.Transactions)
	assert.EqualValues(t, 0, page.Total)
}
