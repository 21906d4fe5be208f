package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/model/customerr"
	"github.com/looprhq/analytics-server/internal/model/storage"
)

func amount(v float64) *float64 {
	return &v
}

func Test_OnUpload_ShouldStoreValidRecordsUnderUser(t *testing.T) {
	ctx := context.Background()
	db := storage.NewInMemStorage()
	svc := NewService(db)

	result, err := svc.Upload(ctx, 7, []RawRecord{
		{Amount: amount(120), Category: "salary", Date: "2024-05-01T09:30:00Z", Status: "completed", Type: "income"},
		{Amount: amount(42.5), Category: "food", Date: "2024-05-02"},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Accepted: 2, Skipped: 0}, result)

	recs, err := db.GetTransactions(ctx, 7, transaction.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.EqualValues(t, 7, recs[0].UserID)
	assert.Equal(t, time.UTC, recs[0].Date.Location())
}

func Test_OnUpload_ShouldSkipInvalidRecordsAndReportCounts(t *testing.T) {
	ctx := context.Background()
	db := storage.NewInMemStorage()
	svc := NewService(db)

	result, err := svc.Upload(ctx, 7, []RawRecord{
		{Amount: amount(10), Category: "food", Date: "2024-05-01"},
		{Amount: amount(10), Category: "food", Date: "yesterday-ish"},
		{Amount: nil, Category: "food", Date: "2024-05-01"},
		{Amount: amount(10), Category: "", Date: "2024-05-01"},
		{Amount: amount(-3), Category: "food", Date: "2024-05-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Accepted: 1, Skipped: 4}, result)

	total, err := db.CountTransactions(ctx, 7, transaction.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func Test_OnUploadWithNoValidRecords_ShouldFailWithValidationError(t *testing.T) {
	svc := NewService(storage.NewInMemStorage())

	result, err := svc.Upload(context.Background(), 7, []RawRecord{
		{Amount: amount(10), Category: "food", Date: "not a date"},
	})

	var validation *customerr.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, 1, result.Skipped)
}
