package ingest

import (
	"context"
	"math"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/customerr"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RawRecord is one uploaded transaction before validation. Amount is a
// pointer so a missing field and an explicit zero stay distinguishable.
type RawRecord struct {
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
}

// Result reports how the batch went. Uploads are partial-success: invalid
// records are skipped, not fatal.
type Result struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

type transactionWriter interface {
	SaveTransactions(ctx context.Context, recs []transaction.Record) error
}

type Service struct {
	storage transactionWriter
}

func NewService(storage transactionWriter) *Service {
	return &Service{storage: storage}
}

// Upload stores the valid records of the batch under the given user.
// A record needs a positive finite amount, a category, and a parsable
// date; anything else is skipped and counted. A batch with no valid
// records fails with a ValidationError.
func (s *Service) Upload(ctx context.Context, userID int64, raws []RawRecord) (Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "uploadTransactions")
	defer span.Finish()

	recs := make([]transaction.Record, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		rec, ok := convert(userID, raw)
		if !ok {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return Result{Skipped: skipped}, &customerr.ValidationError{Reason: "no valid transactions to upload"}
	}

	if err := s.storage.SaveTransactions(ctx, recs); err != nil {
		return Result{}, errors.Wrap(err, "upload transactions")
	}

	if skipped > 0 {
		logger.Warn("upload skipped invalid records",
			zap.Int64("userID", userID), zap.Int("skipped", skipped))
	}
	return Result{Accepted: len(recs), Skipped: skipped}, nil
}

func convert(userID int64, raw RawRecord) (transaction.Record, bool) {
	if raw.Amount == nil || raw.Category == "" || raw.Date == "" {
		return transaction.Record{}, false
	}
	amount := *raw.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return transaction.Record{}, false
	}

	date, err := parseDate(raw.Date)
	if err != nil {
		return transaction.Record{}, false
	}

	return transaction.Record{
		UserID:      userID,
		Amount:      amount,
		Category:    raw.Category,
		Date:        date,
		Status:      raw.Status,
		Description: raw.Description,
		Type:        raw.Type,
	}, true
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
