package query

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
)

type transactionStorage interface {
	GetTransactions(ctx context.Context, userID int64, f transaction.Filter) ([]transaction.Record, error)
	CountTransactions(ctx context.Context, userID int64, f transaction.Filter) (int64, error)
}

// Page is one page of a user's transactions plus the unpaginated total.
type Page struct {
	Transactions []transaction.Record `json:"transactions"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"pageSize"`
}

type Service struct {
	storage transactionStorage
}

func NewService(storage transactionStorage) *Service {
	return &Service{storage: storage}
}

// List returns the requested page of the user's transactions. The user id
// is always an equality predicate, so one user can never read another's
// records regardless of the filter values.
func (s *Service) List(ctx context.Context, userID int64, f Filter) (Page, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "listTransactions")
	defer span.Finish()

	recordFilter := f.recordFilter()

	recs, err := s.storage.GetTransactions(ctx, userID, recordFilter)
	if err != nil {
		return Page{}, errors.Wrap(err, "list transactions")
	}

	countFilter := recordFilter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := s.storage.CountTransactions(ctx, userID, countFilter)
	if err != nil {
		return Page{}, errors.Wrap(err, "list transactions")
	}

	return Page{
		Transactions: recs,
		Total:        total,
		Page:         f.Page,
		PageSize:     f.PageSize,
	}, nil
}
