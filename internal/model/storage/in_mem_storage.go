package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/entity/user"
	"github.com/looprhq/analytics-server/internal/model/customerr"
)

// InMemStorage mirrors PostgresStorage semantics over maps. Used by unit
// tests and local runs without a database.
type InMemStorage struct {
	mu           sync.Mutex
	users        map[int64]user.Record
	transactions []transaction.Record
	nextID       int64
}

func NewInMemStorage() *InMemStorage {
	return &InMemStorage{
		users:  make(map[int64]user.Record),
		nextID: 1,
	}
}

func (s *InMemStorage) SaveUser(rec user.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.ID] = rec
}

func (s *InMemStorage) GetUserByID(_ context.Context, id int64) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.Record{}, &customerr.NotFoundError{Entity: "user", ID: id}
	}
	return u, nil
}

func (s *InMemStorage) IncrementBalance(_ context.Context, userID int64, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, &customerr.NotFoundError{Entity: "user", ID: userID}
	}
	u.WalletBalance += delta
	s.users[userID] = u
	return u.WalletBalance, nil
}

func (s *InMemStorage) DecrementBalance(_ context.Context, userID int64, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, &customerr.NotFoundError{Entity: "user", ID: userID}
	}
	if u.WalletBalance < amount {
		return 0, &customerr.InsufficientFundsError{Balance: u.WalletBalance, Requested: amount}
	}
	u.WalletBalance -= amount
	s.users[userID] = u
	return u.WalletBalance, nil
}

func (s *InMemStorage) SaveTransaction(_ context.Context, rec transaction.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	s.transactions = append(s.transactions, rec)
	return nil
}

func (s *InMemStorage) SaveTransactions(ctx context.Context, recs []transaction.Record) error {
	for _, rec := range recs {
		if err := s.SaveTransaction(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemStorage) GetTransactions(_ context.Context, userID int64, f transaction.Filter) ([]transaction.Record, error) {
	s.mu.Lock()
	matched := s.matchLocked(userID, f)
	s.mu.Unlock()

	if f.SortBy != "" {
		if _, ok := sortColumns[f.SortBy]; !ok {
			return nil, &customerr.ValidationError{Field: "sortBy", Reason: "unknown sort field " + f.SortBy}
		}
		sortRecords(matched, f.SortBy, f.SortDesc)
	}

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []transaction.Record{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *InMemStorage) CountTransactions(_ context.Context, userID int64, f transaction.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matchLocked(userID, f))), nil
}

func (s *InMemStorage) matchLocked(userID int64, f transaction.Filter) []transaction.Record {
	matched := make([]transaction.Record, 0)
	for _, rec := range s.transactions {
		if rec.UserID != userID {
			continue
		}
		if f.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	return matched
}

func sortRecords(recs []transaction.Record, sortBy string, desc bool) {
	less := func(a, b transaction.Record) bool {
		switch sortBy {
		case transaction.SortByAmount:
			if a.Amount != b.Amount {
				return a.Amount < b.Amount
			}
		case transaction.SortByCategory:
			if a.Category != b.Category {
				return a.Category < b.Category
			}
		case transaction.SortByStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		return a.ID < b.ID
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if desc {
			return less(recs[j], recs[i])
		}
		return less(recs[i], recs[j])
	})
}
