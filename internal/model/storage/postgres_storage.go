package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	// postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/entity/user"
	"github.com/looprhq/analytics-server/internal/model/customerr"
)

const dsnTemplate = "user=%s password=%s host=%s dbname=%s sslmode=disable"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Columns accepted as sort keys. The filter is validated upstream but the
// lookup keeps arbitrary strings out of the ORDER BY clause.
var sortColumns = map[string]string{
	transaction.SortByDate:     "date",
	transaction.SortByAmount:   "amount",
	transaction.SortByCategory: "category",
	transaction.SortByStatus:   "status",
}

type config interface {
	Host() string
	Username() string
	Password() string
	Database() string
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config config) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", fmt.Sprintf(dsnTemplate,
		config.Username(),
		config.Password(),
		config.Host(),
		config.Database()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	return &PostgresStorage{db}, nil
}

func applyFilter(query sq.SelectBuilder, f transaction.Filter) sq.SelectBuilder {
	if f.Category != nil {
		query = query.Where(sq.Eq{"category": *f.Category})
	}
	if f.Status != nil {
		query = query.Where(sq.Eq{"status": *f.Status})
	}
	if len(f.Categories) > 0 {
		query = query.Where(sq.Eq{"category": f.Categories})
	}
	if f.DateFrom != nil {
		query = query.Where(sq.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		query = query.Where(sq.LtOrEq{"date": *f.DateTo})
	}
	if f.AmountMin != nil {
		query = query.Where(sq.GtOrEq{"amount": *f.AmountMin})
	}
	if f.AmountMax != nil {
		query = query.Where(sq.LtOrEq{"amount": *f.AmountMax})
	}
	return query
}

func (s *PostgresStorage) GetTransactions(ctx context.Context, userID int64, f transaction.Filter) ([]transaction.Record, error) {
	query := psql.Select("id", "user_id", "amount", "category", "date", "status", "description", "type").
		From("transactions").
		Where(sq.Eq{"user_id": userID})
	query = applyFilter(query, f)

	if f.SortBy != "" {
		col, ok := sortColumns[f.SortBy]
		if !ok {
			return nil, &customerr.ValidationError{Field: "sortBy", Reason: "unknown sort field " + f.SortBy}
		}
		dir := "ASC"
		if f.SortDesc {
			dir = "DESC"
		}
		// id as tie-breaker keeps pages stable across requests
		query = query.OrderBy(col+" "+dir, "id "+dir)
	}
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		query = query.Offset(uint64(f.Offset))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, &customerr.DataAccessError{Op: "get transactions", Err: err}
	}
	defer rows.Close()

	recs := make([]transaction.Record, 0)
	for rows.Next() {
		var rec transaction.Record
		err = rows.Scan(&rec.ID, &rec.UserID, &rec.Amount, &rec.Category,
			&rec.Date, &rec.Status, &rec.Description, &rec.Type)
		if err != nil {
			return nil, &customerr.DataAccessError{Op: "get transactions", Err: err}
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, &customerr.DataAccessError{Op: "get transactions", Err: err}
	}

	return recs, nil
}

func (s *PostgresStorage) CountTransactions(ctx context.Context, userID int64, f transaction.Filter) (int64, error) {
	query := psql.Select("COUNT(*)").
		From("transactions").
		Where(sq.Eq{"user_id": userID})
	query = applyFilter(query, f)

	var total int64
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&total)
	if err != nil {
		return 0, &customerr.DataAccessError{Op: "count transactions", Err: err}
	}
	return total, nil
}

func (s *PostgresStorage) SaveTransaction(ctx context.Context, rec transaction.Record) error {
	query := psql.Insert("transactions").
		Columns("user_id", "amount", "category", "date", "status", "description", "type").
		Values(rec.UserID, rec.Amount, rec.Category, rec.Date, rec.Status, rec.Description, rec.Type)

	_, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return &customerr.DataAccessError{Op: "save transaction", Err: err}
	}
	return nil
}

func (s *PostgresStorage) SaveTransactions(ctx context.Context, recs []transaction.Record) error {
	if len(recs) == 0 {
		return nil
	}

	query := psql.Insert("transactions").
		Columns("user_id", "amount", "category", "date", "status", "description", "type")
	for _, rec := range recs {
		query = query.Values(rec.UserID, rec.Amount, rec.Category, rec.Date, rec.Status, rec.Description, rec.Type)
	}

	_, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return &customerr.DataAccessError{Op: "save transactions", Err: err}
	}
	return nil
}

func (s *PostgresStorage) GetUserByID(ctx context.Context, id int64) (user.Record, error) {
	query := psql.Select("id", "name", "email", "COALESCE(wallet_balance, 0)").
		From("users").
		Where(sq.Eq{"id": id})

	var res user.Record
	err := query.RunWith(s.db).QueryRowContext(ctx).
		Scan(&res.ID, &res.Name, &res.Email, &res.WalletBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return user.Record{}, &customerr.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return user.Record{}, &customerr.DataAccessError{Op: "get user", Err: err}
	}
	return res, nil
}

// IncrementBalance applies the delta as a single read-modify-write inside
// the database so concurrent wallet operations never lose updates.
func (s *PostgresStorage) IncrementBalance(ctx context.Context, userID int64, delta float64) (float64, error) {
	query := psql.Update("users").
		Set("wallet_balance", sq.Expr("COALESCE(wallet_balance, 0) + ?", delta)).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING wallet_balance")

	var balance float64
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &customerr.NotFoundError{Entity: "user", ID: userID}
	}
	if err != nil {
		return 0, &customerr.DataAccessError{Op: "increment balance", Err: err}
	}
	return balance, nil
}

// DecrementBalance debits the wallet only when the balance covers the
// amount; the check and the write are one atomic statement.
func (s *PostgresStorage) DecrementBalance(ctx context.Context, userID int64, amount float64) (float64, error) {
	query := psql.Update("users").
		Set("wallet_balance", sq.Expr("wallet_balance - ?", amount)).
		Where(sq.And{
			sq.Eq{"id": userID},
			sq.GtOrEq{"wallet_balance": amount},
		}).
		Suffix("RETURNING wallet_balance")

	var balance float64
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		u, getErr := s.GetUserByID(ctx, userID)
		if getErr != nil {
			return 0, getErr
		}
		return 0, &customerr.InsufficientFundsError{Balance: u.WalletBalance, Requested: amount}
	}
	if err != nil {
		return 0, &customerr.DataAccessError{Op: "decrement balance", Err: err}
	}
	return balance, nil
}
