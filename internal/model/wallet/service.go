package wallet

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/entity/user"
	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/customerr"
)

const (
	OperationAdd      = "add"
	OperationWithdraw = "withdraw"

	addDescription      = "Added to wallet"
	withdrawDescription = "Withdrawn from wallet"
)

type walletStorage interface {
	GetUserByID(ctx context.Context, id int64) (user.Record, error)
	IncrementBalance(ctx context.Context, userID int64, delta float64) (float64, error)
	DecrementBalance(ctx context.Context, userID int64, amount float64) (float64, error)
	SaveTransaction(ctx context.Context, rec transaction.Record) error
	GetTransactions(ctx context.Context, userID int64, f transaction.Filter) ([]transaction.Record, error)
}

type auditProducer interface {
	ProduceMessage(message []byte) error
}

// AuditEvent is the JSON payload published for every completed wallet
// operation.
type AuditEvent struct {
	UserID    int64     `json:"userId"`
	Operation string    `json:"operation"`
	Amount    float64   `json:"amount"`
	Balance   float64   `json:"balance"`
	Date      time.Time `json:"date"`
}

// Service moves money into and out of wallet balances and records every
// movement in the transaction log. The balance mutation happens as one
// atomic statement in the store; the log append is a second, sequential
// write with no cross-store transaction around the pair.
type Service struct {
	storage walletStorage
	audit   auditProducer
}

// NewService creates a wallet service. audit may be nil to disable the
// audit trail.
func NewService(storage walletStorage, audit auditProducer) *Service {
	return &Service{storage: storage, audit: audit}
}

// Add credits the wallet and appends a wallet_add transaction. Returns the
// post-operation balance.
func (s *Service) Add(ctx context.Context, requesterID, userID int64, amount float64) (float64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "walletAdd")
	defer span.Finish()

	if err := validateOperation(requesterID, userID, amount); err != nil {
		observeOperation(OperationAdd, outcomeRejected)
		return 0, err
	}

	balance, err := s.storage.IncrementBalance(ctx, userID, amount)
	if err != nil {
		observeOperation(OperationAdd, outcomeFailed)
		return 0, errors.Wrap(err, "wallet add")
	}

	if err = s.appendLedger(ctx, userID, amount, transaction.CategoryWalletAdd,
		transaction.TypeIncome, addDescription); err != nil {
		observeOperation(OperationAdd, outcomeFailed)
		return 0, errors.Wrap(err, "wallet add")
	}

	observeOperation(OperationAdd, outcomeOK)
	s.publishAudit(userID, OperationAdd, amount, balance)
	return balance, nil
}

// Withdraw debits the wallet and appends a wallet_withdraw transaction.
// A debit exceeding the balance aborts with InsufficientFundsError and
// leaves both the balance and the log untouched.
func (s *Service) Withdraw(ctx context.Context, requesterID, userID int64, amount float64) (float64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "walletWithdraw")
	defer span.Finish()

	if err := validateOperation(requesterID, userID, amount); err != nil {
		observeOperation(OperationWithdraw, outcomeRejected)
		return 0, err
	}

	balance, err := s.storage.DecrementBalance(ctx, userID, amount)
	if err != nil {
		observeOperation(OperationWithdraw, outcomeFailed)
		return 0, errors.Wrap(err, "wallet withdraw")
	}

	if err = s.appendLedger(ctx, userID, amount, transaction.CategoryWalletWithdraw,
		transaction.TypeExpense, withdrawDescription); err != nil {
		observeOperation(OperationWithdraw, outcomeFailed)
		return 0, errors.Wrap(err, "wallet withdraw")
	}

	observeOperation(OperationWithdraw, outcomeOK)
	s.publishAudit(userID, OperationWithdraw, amount, balance)
	return balance, nil
}

// Balance returns the stored wallet balance.
func (s *Service) Balance(ctx context.Context, requesterID, userID int64) (float64, error) {
	if requesterID != userID {
		return 0, &customerr.AuthorizationError{Err: "wallet does not belong to requester"}
	}

	u, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "wallet balance")
	}
	return u.WalletBalance, nil
}

// History returns the user's wallet movements, newest first.
func (s *Service) History(ctx context.Context, requesterID, userID int64) ([]transaction.Record, error) {
	if requesterID != userID {
		return nil, &customerr.AuthorizationError{Err: "wallet does not belong to requester"}
	}

	recs, err := s.storage.GetTransactions(ctx, userID, transaction.Filter{
		Categories: []string{transaction.CategoryWalletAdd, transaction.CategoryWalletWithdraw},
		SortBy:     transaction.SortByDate,
		SortDesc:   true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "wallet history")
	}
	return recs, nil
}

func validateOperation(requesterID, userID int64, amount float64) error {
	if requesterID != userID {
		return &customerr.AuthorizationError{Err: "wallet does not belong to requester"}
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return &customerr.ValidationError{Field: "amount", Reason: "must be a finite number greater than 0"}
	}
	return nil
}

func (s *Service) appendLedger(ctx context.Context, userID int64, amount float64, category, txType, description string) error {
	return s.storage.SaveTransaction(ctx, transaction.Record{
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Date:        time.Now().UTC(),
		Status:      transaction.StatusCompleted,
		Description: description,
		Type:        txType,
	})
}

func (s *Service) publishAudit(userID int64, operation string, amount, balance float64) {
	if s.audit == nil {
		return
	}

	payload, err := json.Marshal(AuditEvent{
		UserID:    userID,
		Operation: operation,
		Amount:    amount,
		Balance:   balance,
		Date:      time.Now().UTC(),
	})
	if err != nil {
		logger.Error("cannot marshal audit event", zap.Error(err))
		return
	}
	if err = s.audit.ProduceMessage(payload); err != nil {
		logger.Error("cannot publish audit event", zap.Error(err),
			zap.Int64("userID", userID), zap.String("operation", operation))
	}
}
