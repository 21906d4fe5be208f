package wallet

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/entity/user"
	"github.com/looprhq/analytics-server/internal/model/customerr"
	"github.com/looprhq/analytics-server/internal/model/storage"
)

type auditRecorder struct {
	mu       sync.Mutex
	messages [][]byte
}

func (a *auditRecorder) ProduceMessage(message []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

func newTestService(balance float64) (*Service, *storage.InMemStorage, *auditRecorder) {
	db := storage.NewInMemStorage()
	db.SaveUser(user.Record{ID: 1, Name: "Alice", Email: "alice@example.com", WalletBalance: balance})
	audit := &auditRecorder{}
	return NewService(db, audit), db, audit
}

func walletLedger(t *testing.T, db *storage.InMemStorage, userID int64) []transaction.Record {
	t.Helper()
	recs, err := db.GetTransactions(context.Background(), userID, transaction.Filter{
		Categories: []string{transaction.CategoryWalletAdd, transaction.CategoryWalletWithdraw},
	})
	require.NoError(t, err)
	return recs
}

func Test_OnAdd_ShouldIncreaseBalanceAndAppendLedger(t *testing.T) {
	svc, db, audit := newTestService(0)

	balance, err := svc.Add(context.Background(), 1, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)

	ledger := walletLedger(t, db, 1)
	require.Len(t, ledger, 1)
	assert.Equal(t, transaction.CategoryWalletAdd, ledger[0].Category)
	assert.Equal(t, transaction.TypeIncome, ledger[0].Type)
	assert.Equal(t, transaction.StatusCompleted, ledger[0].Status)
	assert.Equal(t, "Added to wallet", ledger[0].Description)
	assert.Equal(t, 50.0, ledger[0].Amount)

	require.Len(t, audit.messages, 1)
	var event AuditEvent
	require.NoError(t, json.Unmarshal(audit.messages[0], &event))
	assert.Equal(t, OperationAdd, event.Operation)
	assert.Equal(t, 50.0, event.Balance)
}

func Test_OnWithdrawExceedingBalance_ShouldFailWithoutMutation(t *testing.T) {
	svc, db, _ := newTestService(0)

	balance, err := svc.Add(context.Background(), 1, 1, 50)
	require.NoError(t, err)
	require.Equal(t, 50.0, balance)

	_, err = svc.Withdraw(context.Background(), 1, 1, 70)
	var funds *customerr.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, 50.0, funds.Balance)
	assert.Equal(t, 70.0, funds.Requested)

	balance, err = svc.Balance(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)

	assert.Len(t, walletLedger(t, db, 1), 1)
}

func Test_OnWithdrawWithinBalance_ShouldDecreaseBalanceAndAppendLedger(t *testing.T) {
	svc, db, _ := newTestService(100)

	balance, err := svc.Withdraw(context.Background(), 1, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, 70.0, balance)

	ledger := walletLedger(t, db, 1)
	require.Len(t, ledger, 1)
	assert.Equal(t, transaction.CategoryWalletWithdraw, ledger[0].Category)
	assert.Equal(t, transaction.TypeExpense, ledger[0].Type)
	assert.Equal(t, "Withdrawn from wallet", ledger[0].Description)
	assert.Equal(t, 30.0, ledger[0].Amount)
}

func Test_OnNonPositiveAmount_ShouldFailWithValidationError(t *testing.T) {
	svc, _, _ := newTestService(100)

	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := svc.Add(context.Background(), 1, 1, amount)
		var validation *customerr.ValidationError
		assert.ErrorAs(t, err, &validation)

		_, err = svc.Withdraw(context.Background(), 1, 1, amount)
		assert.ErrorAs(t, err, &validation)
	}
}

func Test_OnRequesterMismatch_ShouldFailWithAuthorizationError(t *testing.T) {
	svc, _, _ := newTestService(100)

	var authz *customerr.AuthorizationError

	_, err := svc.Add(context.Background(), 2, 1, 10)
	assert.ErrorAs(t, err, &authz)

	_, err = svc.Withdraw(context.Background(), 2, 1, 10)
	assert.ErrorAs(t, err, &authz)

	_, err = svc.Balance(context.Background(), 2, 1)
	assert.ErrorAs(t, err, &authz)

	_, err = svc.History(context.Background(), 2, 1)
	assert.ErrorAs(t, err, &authz)
}

func Test_OnUnknownUser_ShouldFailWithNotFoundError(t *testing.T) {
	svc, db, _ := newTestService(0)

	var notFound *customerr.NotFoundError
	_, err := svc.Add(context.Background(), 99, 99, 10)
	require.ErrorAs(t, err, &notFound)

	_, err = svc.Withdraw(context.Background(), 99, 99, 10)
	require.ErrorAs(t, err, &notFound)

	assert.Empty(t, walletLedger(t, db, 99))
}

func Test_OnHistory_ShouldReturnOnlyWalletMovementsNewestFirst(t *testing.T) {
	svc, db, _ := newTestService(0)

	ctx := context.Background()
	_, err := svc.Add(ctx, 1, 1, 100)
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, 1, 1, 25)
	require.NoError(t, err)
	require.NoError(t, db.SaveTransaction(ctx, transaction.Record{
		UserID: 1, Amount: 10, Category: "food", Date: time.Now().UTC(),
	}))

	recs, err := svc.History(ctx, 1, 1)
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, transaction.CategoryWalletWithdraw, recs[0].Category)
	assert.Equal(t, transaction.CategoryWalletAdd, recs[1].Category)
}

func Test_OnConcurrentOperations_ShouldNeverLoseUpdates(t *testing.T) {
	svc, _, _ := newTestService(1000)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers * 2)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, 1, 1, 5)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(ctx, 1, 1, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := svc.Balance(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1000.0+workers*5-workers*2, balance)
}
