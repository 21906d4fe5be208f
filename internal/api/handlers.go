package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/clients/cache"
	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/ingest"
	"github.com/looprhq/analytics-server/internal/model/query"
	"github.com/looprhq/analytics-server/internal/model/reports"
)

// userIDHeader carries the already-authenticated user. Token verification
// happens upstream; this service only trusts the header value.
const userIDHeader = "X-User-ID"

type queryService interface {
	List(ctx context.Context, userID int64, f query.Filter) (query.Page, error)
}

type reportGenerator interface {
	Summary(ctx context.Context, userID int64) (reports.Summary, error)
	Monthly(ctx context.Context, userID int64, category, status *string) ([]reports.MonthRow, error)
}

type walletService interface {
	Add(ctx context.Context, requesterID, userID int64, amount float64) (float64, error)
	Withdraw(ctx context.Context, requesterID, userID int64, amount float64) (float64, error)
	Balance(ctx context.Context, requesterID, userID int64) (float64, error)
	History(ctx context.Context, requesterID, userID int64) ([]transaction.Record, error)
}

type uploadService interface {
	Upload(ctx context.Context, userID int64, raws []ingest.RawRecord) (ingest.Result, error)
}

type reportCache interface {
	CacheReport(userID int64, report string, payload []byte) error
	GetReport(userID int64, report string) ([]byte, error)
	InvalidateCache(userID int64, reports []string) error
}

type appConfig interface {
	MaxPageSize() int
}

// Handlers maps the HTTP surface onto the engines.
type Handlers struct {
	Query   queryService
	Reports reportGenerator
	Wallet  walletService
	Ingest  uploadService
	Cache   reportCache
	Config  appConfig
}

func (h *Handlers) handleIndex(w http.ResponseWriter, req *http.Request) error {
	if req.URL.Path != "/" {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return nil
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte("Financial Analytics Dashboard API"))
	return err
}

func (h *Handlers) handleListTransactions(w http.ResponseWriter, req *http.Request) error {
	if !requireMethod(w, req, http.MethodGet) {
		return nil
	}

	userID, err := userIDFromRequest(req)
	if err != nil {
		return err
	}

	params := req.URL.Query()
	raw := query.RawFilter{
		Category:  params.Get("category"),
		Status:    params.Get("status"),
		DateFrom:  params.Get("dateFrom"),
		DateTo:    params.Get("dateTo"),
		AmountMin: params.Get("amountMin"),
		AmountMax: params.Get("amountMax"),
		Page:      params.Get("page"),
		PageSize:  params.Get("pageSize"),
		SortBy:    params.Get("sortBy"),
		SortDir:   params.Get("sortDir"),
	}

	filter, err := query.ParseFilter(raw, h.Config.MaxPageSize())
	if err != nil {
		return err
	}

	page, err := h.Query.List(req.Context(), userID, filter)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, page)
	return nil
}

func (h *Handlers) handleUpload(w http.ResponseWriter, req *http.Request) error {
	if !requireMethod(w, req, http.MethodPost) {
		return nil
	}

	userID, err := userIDFromRequest(req)
	if err != nil {
		return err
	}

	var raws []ingest.RawRecord
	if err = json.NewDecoder(req.Body).Decode(&raws); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "JSON payload must be a list of transactions"})
		return nil
	}

	result, err := h.Ingest.Upload(req.Context(), userID, raws)
	if err != nil {
		return err
	}

	h.dropReports(userID)
	respondJSON(w, http.StatusCreated, uploadResponse{
		Message:  "Transactions uploaded successfully",
		Accepted: result.Accepted,
		Skipped:  result.Skipped,
	})
	return nil
}

func (h *Handlers) handleSummary(w http.ResponseWriter, req *http.Request) error {
	if !requireMethod(w, req, http.MethodGet) {
		return nil
	}

	userID, err := userIDFromRequest(req)
	if err != nil {
		return err
	}

	if payload, ok := h.cachedReport(userID, cache.ReportSummary); ok {
		respondRawJSON(w, payload)
		return nil
	}

	summary, err := h.Reports.Summary(req.Context(), userID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	h.storeReport(userID, cache.ReportSummary, payload)
	respondRawJSON(w, payload)
	return nil
}

func (h *Handlers) handleLineChart(w http.ResponseWriter, req *http.Request) error {
	if !requireMethod(w, req, http.MethodGet) {
		return nil
	}

	userID, err := userIDFromRequest(req)
	if err != nil {
		return err
	}

	params := req.URL.Query()
	var categoryFilter, statusFilter *string
	if c := params.Get("category"); c != "" {
		categoryFilter = &c
	}
	if s := params.Get("status"); s != "" {
		statusFilter = &s
	}
	unfiltered := categoryFilter == nil && statusFilter == nil

	if unfiltered {
		if payload, ok := h.cachedReport(userID, cache.ReportLineChart); ok {
			respondRawJSON(w, payload)
			return nil
		}
	}

	rows, err := h.Reports.Monthly(req.Context(), userID, categoryFilter, statusFilter)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if unfiltered {
		h.storeReport(userID, cache.ReportLineChart, payload)
	}
	respondRawJSON(w, payload)
	return nil
}

// handleWallet routes /api/wallet/{userID}/{action}.
func (h *Handlers) handleWallet(w http.ResponseWriter, req *http.Request) error {
	requesterID, err := userIDFromRequest(req)
	if err != nil {
		return err
	}

	rest := strings.TrimPrefix(req.URL.Path, "/api/wallet/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return nil
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return nil
	}

	switch parts[1] {
	case "balance":
		if !requireMethod(w, req, http.MethodGet) {
			return nil
		}
		balance, err := h.Wallet.Balance(req.Context(), requesterID, userID)
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, balanceResponse{WalletBalance: balance})
		return nil

	case "history":
		if !requireMethod(w, req, http.MethodGet) {
			return nil
		}
		recs, err := h.Wallet.History(req.Context(), requesterID, userID)
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, historyResponse{Transactions: recs})
		return nil

	case "add", "withdraw":
		if !requireMethod(w, req, http.MethodPost) {
			return nil
		}
		return h.handleWalletOp(w, req, requesterID, userID, parts[1])

	default:
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return nil
	}
}

func (h *Handlers) handleWalletOp(w http.ResponseWriter, req *http.Request, requesterID, userID int64, op string) error {
	var body walletOpRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Amount == nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid amount"})
		return nil
	}

	var balance float64
	var err error
	if op == "add" {
		balance, err = h.Wallet.Add(req.Context(), requesterID, userID, *body.Amount)
	} else {
		balance, err = h.Wallet.Withdraw(req.Context(), requesterID, userID, *body.Amount)
	}
	if err != nil {
		return err
	}

	h.dropReports(userID)
	respondJSON(w, http.StatusOK, balanceResponse{WalletBalance: balance})
	return nil
}

func (h *Handlers) cachedReport(userID int64, report string) ([]byte, bool) {
	if h.Cache == nil {
		return nil, false
	}
	payload, err := h.Cache.GetReport(userID, report)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (h *Handlers) storeReport(userID int64, report string, payload []byte) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.CacheReport(userID, report, payload); err != nil {
		logger.Warn("cannot cache report", zap.Error(err), zap.Int64("userID", userID))
	}
}

func (h *Handlers) dropReports(userID int64) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.InvalidateCache(userID, cache.AllReports); err != nil {
		logger.Warn("cannot invalidate report cache", zap.Error(err), zap.Int64("userID", userID))
	}
}
