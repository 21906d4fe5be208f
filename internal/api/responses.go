package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/customerr"
)

type errorBody struct {
	Error string `json:"error"`
}

type balanceResponse struct {
	WalletBalance float64 `json:"walletBalance"`
}

type historyResponse struct {
	Transactions []transaction.Record `json:"transactions"`
}

type walletOpRequest struct {
	Amount *float64 `json:"amount"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
}

// unauthorizedError means the request carried no usable user identity.
// Distinct from AuthorizationError, which is an ownership mismatch.
type unauthorizedError struct{}

func (*unauthorizedError) Error() string {
	return "unauthorized"
}

func userIDFromRequest(req *http.Request) (int64, error) {
	raw := req.Header.Get(userIDHeader)
	if raw == "" {
		return 0, &unauthorizedError{}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &unauthorizedError{}
	}
	return id, nil
}

func requireMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		respondJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("cannot write response", zap.Error(err))
	}
}

func respondRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		logger.Error("cannot write response", zap.Error(err))
	}
}

// respondError maps the error taxonomy onto HTTP statuses. Anything not in
// the taxonomy is a store or encoding failure and reads as a 500.
func respondError(w http.ResponseWriter, err error) {
	var (
		unauthorized *unauthorizedError
		validation   *customerr.ValidationError
		authz        *customerr.AuthorizationError
		notFound     *customerr.NotFoundError
		funds        *customerr.InsufficientFundsError
	)

	switch {
	case errors.As(err, &unauthorized):
		respondJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: validation.Error()})
	case errors.As(err, &authz):
		respondJSON(w, http.StatusForbidden, errorBody{Error: "Unauthorized"})
	case errors.As(err, &notFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()})
	case errors.As(err, &funds):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "Insufficient funds"})
	default:
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
