package user

// Record is a user as the ledger sees it. Profile fields beyond the wallet
// balance live outside this service.
type Record struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	WalletBalance float64 `json:"walletBalance"`
}
