package bank

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Wrapper decorates one logical route with telemetry. The template is the
// route pattern the observation pipeline aggregates under, with the real
// resource id replaced by a placeholder.
type Wrapper func(template string, next http.Handler) http.Handler

// Route templates registered by Routes. Exported so the load generator and
// tests can refer to the exact keys the pipeline tracks.
const (
	RouteCustomerProfile = "/api/customers/{id}/profile"
	RouteDeposit         = "/api/accounts/{id}/deposit"
	RouteWithdrawal      = "/api/accounts/{id}/withdrawal"
	RouteTransfer        = "/api/accounts/{id}/transfer"
	RouteTransactions    = "/api/accounts/{id}/transactions"
)

// Routes assembles the bank's HTTP surface. Each logical route is wrapped
// individually so the telemetry sees the template, not the concrete path.
// wrap may be nil.
func Routes(svc *Service, wrap Wrapper) http.Handler {
	if wrap == nil {
		wrap = func(_ string, next http.Handler) http.Handler { return next }
	}

	profile := wrap(RouteCustomerProfile, http.HandlerFunc(svc.handleProfile))
	deposit := wrap(RouteDeposit, http.HandlerFunc(svc.handleDeposit))
	withdrawal := wrap(RouteWithdrawal, http.HandlerFunc(svc.handleWithdrawal))
	transfer := wrap(RouteTransfer, http.HandlerFunc(svc.handleTransfer))
	transactions := wrap(RouteTransactions, http.HandlerFunc(svc.handleTransactions))

	mux := http.NewServeMux()

	// Dispatch by path shape first so each request reaches the handler
	// wrapped with its own template.
	mux.HandleFunc("/api/customers/", func(w http.ResponseWriter, r *http.Request) {
		_, action, ok := splitResource(r.URL.Path, "/api/customers/")
		if !ok || action != "profile" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		profile.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		_, action, ok := splitResource(r.URL.Path, "/api/accounts/")
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		switch action {
		case "deposit":
			deposit.ServeHTTP(w, r)
		case "withdrawal":
			withdrawal.ServeHTTP(w, r)
		case "transfer":
			transfer.ServeHTTP(w, r)
		case "transactions":
			transactions.ServeHTTP(w, r)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return mux
}

// splitResource parses "<prefix>{id}/<action>" into its id and action parts.
func splitResource(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type transferRequest struct {
	DestinationAccount string  `json:"destinationAccount"`
	Amount             float64 `json:"amount"`
}

type balanceResponse struct {
	AccountNumber string  `json:"accountNumber"`
	Balance       float64 `json:"balance"`
}

// handleProfile handles GET /api/customers/{id}/profile.
func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	id, _, _ := splitResource(r.URL.Path, "/api/customers/")

	c, err := s.Customer(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer": c,
		"accounts": s.Accounts(id),
	})
}

// handleDeposit handles POST /api/accounts/{id}/deposit.
func (s *Service) handleDeposit(w http.ResponseWriter, r *http.Request) {
	number, req, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	balance, err := s.Deposit(number, req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountNumber: number, Balance: balance})
}

// handleWithdrawal handles POST /api/accounts/{id}/withdrawal.
func (s *Service) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	number, req, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	balance, err := s.Withdraw(number, req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountNumber: number, Balance: balance})
}

// handleTransfer handles POST /api/accounts/{id}/transfer.
func (s *Service) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	number, _, _ := splitResource(r.URL.Path, "/api/accounts/")

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.DestinationAccount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "destinationAccount is required"})
		return
	}
	balance, err := s.Transfer(number, req.DestinationAccount, req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountNumber: number, Balance: balance})
}

// handleTransactions handles GET /api/accounts/{id}/transactions.
func (s *Service) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	number, _, _ := splitResource(r.URL.Path, "/api/accounts/")

	entries, err := s.Transactions(number)
	if err != nil {
		writeErr(w, err)
		return
	}
	if entries == nil {
		entries = []Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accountNumber": number,
		"transactions":  entries,
	})
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (string, amountRequest, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return "", amountRequest{}, false
	}
	number, _, _ := splitResource(r.URL.Path, "/api/accounts/")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return "", amountRequest{}, false
	}
	return number, req, true
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrCustomerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrSameAccount):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
