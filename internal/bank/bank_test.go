package bank

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDepositAndWithdraw(t *testing.T) {
	svc := NewService()

	balance, err := svc.Deposit("10001", 500)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if balance != 1500 {
		t.Errorf("balance after deposit = %v, want 1500", balance)
	}

	balance, err = svc.Withdraw("10001", 200)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if balance != 1300 {
		t.Errorf("balance after withdrawal = %v, want 1300", balance)
	}

	if _, err := svc.Withdraw("10001", 1e9); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdraw error = %v, want ErrInsufficientFunds", err)
	}
	if _, err := svc.Deposit("10001", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative deposit error = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Deposit("99999", 10); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("unknown account error = %v, want ErrAccountNotFound", err)
	}
}

func TestTransferMovesMoneyBothWays(t *testing.T) {
	svc := NewService()

	balance, err := svc.Transfer("10002", "10003", 300)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if balance != 1200 {
		t.Errorf("source balance = %v, want 1200", balance)
	}

	entries, err := svc.Transactions("10003")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != "transfer_in" || entries[0].Counterparty != "10002" {
		t.Errorf("destination ledger = %+v, want one transfer_in from 10002", entries)
	}

	if _, err := svc.Transfer("10002", "10002", 10); !errors.Is(err, ErrSameAccount) {
		t.Errorf("self transfer error = %v, want ErrSameAccount", err)
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	svc := NewService()
	svc.Deposit("10001", 100)
	svc.Deposit("10001", 200)

	entries, err := svc.Transactions("10001")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Amount != 200 || entries[1].Amount != 100 {
		t.Errorf("ledger order = %v then %v, want newest first", entries[0].Amount, entries[1].Amount)
	}
}

func TestRoutesEndToEnd(t *testing.T) {
	srv := httptest.NewServer(Routes(NewService(), nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/customers/3/profile")
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	var profile struct {
		Customer Customer  `json:"customer"`
		Accounts []Account `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decoding profile: %v", err)
	}
	resp.Body.Close()
	if profile.Customer.ID != "3" || len(profile.Accounts) != 1 {
		t.Errorf("unexpected profile: %+v", profile)
	}

	resp, err = http.Post(srv.URL+"/api/accounts/10005/deposit", "application/json",
		strings.NewReader(`{"amount": 250}`))
	if err != nil {
		t.Fatalf("POST deposit: %v", err)
	}
	var bal balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
		t.Fatalf("decoding deposit response: %v", err)
	}
	resp.Body.Close()
	if bal.Balance != 3250 {
		t.Errorf("balance = %v, want 3250", bal.Balance)
	}

	resp, err = http.Get(srv.URL + "/api/customers/404/profile")
	if err != nil {
		t.Fatalf("GET missing profile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing customer status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/accounts/10001/teleport", "application/json",
		strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST unknown action: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown action status = %d, want 404", resp.StatusCode)
	}
}

func TestRoutesWrapSeesTemplates(t *testing.T) {
	var seen []string
	wrap := func(template string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, template)
			next.ServeHTTP(w, r)
		})
	}
	srv := httptest.NewServer(Routes(NewService(), wrap))
	defer srv.Close()

	http.Get(srv.URL + "/api/customers/7/profile")
	http.Post(srv.URL+"/api/accounts/10002/withdrawal", "application/json",
		strings.NewReader(`{"amount": 10}`))

	want := []string{RouteCustomerProfile, RouteWithdrawal}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("wrapped templates = %v, want %v", seen, want)
	}
}
