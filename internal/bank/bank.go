package bank

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrAccountNotFound   = errors.New("bank: account not found")
	ErrCustomerNotFound  = errors.New("bank: customer not found")
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrSameAccount       = errors.New("bank: cannot transfer to the same account")
)

// Account is a seeded demo account.
type Account struct {
	Number     string  `json:"accountNumber"`
	CustomerID string  `json:"customerId"`
	Balance    float64 `json:"balance"`
}

// Customer is a seeded demo customer.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tier string `json:"tier"`
}

// Transaction is one ledger entry on an account.
type Transaction struct {
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	Counterparty string    `json:"counterparty,omitempty"`
	Balance      float64   `json:"balance"`
	Timestamp    time.Time `json:"timestamp"`
}

// Service holds all bank state behind one mutex. The traffic volumes the
// load generator produces never make this lock contended enough to matter.
type Service struct {
	mu           sync.Mutex
	accounts     map[string]*Account
	customers    map[string]Customer
	transactions map[string][]Transaction

	now func() time.Time
}

var seedNames = []string{
	"Asha Patel", "Ben Okafor", "Carla Mendes", "Deniz Yilmaz", "Elena Petrova",
	"Farid Haddad", "Grace Liu", "Hugo Alvarez", "Imani Njoroge", "Jonas Berg",
}

var seedTiers = []string{"standard", "premium", "business"}

// NewService creates a Service seeded with ten customers and ten accounts,
// account numbers 10001 through 10010 owned by customers 1 through 10.
func NewService() *Service {
	s := &Service{
		accounts:     make(map[string]*Account),
		customers:    make(map[string]Customer),
		transactions: make(map[string][]Transaction),
		now:          time.Now,
	}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("%d", i+1)
		s.customers[id] = Customer{ID: id, Name: seedNames[i], Tier: seedTiers[i%len(seedTiers)]}

		number := fmt.Sprintf("%d", 10001+i)
		s.accounts[number] = &Account{
			Number:     number,
			CustomerID: id,
			Balance:    float64(1000 + i*500),
		}
	}
	return s
}

// Customer returns the customer with the given id.
func (s *Service) Customer(id string) (Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

// Accounts returns the accounts owned by the given customer.
func (s *Service) Accounts(customerID string) []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Account
	for _, a := range s.accounts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	return out
}

// Deposit credits the account and returns its new balance.
func (s *Service) Deposit(number string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[number]
	if !ok {
		return 0, ErrAccountNotFound
	}
	a.Balance += amount
	s.record(number, Transaction{Type: "deposit", Amount: amount, Balance: a.Balance})
	return a.Balance, nil
}

// Withdraw debits the account and returns its new balance.
func (s *Service) Withdraw(number string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[number]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if a.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	a.Balance -= amount
	s.record(number, Transaction{Type: "withdrawal", Amount: amount, Balance: a.Balance})
	return a.Balance, nil
}

// Transfer moves amount from one account to another and returns the source
// account's new balance.
func (s *Service) Transfer(from, to string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if from == to {
		return 0, ErrSameAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.accounts[from]
	if !ok {
		return 0, ErrAccountNotFound
	}
	dst, ok := s.accounts[to]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if src.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	src.Balance -= amount
	dst.Balance += amount
	s.record(from, Transaction{Type: "transfer_out", Amount: amount, Counterparty: to, Balance: src.Balance})
	s.record(to, Transaction{Type: "transfer_in", Amount: amount, Counterparty: from, Balance: dst.Balance})
	return src.Balance, nil
}

// Transactions returns the account's ledger, newest first.
func (s *Service) Transactions(number string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[number]; !ok {
		return nil, ErrAccountNotFound
	}
	entries := s.transactions[number]
	out := make([]Transaction, len(entries))
	for i, t := range entries {
		out[len(entries)-1-i] = t
	}
	return out, nil
}

// record appends a ledger entry. Caller holds s.mu.
func (s *Service) record(number string, t Transaction) {
	t.Timestamp = s.now()
	s.transactions[number] = append(s.transactions[number], t)
}
