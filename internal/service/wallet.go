package service

import "context"

// WalletLedger is the interface to the external wallet/balance ledger.
// Verification only ever debits the additional fare charged on a
// destination change; issuance and refunds live elsewhere.
type WalletLedger interface {
	Debit(ctx context.Context, passengerID string, amount float64, currency string) error
	Credit(ctx context.Context, passengerID string, amount float64, currency string) error
}

// MockWalletLedger is a mock implementation of WalletLedger for local
// runs and testing. Always succeeds.
type MockWalletLedger struct{}

// NewMockWalletLedger creates a new mock wallet ledger.
func NewMockWalletLedger() *MockWalletLedger {
	return &MockWalletLedger{}
}

// Debit simulates a wallet debit. Always succeeds.
func (l *MockWalletLedger) Debit(ctx context.Context, passengerID string, amount float64, currency string) error {
	return nil
}

// Credit simulates a wallet credit. Always succeeds.
func (l *MockWalletLedger) Credit(ctx context.Context, passengerID string, amount float64, currency string) error {
	return nil
}
