package persistence

import (
	"fmt"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
)

// NewSubscriptionRepository returns the repository for the connection's
// driver. A nil connection selects the in-memory store.
func NewSubscriptionRepository(conn database.Connection) (domain.SubscriptionRepository, error) {
	if conn == nil {
		return NewMemoryRepository(), nil
	}
	switch conn.Driver() {
	case database.DriverPostgres:
		return NewPostgresRepository(conn), nil
	case database.DriverSQLite:
		return NewSQLiteRepository(conn), nil
	default:
		return nil, fmt.Errorf("no subscription repository for driver %q", conn.Driver())
	}
}

// NewPaymentLedger returns the ledger for the connection's driver.
// A nil connection selects the in-memory ledger.
func NewPaymentLedger(conn database.Connection) (domain.PaymentLedger, error) {
	if conn == nil {
		return NewMemoryLedger(), nil
	}
	switch conn.Driver() {
	case database.DriverPostgres:
		return NewPostgresLedger(conn), nil
	case database.DriverSQLite:
		return NewSQLiteLedger(conn), nil
	default:
		return nil, fmt.Errorf("no payment ledger for driver %q", conn.Driver())
	}
}
