// Package ledger derives balances from the append-only profit history.
//
// Balances are never cached: every read goes to the newest ledger row so a restarted
// process sees exactly what was last committed.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// Balances is the pair of balances carried by a ledger row.
type Balances struct {
	Total  decimal.Decimal
	Active decimal.Decimal
}

// Accessor reads current balances from a ledger store.
type Accessor struct {
	store ports.LedgerStore
}

// NewAccessor creates a balance accessor over store.
func NewAccessor(store ports.LedgerStore) *Accessor {
	return &Accessor{store: store}
}

// Total returns the current total balance.
func (a *Accessor) Total(ctx context.Context) (decimal.Decimal, error) {
	return a.store.LatestBalance(ctx, domain.BalanceTotal)
}

// Active returns the capital currently available for new buys.
func (a *Accessor) Active(ctx context.Context) (decimal.Decimal, error) {
	return a.store.LatestBalance(ctx, domain.BalanceActive)
}

// Current returns both balances.
func (a *Accessor) Current(ctx context.Context) (Balances, error) {
	total, err := a.Total(ctx)
	if err != nil {
		return Balances{}, fmt.Errorf("failed to read total balance: %w", err)
	}
	active, err := a.Active(ctx)
	if err != nil {
		return Balances{}, fmt.Errorf("failed to read active balance: %w", err)
	}
	return Balances{Total: total, Active: active}, nil
}
