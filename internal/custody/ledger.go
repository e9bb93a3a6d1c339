package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"spiceEngine/internal/model"
)

// ErrInsufficientFunds is returned when an account or the custody balance
// cannot cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

type balanceKey struct {
	account common.Address
	asset   common.Address
}

// Ledger is an in-memory custodian. Pulls move account balances into
// custody, pushes move custody balances out, and mints and burns change the
// account balance of an LP share asset.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[balanceKey]uint64
	custody  map[common.Address]uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[balanceKey]uint64),
		custody:  make(map[common.Address]uint64),
	}
}

// Credit funds account with amount of asset outside of any engine operation.
func (l *Ledger) Credit(account, asset common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{account: account, asset: asset}
	next := l.accounts[key] + amount
	if next < amount {
		return model.ErrOverflow
	}
	l.accounts[key] = next
	return nil
}

// Balance returns the balance of asset held by account.
func (l *Ledger) Balance(account, asset common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[balanceKey{account: account, asset: asset}]
}

// Custody returns the amount of asset held in custody.
func (l *Ledger) Custody(asset common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.custody[asset]
}

func (l *Ledger) Settle(ctx context.Context, transfers []model.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := make(map[balanceKey]uint64)
	custody := make(map[common.Address]uint64)
	account := func(k balanceKey) uint64 {
		if v, ok := accounts[k]; ok {
			return v
		}
		return l.accounts[k]
	}
	held := func(asset common.Address) uint64 {
		if v, ok := custody[asset]; ok {
			return v
		}
		return l.custody[asset]
	}

	for i, t := range transfers {
		key := balanceKey{account: t.Account, asset: t.Asset}
		switch t.Kind {
		case model.TransferPull:
			bal := account(key)
			if bal < t.Amount {
				return fmt.Errorf("transfer %d pull %s: %w", i, t.Asset.Hex(), ErrInsufficientFunds)
			}
			next := held(t.Asset) + t.Amount
			if next < t.Amount {
				return fmt.Errorf("transfer %d pull: %w", i, model.ErrOverflow)
			}
			accounts[key] = bal - t.Amount
			custody[t.Asset] = next
		case model.TransferPush:
			pool := held(t.Asset)
			if pool < t.Amount {
				return fmt.Errorf("transfer %d push %s: %w", i, t.Asset.Hex(), ErrInsufficientFunds)
			}
			next := account(key) + t.Amount
			if next < t.Amount {
				return fmt.Errorf("transfer %d push: %w", i, model.ErrOverflow)
			}
			custody[t.Asset] = pool - t.Amount
			accounts[key] = next
		case model.TransferMint:
			next := account(key) + t.Amount
			if next < t.Amount {
				return fmt.Errorf("transfer %d mint: %w", i, model.ErrOverflow)
			}
			accounts[key] = next
		case model.TransferBurn:
			bal := account(key)
			if bal < t.Amount {
				return fmt.Errorf("transfer %d burn %s: %w", i, t.Asset.Hex(), ErrInsufficientFunds)
			}
			accounts[key] = bal - t.Amount
		default:
			return fmt.Errorf("transfer %d: unknown kind %q", i, t.Kind)
		}
	}

	for k, v := range accounts {
		l.accounts[k] = v
	}
	for k, v := range custody {
		l.custody[k] = v
	}
	return nil
}
