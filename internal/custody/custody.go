// Package custody executes the asset movements requested by the engine.
package custody

import (
	"context"

	"spiceEngine/internal/model"
)

// Custodian settles a batch of transfers. A batch either settles in full or
// fails without effect.
type Custodian interface {
	Settle(ctx context.Context, transfers []model.Transfer) error
}

// Multi settles through each custodian in order and stops at the first error.
type Multi []Custodian

func (m Multi) Settle(ctx context.Context, transfers []model.Transfer) error {
	for _, c := range m {
		if c == nil {
			continue
		}
		if err := c.Settle(ctx, transfers); err != nil {
			return err
		}
	}
	return nil
}
