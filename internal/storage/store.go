// Package storage persists engine state.
package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"spiceEngine/internal/model"
)

// ChangeSet is the full set of records written by one engine operation.
type ChangeSet struct {
	Settings  *model.Settings
	Pools     []model.Pool
	Providers []model.Provider
}

// Empty reports whether the change set writes nothing.
func (c ChangeSet) Empty() bool {
	return c.Settings == nil && len(c.Pools) == 0 && len(c.Providers) == 0
}

// SettleFunc runs the side effects of a commit. A commit is applied only when
// it returns nil.
type SettleFunc func(ctx context.Context) error

// Store loads and commits engine state.
type Store interface {
	Settings(ctx context.Context) (model.Settings, bool, error)
	Pool(ctx context.Context, asset common.Address) (model.Pool, bool, error)
	Provider(ctx context.Context, pool, owner common.Address) (model.Provider, bool, error)
	Pools(ctx context.Context) ([]model.Pool, error)
	Commit(ctx context.Context, changes ChangeSet, settle SettleFunc) error
}
