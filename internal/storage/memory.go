package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"spiceEngine/internal/model"
)

// Memory keeps engine state in maps.
type Memory struct {
	mu        sync.RWMutex
	settings  *model.Settings
	pools     map[common.Address]model.Pool
	providers map[model.ProviderKey]model.Provider
}

func NewMemory() *Memory {
	return &Memory{
		pools:     make(map[common.Address]model.Pool),
		providers: make(map[model.ProviderKey]model.Provider),
	}
}

func (m *Memory) Settings(_ context.Context) (model.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return model.Settings{}, false, nil
	}
	return *m.settings, true, nil
}

func (m *Memory) Pool(_ context.Context, asset common.Address) (model.Pool, bool, error) {
	m.mu.RLock()
	pool, ok := m.pools[asset]
	m.mu.RUnlock()
	return pool, ok, nil
}

func (m *Memory) Provider(_ context.Context, pool, owner common.Address) (model.Provider, bool, error) {
	m.mu.RLock()
	provider, ok := m.providers[model.ProviderKey{Pool: pool, Owner: owner}]
	m.mu.RUnlock()
	return provider, ok, nil
}

// Pools returns every pool ordered by asset.
func (m *Memory) Pools(_ context.Context) ([]model.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedPools(), nil
}

func (m *Memory) Commit(ctx context.Context, changes ChangeSet, settle SettleFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if settle != nil {
		if err := settle(ctx); err != nil {
			return err
		}
	}
	m.apply(changes)
	return nil
}

func (m *Memory) apply(changes ChangeSet) {
	if changes.Settings != nil {
		settings := *changes.Settings
		m.settings = &settings
	}
	for _, pool := range changes.Pools {
		m.pools[pool.Asset] = pool
	}
	for _, provider := range changes.Providers {
		m.providers[provider.Key()] = provider
	}
}

func (m *Memory) sortedPools() []model.Pool {
	out := make([]model.Pool, 0, len(m.pools))
	for _, pool := range m.pools {
		out = append(out, pool)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Asset[:], out[j].Asset[:]) < 0
	})
	return out
}

func (m *Memory) sortedProviders() []model.Provider {
	out := make([]model.Provider, 0, len(m.providers))
	for _, provider := range m.providers {
		out = append(out, provider)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Pool[:], out[j].Pool[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Owner[:], out[j].Owner[:]) < 0
	})
	return out
}
