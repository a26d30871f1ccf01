package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/metrics"
)

type Manager struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	now    func() time.Time
	mu     sync.RWMutex
	cache  map[string]*Checkpoint
}

// Checkpoint marks the newest trade already pushed downstream for one pair
// contract.
type Checkpoint struct {
	Network       string    `json:"network"`
	SmartContract string    `json:"smart_contract"`
	LastBlock     int64     `json:"last_block"`
	LastTimestamp string    `json:"last_timestamp"`
	LastTxHash    string    `json:"last_tx_hash"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewManager(client *redis.Client, prefix string, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		logger: logger,
		prefix: prefix,
		now:    time.Now,
		cache:  make(map[string]*Checkpoint),
	}
}

func (m *Manager) key(network, contract string) string {
	return fmt.Sprintf("%s:checkpoint:%s:%s", m.prefix, network, contract)
}

// Get returns nil without error when no checkpoint was saved yet.
func (m *Manager) Get(ctx context.Context, network, contract string) (*Checkpoint, error) {
	cacheKey := m.key(network, contract)
	m.mu.RLock()
	if cp, ok := m.cache[cacheKey]; ok {
		m.mu.RUnlock()
		return cp, nil
	}
	m.mu.RUnlock()

	data, err := m.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	m.mu.Lock()
	m.cache[cacheKey] = &cp
	m.mu.Unlock()

	return &cp, nil
}

func (m *Manager) Save(ctx context.Context, cp *Checkpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = m.now().UTC()
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	key := m.key(cp.Network, cp.SmartContract)
	if err := m.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.mu.Lock()
	m.cache[key] = cp
	m.mu.Unlock()

	metrics.CheckpointUpdates.WithLabelValues(cp.Network).Inc()
	m.logger.Debug("checkpoint saved",
		zap.String("network", cp.Network),
		zap.String("contract", cp.SmartContract),
		zap.Int64("block", cp.LastBlock))

	return nil
}

func (m *Manager) Delete(ctx context.Context, network, contract string) error {
	key := m.key(network, contract)
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	return nil
}

// Invalidate drops the cached copy so the next Get reads Redis again.
func (m *Manager) Invalidate(network, contract string) {
	m.mu.Lock()
	delete(m.cache, m.key(network, contract))
	m.mu.Unlock()
}
