// Package redis backs the balance table with a Redis server, suitable for
// deployments where operators and read-only tooling share one table.
package redis

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/permit2-vault-go/pkg/store"
)

const (
	keyPrefixBalance     = "vault:balance:"
	keySchemaVersion     = "vault:metadata:schema_version"
	currentSchemaVersion = "v1"

	opTimeout = 5 * time.Second
)

// RedisStore is a Redis-backed implementation of IBalanceStore. Balances are
// stored as decimal strings under vault:balance:<user>:<token>.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ store.IBalanceStore = (*RedisStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If set, keys become "<prefix>vault:balance:...".
	KeyPrefix string
}

func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis balance store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

func (r *RedisStore) initSchema(ctx context.Context) error {
	key := r.prefixKey(keySchemaVersion)

	existing, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, key, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

func (r *RedisStore) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisStore) balanceKey(user common.Address, token common.Address) string {
	return r.prefixKey(keyPrefixBalance + user.Hex() + ":" + token.Hex())
}

func (r *RedisStore) GetBalance(user common.Address, token common.Address) (*big.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("balance store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.balanceKey(user, token)).Result()
	if err == redis.Nil {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, ok := new(big.Int).SetString(val, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance value %q for %s/%s", val, user.Hex(), token.Hex())
	}
	return balance, nil
}

func (r *RedisStore) SetBalance(user common.Address, token common.Address, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("cannot store nil balance")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("cannot store negative balance %s", amount.String())
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("balance store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.balanceKey(user, token), amount.String(), 0).Err(); err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("balance store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
