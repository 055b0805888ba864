// Package badger backs the balance table with an embedded Badger database.
package badger

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/permit2-vault-go/pkg/store"
)

const (
	keyPrefixBalance     = "balance:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerStore is a durable, disk-based implementation of IBalanceStore.
// SyncWrites is enabled so a credited balance survives a crash.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ store.IBalanceStore = (*BadgerStore)(nil)

func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger balance store initialized", "path", absPath)

	return bs, nil
}

func (b *BadgerStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Badger recommends rerunning while GC makes progress.
			for b.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

func balanceKey(user common.Address, token common.Address) []byte {
	return []byte(keyPrefixBalance + user.Hex() + ":" + token.Hex())
}

func (b *BadgerStore) GetBalance(user common.Address, token common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("balance store is closed")
	}

	balance := new(big.Int)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(balanceKey(user, token))
		if err == badgerdb.ErrKeyNotFound {
			return nil // absent means zero
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			balance.SetBytes(val)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	return balance, nil
}

func (b *BadgerStore) SetBalance(user common.Address, token common.Address, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("cannot store nil balance")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("cannot store negative balance %s", amount.String())
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("balance store is closed")
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(balanceKey(user, token), amount.Bytes())
	})
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}

	return nil
}

func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("balance store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version missing")
		}
		return err
	})
}
