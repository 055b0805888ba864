package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	authorityCaller "github.com/Layr-Labs/permit2-vault-go/pkg/authority/caller"
	"github.com/Layr-Labs/permit2-vault-go/pkg/config"
	"github.com/Layr-Labs/permit2-vault-go/pkg/erc20"
	"github.com/Layr-Labs/permit2-vault-go/pkg/server"
	"github.com/Layr-Labs/permit2-vault-go/pkg/store"
	badgerStore "github.com/Layr-Labs/permit2-vault-go/pkg/store/badger"
	memoryStore "github.com/Layr-Labs/permit2-vault-go/pkg/store/memory"
	redisStore "github.com/Layr-Labs/permit2-vault-go/pkg/store/redis"
	"github.com/Layr-Labs/permit2-vault-go/pkg/transactionSigner"
	"github.com/Layr-Labs/permit2-vault-go/pkg/vault"
)

func main() {
	app := &cli.App{
		Name:  "vault-server",
		Usage: "Permit2-backed custodial token vault",
		Description: `A custodial balance ledger funded by Permit2 authorizations.

Depositors sign EIP-712 permits instead of sending approval transactions;
the server verifies nothing itself - it forwards each authorization to the
on-chain transfer authority and keeps its balance table consistent with what
the authority actually moved. Withdrawals settle back to depositors through
batched ERC-20 transfers.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "rpc-url",
				Usage:    "Ethereum RPC endpoint",
				EnvVars:  []string{config.EnvVaultRpcUrl},
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "chain-id",
				Aliases:  []string{"chain"},
				Usage:    "Ethereum chain ID: " + config.GetSupportedChainIDsString(),
				EnvVars:  []string{config.EnvVaultChainID},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "private-key",
				Usage:    "Hex ECDSA private key; its address is the vault identity and funds settlement transactions",
				EnvVars:  []string{config.EnvVaultPrivateKey},
				Required: true,
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8000,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvVaultPort},
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   string(config.StoreTypeMemory),
				Usage:   "Balance store backend: memory, badger, or redis",
				EnvVars: []string{config.EnvVaultStore},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Data directory for the badger store",
				EnvVars: []string{config.EnvVaultDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address (host:port) for the redis store",
				EnvVars: []string{config.EnvVaultRedisAddr},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Optional Redis password",
				EnvVars: []string{config.EnvVaultRedisPassword},
			},
			&cli.StringFlag{
				Name:    "authority-address",
				Usage:   "Transfer authority contract address (defaults to the canonical Permit2 deployment)",
				EnvVars: []string{config.EnvVaultAuthorityAddress},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Usage:   "Requests per second per client address, 0 disables",
				EnvVars: []string{config.EnvVaultRateLimit},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVaultVerbose},
			},
		},
		Action: runVaultServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runVaultServer(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := buildLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ethClient, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC %s: %w", cfg.RpcUrl, err)
	}
	defer ethClient.Close()

	signer, err := transactionSigner.NewTransactionSigner(
		&transactionSigner.SignerConfig{PrivateKey: cfg.PrivateKey},
		uint64(cfg.ChainID),
	)
	if err != nil {
		return fmt.Errorf("failed to build transaction signer: %w", err)
	}

	auth, err := authorityCaller.NewAuthorityCaller(
		common.HexToAddress(cfg.AuthorityAddress),
		ethClient,
		signer,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to build authority caller: %w", err)
	}

	tokens, err := erc20.NewClient(ethClient, signer, logger)
	if err != nil {
		return fmt.Errorf("failed to build token client: %w", err)
	}

	balances, err := buildStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build balance store: %w", err)
	}
	defer func() { _ = balances.Close() }()

	v, err := vault.New(
		&vault.Config{Address: signer.GetFromAddress(), Logger: logger},
		auth,
		tokens,
		balances,
	)
	if err != nil {
		return fmt.Errorf("failed to build vault: %w", err)
	}

	logger.Sugar().Infow("Starting vault server",
		"vault_address", v.Address().Hex(),
		"chain", cfg.ChainName,
		"authority", cfg.AuthorityAddress,
		"store", cfg.Store,
		"port", cfg.Port,
	)

	srv := server.NewServer(v, cfg.Port, cfg.RateLimit, logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Sugar().Infow("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorw("Server shutdown error", "error", err)
	}

	return nil
}

func parseConfig(c *cli.Context) (*config.VaultServerConfig, error) {
	storeType, err := config.ParseStoreType(c.String("store"))
	if err != nil {
		return nil, err
	}

	cfg := &config.VaultServerConfig{
		PrivateKey:       c.String("private-key"),
		Port:             c.Int("port"),
		ChainID:          config.ChainId(c.Uint64("chain-id")),
		RpcUrl:           c.String("rpc-url"),
		AuthorityAddress: c.String("authority-address"),
		Store:            storeType,
		DataDir:          c.String("data-dir"),
		RedisAddr:        c.String("redis-addr"),
		RedisPassword:    c.String("redis-password"),
		RateLimit:        c.Float64("rate-limit"),
		Verbose:          c.Bool("verbose"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildStore(cfg *config.VaultServerConfig, logger *zap.Logger) (store.IBalanceStore, error) {
	switch cfg.Store {
	case config.StoreTypeMemory:
		return memoryStore.NewMemoryStore(), nil
	case config.StoreTypeBadger:
		return badgerStore.NewBadgerStore(cfg.DataDir, logger)
	case config.StoreTypeRedis:
		return redisStore.NewRedisStore(&redisStore.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store)
	}
}
