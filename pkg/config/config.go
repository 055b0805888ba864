package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for vault server configuration
const (
	EnvVaultRpcUrl           = "VAULT_RPC_URL"
	EnvVaultChainID          = "VAULT_CHAIN_ID"
	EnvVaultPrivateKey       = "VAULT_PRIVATE_KEY"
	EnvVaultPort             = "VAULT_PORT"
	EnvVaultStore            = "VAULT_STORE"
	EnvVaultDataDir          = "VAULT_DATA_DIR"
	EnvVaultRedisAddr        = "VAULT_REDIS_ADDR"
	EnvVaultRedisPassword    = "VAULT_REDIS_PASSWORD"
	EnvVaultAuthorityAddress = "VAULT_AUTHORITY_ADDRESS"
	EnvVaultRateLimit        = "VAULT_RATE_LIMIT"
	EnvVaultVerbose          = "VAULT_VERBOSE"
)

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// CanonicalAuthorityAddress is the Permit2 deployment address, identical on
// every chain thanks to deterministic deployment. Anvil forks inherit it.
const CanonicalAuthorityAddress = "0x000000000022D473030F116dDEE9F6B43aC78BA3"

var AuthorityAddresses = map[ChainId]string{
	ChainId_EthereumMainnet: CanonicalAuthorityAddress,
	ChainId_EthereumSepolia: CanonicalAuthorityAddress,
	ChainId_EthereumAnvil:   CanonicalAuthorityAddress,
}

func GetAuthorityAddressForChainId(chainId ChainId) (string, error) {
	addr, ok := AuthorityAddresses[chainId]
	if !ok {
		return "", fmt.Errorf("unsupported chain ID: %d", chainId)
	}
	return addr, nil
}

// StoreType selects the balance store backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeBadger StoreType = "badger"
	StoreTypeRedis  StoreType = "redis"
)

func ParseStoreType(s string) (StoreType, error) {
	switch StoreType(strings.ToLower(s)) {
	case StoreTypeMemory:
		return StoreTypeMemory, nil
	case StoreTypeBadger:
		return StoreTypeBadger, nil
	case StoreTypeRedis:
		return StoreTypeRedis, nil
	default:
		return "", fmt.Errorf("unsupported store type %q, expected memory, badger, or redis", s)
	}
}

// VaultServerConfig represents the complete configuration for a vault server
type VaultServerConfig struct {
	// Node identity
	PrivateKey string `json:"-"` // ECDSA key funding settlement transactions; its address is the vault identity
	Port       int    `json:"port"`

	// Chain configuration
	ChainID   ChainId   `json:"chain_id"`
	ChainName ChainName `json:"chain_name"`

	// Blockchain configuration
	RpcUrl           string `json:"rpc_url"`           // Ethereum RPC endpoint
	AuthorityAddress string `json:"authority_address"` // Transfer authority contract address

	// Balance store
	Store         StoreType `json:"store"`
	DataDir       string    `json:"data_dir,omitempty"`       // badger only
	RedisAddr     string    `json:"redis_addr,omitempty"`     // redis only
	RedisPassword string    `json:"-"`

	// Operational settings
	RateLimit float64 `json:"rate_limit"` // requests per second per client, 0 disables
	Verbose   bool    `json:"verbose"`
}

// Validate validates the vault server configuration and fills in derived
// fields (chain name, default authority address).
func (c *VaultServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.PrivateKey == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("privateKey"), "private key is required"))
	} else {
		key := strings.TrimPrefix(c.PrivateKey, "0x")
		if len(key) != 64 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("privateKey"), "<redacted>",
				fmt.Sprintf("private key must be 32 bytes (64 hex chars), got %d chars", len(key))))
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "port must be between 1-65535"))
	}

	if c.RpcUrl == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("rpcUrl"), "RPC URL is required"))
	}

	chainName, exists := ChainIdToName[c.ChainID]
	if !exists {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("chainId"), c.ChainID, []string{
			fmt.Sprintf("%d (mainnet)", ChainId_EthereumMainnet),
			fmt.Sprintf("%d (sepolia)", ChainId_EthereumSepolia),
			fmt.Sprintf("%d (anvil)", ChainId_EthereumAnvil),
		}))
	} else {
		c.ChainName = chainName
	}

	if c.AuthorityAddress == "" {
		if addr, err := GetAuthorityAddressForChainId(c.ChainID); err == nil {
			c.AuthorityAddress = addr
		}
	}
	if c.AuthorityAddress != "" && !common.IsHexAddress(c.AuthorityAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("authorityAddress"), c.AuthorityAddress,
			"invalid contract address format"))
	}

	switch c.Store {
	case StoreTypeMemory:
	case StoreTypeBadger:
		if c.DataDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataDir"), "data directory is required for the badger store"))
		}
	case StoreTypeRedis:
		if c.RedisAddr == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddr"), "redis address is required for the redis store"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("store"), c.Store,
			[]string{string(StoreTypeMemory), string(StoreTypeBadger), string(StoreTypeRedis)}))
	}

	if c.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), c.RateLimit, "rate limit cannot be negative"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// GetSupportedChainIDs returns all supported chain IDs
func GetSupportedChainIDs() []ChainId {
	return []ChainId{
		ChainId_EthereumMainnet,
		ChainId_EthereumSepolia,
		ChainId_EthereumAnvil,
	}
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}
