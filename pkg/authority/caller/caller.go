// Package caller implements authority.IAuthority against the deployed
// Permit2 contract.
package caller

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/permit2-vault-go/pkg/authority"
	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
	"github.com/Layr-Labs/permit2-vault-go/pkg/transactionSigner"
)

// AuthorityCaller talks to the Permit2 contract over an ethclient. All
// state-mutating methods send a transaction from the vault's signer and wait
// for it to mine; a reverted receipt surfaces as an error.
type AuthorityCaller struct {
	address   common.Address
	contract  *bind.BoundContract
	ethclient *ethclient.Client
	signer    transactionSigner.ITransactionSigner
	logger    *zap.Logger
}

var _ authority.IAuthority = (*AuthorityCaller)(nil)

func NewAuthorityCaller(
	address common.Address,
	client *ethclient.Client,
	signer transactionSigner.ITransactionSigner,
	logger *zap.Logger,
) (*AuthorityCaller, error) {
	parsed, err := abi.JSON(strings.NewReader(permit2ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse permit2 ABI")
	}

	return &AuthorityCaller{
		address:   address,
		contract:  bind.NewBoundContract(address, parsed, client, client, client),
		ethclient: client,
		signer:    signer,
		logger:    logger,
	}, nil
}

func (c *AuthorityCaller) Address() common.Address {
	return c.address
}

func (c *AuthorityCaller) Permit(ctx context.Context, owner common.Address, permit permit2.PermitSingle, signature []byte) error {
	return c.transact(ctx, "permit", owner, permit, signature)
}

func (c *AuthorityCaller) PermitBatch(ctx context.Context, owner common.Address, permit permit2.PermitBatch, signature []byte) error {
	return c.transact(ctx, "permit0", owner, permit, signature)
}

func (c *AuthorityCaller) TransferFrom(ctx context.Context, from common.Address, to common.Address, amount *big.Int, token common.Address) error {
	return c.transact(ctx, "transferFrom", from, to, amount, token)
}

func (c *AuthorityCaller) BatchTransferFrom(ctx context.Context, transfers []permit2.AllowanceTransferDetails) error {
	return c.transact(ctx, "transferFrom0", transfers)
}

func (c *AuthorityCaller) PermitTransferFrom(
	ctx context.Context,
	permit permit2.PermitTransferFrom,
	transfer permit2.SignatureTransferDetails,
	owner common.Address,
	signature []byte,
) error {
	return c.transact(ctx, "permitTransferFrom", permit, transfer, owner, signature)
}

func (c *AuthorityCaller) PermitBatchTransferFrom(
	ctx context.Context,
	permit permit2.PermitBatchTransferFrom,
	transfers []permit2.SignatureTransferDetails,
	owner common.Address,
	signature []byte,
) error {
	return c.transact(ctx, "permitTransferFrom0", permit, transfers, owner, signature)
}

func (c *AuthorityCaller) PermitWitnessTransferFrom(
	ctx context.Context,
	permit permit2.PermitTransferFrom,
	transfer permit2.SignatureTransferDetails,
	owner common.Address,
	witness permit2.Witness,
	signature []byte,
) error {
	return c.transact(ctx, "permitWitnessTransferFrom",
		permit, transfer, owner, [32]byte(witness.WitnessHash()), witness.WitnessTypeString(), signature)
}

func (c *AuthorityCaller) PermitBatchWitnessTransferFrom(
	ctx context.Context,
	permit permit2.PermitBatchTransferFrom,
	transfers []permit2.SignatureTransferDetails,
	owner common.Address,
	witness permit2.Witness,
	signature []byte,
) error {
	return c.transact(ctx, "permitWitnessTransferFrom0",
		permit, transfers, owner, [32]byte(witness.WitnessHash()), witness.WitnessTypeString(), signature)
}

func (c *AuthorityCaller) DomainSeparator(ctx context.Context) (common.Hash, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "DOMAIN_SEPARATOR"); err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to read DOMAIN_SEPARATOR")
	}

	separator := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return common.Hash(separator), nil
}

func (c *AuthorityCaller) Allowance(ctx context.Context, owner common.Address, token common.Address, spender common.Address) (*authority.Allowance, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, token, spender); err != nil {
		return nil, errors.Wrap(err, "failed to read allowance")
	}

	return &authority.Allowance{
		Amount:     *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Expiration: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		Nonce:      *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
	}, nil
}

func (c *AuthorityCaller) NonceBitmap(ctx context.Context, owner common.Address, wordPos *big.Int) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "nonceBitmap", owner, wordPos); err != nil {
		return nil, errors.Wrap(err, "failed to read nonce bitmap")
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// transact sends a state-mutating call and waits for the receipt.
func (c *AuthorityCaller) transact(ctx context.Context, method string, args ...interface{}) error {
	opts, err := c.signer.GetTransactOpts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to build transact opts")
	}

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s", method)
	}

	c.logger.Sugar().Infow("Sent authority transaction",
		"method", method,
		"txHash", tx.Hash().Hex(),
		"from", c.signer.GetFromAddress().Hex(),
	)

	receipt, err := bind.WaitMined(ctx, c.ethclient, tx)
	if err != nil {
		return errors.Wrapf(err, "failed waiting for %s to mine", method)
	}
	if receipt.Status != ethereumTypes.ReceiptStatusSuccessful {
		return errors.Errorf("%s reverted in tx %s", method, tx.Hash().Hex())
	}

	return nil
}
