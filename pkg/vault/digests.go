package vault

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
)

// Digest helpers return the exact digest a depositor must sign for each
// deposit shape, with the vault's spender identity and the authority's
// domain separator filled in. Off-chain signing tooling should use these
// rather than reimplementing the typed-data layouts.

func (v *Vault) PermitDigest(ctx context.Context, permit permit2.PermitSingle) (common.Hash, error) {
	domain, err := v.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return permit2.HashPermitSingle(domain, permit), nil
}

func (v *Vault) PermitBatchDigest(ctx context.Context, permit permit2.PermitBatch) (common.Hash, error) {
	domain, err := v.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return permit2.HashPermitBatch(domain, permit), nil
}

func (v *Vault) TransferPermitDigest(ctx context.Context, permit permit2.PermitTransferFrom) (common.Hash, error) {
	domain, err := v.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return permit2.HashPermitTransferFrom(domain, permit, v.self), nil
}

func (v *Vault) BatchTransferPermitDigest(ctx context.Context, permit permit2.PermitBatchTransferFrom) (common.Hash, error) {
	domain, err := v.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return permit2.HashPermitBatchTransferFrom(domain, permit, v.self), nil
}

func (v *Vault) WitnessTransferDigest(ctx context.Context, permit permit2.PermitTransferFrom, beneficiary common.Address) (common.Hash, error) {
	domain, err := v.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	witness := permit2.DepositWitness{Beneficiary: beneficiary}
	return permit2.HashPermitWitnessTransferFrom(domain, permit, v.self, witness), nil
}

func (v *Vault) BatchWitnessTransferDigest(ctx context.Context, permit permit2.PermitBatchTransferFrom, beneficiary common.Address) (common.Hash, error) {
	domain, err := v.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	witness := permit2.DepositWitness{Beneficiary: beneficiary}
	return permit2.HashPermitBatchWitnessTransferFrom(domain, permit, v.self, witness), nil
}

// domainSeparator caches the authority's domain separator after the first
// successful read; the value is immutable per deployment.
func (v *Vault) domainSeparator(ctx context.Context) (common.Hash, error) {
	v.domainMu.Lock()
	defer v.domainMu.Unlock()

	if v.domainLoaded {
		return v.domain, nil
	}

	domain, err := v.authority.DomainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	v.domain = domain
	v.domainLoaded = true
	return v.domain, nil
}
