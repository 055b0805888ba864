package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Witness binds auxiliary data into a one-shot transfer signature without
// altering the authorization's own fields. Implementations supply their own
// typed-data fragment and inner struct hash; the digest builder folds both
// into the outer hash, so new witness shapes can be added without touching
// the core hashing logic.
type Witness interface {
	// WitnessTypeString returns the fragment appended to the base one-shot
	// type string: the witness field declaration followed by every referenced
	// struct definition in EIP-712 alphabetical order. The fragment is a
	// structural constant and must be reproduced verbatim.
	WitnessTypeString() string

	// WitnessHash returns the struct hash appended after the base fields.
	WitnessHash() common.Hash
}

const (
	depositWitnessTypeString = "DepositWitness(address beneficiary)"

	// TokenPermissions sorts after DepositWitness in the completed type
	// string, so the fragment lists the witness definition first.
	depositWitnessFragment = "DepositWitness witness)" + depositWitnessTypeString + tokenPermissionsTypeString
)

var depositWitnessTypeHash = crypto.Keccak256Hash([]byte(depositWitnessTypeString))

// DepositWitness pins the intended beneficiary of a relayed deposit. A
// relayer submitting on a signer's behalf cannot substitute itself: the
// beneficiary is part of what was signed.
type DepositWitness struct {
	Beneficiary common.Address
}

func (w DepositWitness) WitnessTypeString() string {
	return depositWitnessFragment
}

func (w DepositWitness) WitnessHash() common.Hash {
	return hashStruct(depositWitnessTypeHash, addressWord(w.Beneficiary))
}
