package common

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// CreateArgs are the arguments of the pump create instruction.
type CreateArgs struct {
	Name   string
	Symbol string
	Uri    string
}

// CreateArgsDeserialize decodes create instruction data, discriminator included.
func CreateArgsDeserialize(data []byte) (CreateArgs, error) {
	var args CreateArgs
	if len(data) < 8 {
		return args, fmt.Errorf("create data too short: %d", len(data))
	}

	err := borsh.Deserialize(&args, data[8:])
	return args, err
}

type Data struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
}

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

func MetadataDeserialize(data []byte) (Metadata, error) {
	var metadata Metadata

	err := borsh.Deserialize(&metadata, data)
	return metadata, err
}

type Metadata struct {
	Key                 uint8
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
	EditionNonce        *uint8
	TokenStandard       *uint8
	Collection          *Collection
	Uses                *Uses
	CollectionDetails   *CollectionDetails
	ProgrammableConfig  *ProgrammableConfig
}

type Collection struct {
	Verified bool
	Key      solana.PublicKey
}

type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

type CollectionDetails struct {
	Enum borsh.Enum `borsh_enum:"true"`
	V1   CollectionDetailsV1
}

type CollectionDetailsV1 struct {
	Size uint64
}

type ProgrammableConfig struct {
	Enum borsh.Enum `borsh_enum:"true"`
	V1   ProgrammableConfigV1
}

type ProgrammableConfigV1 struct {
	RuleSet *solana.PublicKey
}
