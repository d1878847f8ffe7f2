package types

import "fmt"

// AssetKind distinguishes bank-native coins from cw20 token contracts.
type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetCW20   AssetKind = "cw20"
)

// Asset identifies one of the two fungible units the vault holds: the stable
// unit (a native denom) or the receipt unit (a cw20 contract address).
type Asset struct {
	Kind AssetKind `json:"kind"`
	ID   string    `json:"id"` // denom for native assets, contract address for cw20
}

// NativeAsset returns the asset for a bank denom.
func NativeAsset(denom string) Asset {
	return Asset{Kind: AssetNative, ID: denom}
}

// CW20Asset returns the asset for a cw20 token contract.
func CW20Asset(contract string) Asset {
	return Asset{Kind: AssetCW20, ID: contract}
}

func (a Asset) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}
