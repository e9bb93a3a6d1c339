package model

import "github.com/ethereum/go-ethereum/common"

// TransferKind names the direction of a custody instruction.
type TransferKind string

const (
	// TransferPull moves Amount of Asset from Account into custody.
	TransferPull TransferKind = "pull"
	// TransferPush moves Amount of Asset from custody to Account.
	TransferPush TransferKind = "push"
	// TransferMint credits Amount of the LP share Asset to Account.
	TransferMint TransferKind = "mint"
	// TransferBurn debits Amount of the LP share Asset from Account.
	TransferBurn TransferKind = "burn"
)

// Transfer is a single instruction for the custodian.
type Transfer struct {
	Kind    TransferKind   `json:"kind"`
	Asset   common.Address `json:"asset"`
	Account common.Address `json:"account"`
	Amount  uint64         `json:"amount"`
}
