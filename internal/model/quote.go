package model

import "github.com/ethereum/go-ethereum/common"

// SwapQuote describes the outcome of a swap against a state snapshot.
type SwapQuote struct {
	AssetIn       common.Address `json:"asset_in"`
	AssetOut      common.Address `json:"asset_out"`
	AmountIn      uint64         `json:"amount_in"`
	PriceIn       int64          `json:"price_in"`
	PriceOut      int64          `json:"price_out"`
	RawAmountOut  uint64         `json:"raw_amount_out"`
	FeeRate       uint64         `json:"fee_rate"`
	Regime        string         `json:"regime"`
	NetAmountOut  uint64         `json:"net_amount_out"`
	ProtocolFee   uint64         `json:"protocol_fee"`
	PartnerFee    uint64         `json:"partner_fee"`
	ProtocolShare uint64         `json:"protocol_income_scaled"`
}
