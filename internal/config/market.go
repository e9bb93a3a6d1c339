package config

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Market is the static price and decimals table for offline use.
type Market struct {
	Prices   map[common.Address]int64
	Decimals map[common.Address]uint8
}

// LoadMarket reads a market file (yaml, json or toml) of the form
//
//	prices:
//	  "0xfeed...": 200000000
//	decimals:
//	  "0xasset...": 6
func LoadMarket(path string) (Market, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Market{}, fmt.Errorf("read market file: %w", err)
	}

	market := Market{
		Prices:   make(map[common.Address]int64),
		Decimals: make(map[common.Address]uint8),
	}
	for key, raw := range v.GetStringMap("prices") {
		feed, err := ParseAddress(key)
		if err != nil {
			return Market{}, fmt.Errorf("prices: %w", err)
		}
		price, err := cast.ToInt64E(raw)
		if err != nil {
			return Market{}, fmt.Errorf("price of %s: %w", key, err)
		}
		market.Prices[feed] = price
	}
	for key, raw := range v.GetStringMap("decimals") {
		asset, err := ParseAddress(key)
		if err != nil {
			return Market{}, fmt.Errorf("decimals: %w", err)
		}
		d, err := cast.ToUint64E(raw)
		if err != nil {
			return Market{}, fmt.Errorf("decimals of %s: %w", key, err)
		}
		if d > math.MaxUint8 {
			return Market{}, fmt.Errorf("decimals of %s out of range: %d", key, d)
		}
		market.Decimals[asset] = uint8(d)
	}
	return market, nil
}
