package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"spiceEngine/internal/chain"
)

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABIString      abi.ABI
	erc20ABIStringOnce  sync.Once
	erc20ABIStringErr   error
	erc20ABIBytes32     abi.ABI
	erc20ABIBytes32Once sync.Once
	erc20ABIBytes32Err  error
)

func erc20ABIStringInstance() (abi.ABI, error) {
	erc20ABIStringOnce.Do(func() {
		erc20ABIString, erc20ABIStringErr = abi.JSON(strings.NewReader(erc20ABIStringJSON))
	})
	return erc20ABIString, erc20ABIStringErr
}

func erc20ABIBytes32Instance() (abi.ABI, error) {
	erc20ABIBytes32Once.Do(func() {
		erc20ABIBytes32, erc20ABIBytes32Err = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20ABIBytes32, erc20ABIBytes32Err
}

// ERC20 reads asset metadata from token contracts and caches it. Decimals
// are immutable, so a cached entry is never refreshed.
type ERC20 struct {
	caller chain.ContractCaller
	cache  *Cache
	logger *zap.Logger
}

func NewERC20(caller chain.ContractCaller, logger *zap.Logger) *ERC20 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ERC20{caller: caller, cache: NewCache(), logger: logger}
}

func (e *ERC20) Decimals(ctx context.Context, asset common.Address) (uint8, error) {
	meta, err := e.Meta(ctx, asset)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// Meta returns cached metadata for asset, fetching it on first use.
func (e *ERC20) Meta(ctx context.Context, asset common.Address) (Meta, error) {
	if meta, ok := e.cache.Get(asset); ok {
		return meta, nil
	}
	meta, err := FetchMeta(ctx, e.caller, asset, e.logger)
	if err != nil {
		return Meta{}, err
	}
	e.cache.Set(asset, meta)
	return meta, nil
}

// FetchMeta loads asset metadata via ERC20 calls. The symbol is best effort.
func FetchMeta(ctx context.Context, caller chain.ContractCaller, asset common.Address, logger *zap.Logger) (Meta, error) {
	meta := Meta{Asset: asset}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := chain.CallMethod(ctx, caller, asset, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := chain.CallMethod(ctx, caller, asset, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := chain.CallMethod(ctx, caller, asset, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("asset", asset.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
