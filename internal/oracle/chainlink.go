package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"spiceEngine/internal/chain"
	"spiceEngine/internal/model"
)

const aggregatorABIJSON = `[
  {"inputs": [], "name": "latestRoundData", "outputs": [
    {"internalType": "uint80", "name": "roundId", "type": "uint80"},
    {"internalType": "int256", "name": "answer", "type": "int256"},
    {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
    {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
    {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
  ], "stateMutability": "view", "type": "function"}
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

// AggregatorABI returns the parsed price aggregator ABI.
func AggregatorABI() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// ChainlinkConfig controls RPC retries.
type ChainlinkConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Chainlink reads prices from aggregator contracts exposing latestRoundData.
type Chainlink struct {
	cfg    ChainlinkConfig
	caller chain.ContractCaller
	logger *zap.Logger
}

func NewChainlink(cfg ChainlinkConfig, caller chain.ContractCaller, logger *zap.Logger) *Chainlink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chainlink{cfg: cfg, caller: caller, logger: logger}
}

func (c *Chainlink) Price(ctx context.Context, feed common.Address) (model.Price, error) {
	parsed, err := AggregatorABI()
	if err != nil {
		return model.Price{}, fmt.Errorf("parse aggregator abi: %w", err)
	}

	var values []interface{}
	err = withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		values, err = chain.CallMethod(ctx, c.caller, feed, parsed, "latestRoundData")
		if err != nil {
			c.logger.Warn("price fetch failed", zap.String("feed", feed.Hex()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return model.Price{}, err
	}
	if len(values) != 5 {
		return model.Price{}, fmt.Errorf("latestRoundData return size %d", len(values))
	}

	answer, ok := values[1].(*big.Int)
	if !ok {
		return model.Price{}, fmt.Errorf("latestRoundData unexpected answer type %T", values[1])
	}
	if !answer.IsInt64() {
		return model.Price{}, fmt.Errorf("feed %s answer %s: %w", feed.Hex(), answer, model.ErrPriceNotAvailable)
	}

	price := model.Price{Feed: feed, Value: answer.Int64()}
	if updatedAt, ok := values[3].(*big.Int); ok && updatedAt.IsInt64() {
		price.UpdatedAt = time.Unix(updatedAt.Int64(), 0).UTC()
	}
	return price, nil
}
