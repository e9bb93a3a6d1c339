package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"spiceEngine/internal/fee"
	"spiceEngine/internal/model"
	"spiceEngine/internal/pricing"
	"spiceEngine/internal/storage"
)

// QuoteRequest describes a swap of AmountIn of AssetIn into AssetOut.
type QuoteRequest struct {
	AssetIn  common.Address
	AssetOut common.Address
	// FeedIn and FeedOut must be the feeds registered on the two pools.
	FeedIn       common.Address
	FeedOut      common.Address
	AmountIn     uint64
	MinAmountOut uint64
	// PartnerFeeRate is scaled by model.FeeScale. A non-zero rate requires Partner.
	PartnerFeeRate uint64
	Partner        *common.Address
}

// SwapRequest is a QuoteRequest executed on behalf of Caller.
type SwapRequest struct {
	Caller common.Address
	QuoteRequest
}

type swapPlan struct {
	quote model.SwapQuote
	poolA model.Pool
	poolB model.Pool
}

// Quote evaluates a swap against the current state without executing it.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (model.SwapQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan, err := e.plan(ctx, req)
	if err != nil {
		return model.SwapQuote{}, e.fail("quote", err)
	}
	return plan.quote, nil
}

// Swap exchanges AmountIn of AssetIn from the caller for AssetOut at the
// oracle price less the dynamic fee.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (model.SwapQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.swap(ctx, req)
	if err != nil {
		e.metrics.SwapsTotal.WithLabelValues("rejected").Inc()
		return model.SwapQuote{}, e.fail("swap", err)
	}

	e.metrics.SwapsTotal.WithLabelValues("ok").Inc()
	e.metrics.FeesTotal.WithLabelValues("protocol").Add(float64(quote.ProtocolFee))
	e.metrics.FeesTotal.WithLabelValues("partner").Add(float64(quote.PartnerFee))
	e.metrics.FeeRate.Observe(float64(quote.FeeRate))
	e.logger.Debug("swap executed",
		zap.String("caller", req.Caller.Hex()),
		zap.String("asset_in", quote.AssetIn.Hex()),
		zap.String("asset_out", quote.AssetOut.Hex()),
		zap.Int64("price_in", quote.PriceIn),
		zap.Int64("price_out", quote.PriceOut),
		zap.Uint64("amount_in", quote.AmountIn),
		zap.Uint64("raw_amount_out", quote.RawAmountOut),
		zap.Uint64("net_amount_out", quote.NetAmountOut),
		zap.Uint64("protocol_fee", quote.ProtocolFee),
		zap.Uint64("partner_fee", quote.PartnerFee),
		zap.Uint64("fee_rate", quote.FeeRate),
		zap.String("regime", quote.Regime),
	)
	return quote, nil
}

func (e *Engine) swap(ctx context.Context, req SwapRequest) (model.SwapQuote, error) {
	plan, err := e.plan(ctx, req.QuoteRequest)
	if err != nil {
		return model.SwapQuote{}, err
	}

	q := plan.quote
	transfers := []model.Transfer{
		{Kind: model.TransferPull, Asset: q.AssetIn, Account: req.Caller, Amount: q.AmountIn},
		{Kind: model.TransferPush, Asset: q.AssetOut, Account: req.Caller, Amount: q.NetAmountOut},
	}
	if req.PartnerFeeRate > 0 {
		transfers = append(transfers, model.Transfer{Kind: model.TransferPush, Asset: q.AssetOut, Account: *req.Partner, Amount: q.PartnerFee})
	}

	changes := storage.ChangeSet{Pools: []model.Pool{plan.poolA, plan.poolB}}
	if err := e.commit(ctx, changes, transfers); err != nil {
		return model.SwapQuote{}, err
	}
	return q, nil
}

// plan validates req and computes the swap outcome and the resulting pools.
func (e *Engine) plan(ctx context.Context, req QuoteRequest) (swapPlan, error) {
	settings, err := e.requireOpen(ctx)
	if err != nil {
		return swapPlan{}, err
	}
	poolA, err := e.pool(ctx, req.AssetIn)
	if err != nil {
		return swapPlan{}, err
	}
	poolB, err := e.pool(ctx, req.AssetOut)
	if err != nil {
		return swapPlan{}, err
	}
	if req.AssetIn == req.AssetOut {
		return swapPlan{}, model.ErrSameAsset
	}
	if !poolA.Active {
		return swapPlan{}, model.ErrPoolANotActive
	}
	if !poolB.Active {
		return swapPlan{}, model.ErrPoolBNotActive
	}
	if req.FeedIn != poolA.OracleFeed || req.FeedOut != poolB.OracleFeed {
		return swapPlan{}, model.ErrInvalidPythAccount
	}
	if req.PartnerFeeRate > 0 && req.Partner == nil {
		return swapPlan{}, model.ErrMissingSPLAccount
	}
	if settings.IncomeDistribution == 0 {
		return swapPlan{}, model.ErrDivideByZero
	}

	priceIn, priceOut, err := e.prices(ctx, poolA.OracleFeed, poolB.OracleFeed)
	if err != nil {
		return swapPlan{}, err
	}
	decimalsIn, decimalsOut, err := e.decimals(ctx, poolA.Asset, poolB.Asset)
	if err != nil {
		return swapPlan{}, err
	}

	raw, err := pricing.RawAmountOut(req.AmountIn, uint64(priceIn), uint64(priceOut), decimalsIn, decimalsOut)
	if err != nil {
		return swapPlan{}, err
	}
	if !raw.IsUint64() {
		return swapPlan{}, model.ErrOverflow
	}
	rawOut := raw.Uint64()

	rate, err := fee.Dynamic(
		poolB.BaseFee,
		req.AmountIn,
		rawOut,
		fee.Liquidity{Initial: poolA.InitialLiquidity, Current: poolA.CurrentLiquidity},
		fee.Liquidity{Initial: poolB.InitialLiquidity, Current: poolB.CurrentLiquidity},
	)
	if err != nil {
		return swapPlan{}, err
	}
	split, err := fee.Split(raw, rate.Value, req.PartnerFeeRate)
	if err != nil {
		return swapPlan{}, err
	}
	if split.Net < req.MinAmountOut {
		return swapPlan{}, model.ErrHighSlippage
	}
	if split.Net > poolB.CurrentLiquidity {
		return swapPlan{}, model.ErrInsufficientLiquidity
	}

	protocolScaled, overflow := math.SafeMul(split.Protocol, model.SpiceScale)
	if overflow {
		return swapPlan{}, model.ErrOverflow
	}
	incomeScaled := protocolScaled / settings.IncomeDistribution

	if poolB.ProtocolIncome, overflow = math.SafeAdd(poolB.ProtocolIncome, incomeScaled); overflow {
		return swapPlan{}, model.ErrOverflow
	}
	if poolA.CurrentLiquidity, overflow = math.SafeAdd(poolA.CurrentLiquidity, req.AmountIn); overflow {
		return swapPlan{}, model.ErrOverflow
	}
	outflow, underflow := math.SafeSub(rawOut, incomeScaled/model.SpiceScale)
	if underflow {
		return swapPlan{}, model.ErrOverflow
	}
	if poolB.CurrentLiquidity, underflow = math.SafeSub(poolB.CurrentLiquidity, outflow); underflow {
		return swapPlan{}, model.ErrOverflow
	}
	if poolB.CumulativeYield, overflow = math.SafeAdd(poolB.CumulativeYield, protocolScaled-incomeScaled); overflow {
		return swapPlan{}, model.ErrOverflow
	}

	return swapPlan{
		quote: model.SwapQuote{
			AssetIn:       poolA.Asset,
			AssetOut:      poolB.Asset,
			AmountIn:      req.AmountIn,
			PriceIn:       priceIn,
			PriceOut:      priceOut,
			RawAmountOut:  rawOut,
			FeeRate:       rate.Value,
			Regime:        rate.Regime.String(),
			NetAmountOut:  split.Net,
			ProtocolFee:   split.Protocol,
			PartnerFee:    split.Partner,
			ProtocolShare: incomeScaled,
		},
		poolA: poolA,
		poolB: poolB,
	}, nil
}

func (e *Engine) prices(ctx context.Context, feedIn, feedOut common.Address) (int64, int64, error) {
	if e.oracle == nil {
		return 0, 0, fmt.Errorf("price oracle is nil")
	}
	in, err := e.oracle.Price(ctx, feedIn)
	if err != nil {
		return 0, 0, fmt.Errorf("price in: %w", err)
	}
	out, err := e.oracle.Price(ctx, feedOut)
	if err != nil {
		return 0, 0, fmt.Errorf("price out: %w", err)
	}
	if in.Value <= 0 || out.Value <= 0 {
		return 0, 0, model.ErrPriceNotAvailable
	}
	return in.Value, out.Value, nil
}

func (e *Engine) decimals(ctx context.Context, assetIn, assetOut common.Address) (uint8, uint8, error) {
	if e.tokens == nil {
		return 0, 0, fmt.Errorf("token registry is nil")
	}
	in, err := e.tokens.Decimals(ctx, assetIn)
	if err != nil {
		return 0, 0, fmt.Errorf("decimals in: %w", err)
	}
	out, err := e.tokens.Decimals(ctx, assetOut)
	if err != nil {
		return 0, 0, fmt.Errorf("decimals out: %w", err)
	}
	return in, out, nil
}
