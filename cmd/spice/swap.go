package main

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"spiceEngine/internal/config"
	"spiceEngine/internal/engine"
	"spiceEngine/internal/model"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one pool asset for another at oracle prices",
		RunE:  runSwap,
	}
	cmd.Flags().String("caller", "", "trader address")
	addQuoteFlags(cmd)
	return cmd
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Evaluate a swap without executing it",
		RunE:  runQuote,
	}
	addQuoteFlags(cmd)
	return cmd
}

func addQuoteFlags(cmd *cobra.Command) {
	cmd.Flags().String("asset-in", "", "input asset address")
	cmd.Flags().String("asset-out", "", "output asset address")
	cmd.Flags().String("feed-in", "", "input price feed (defaults to the pool feed)")
	cmd.Flags().String("feed-out", "", "output price feed (defaults to the pool feed)")
	cmd.Flags().Uint64("amount-in", 0, "input amount in base units")
	cmd.Flags().Uint64("min-amount-out", 0, "minimum net output in base units")
	cmd.Flags().Uint64("partner-fee", 0, "partner fee rate scaled by 100000")
	cmd.Flags().String("partner", "", "partner address receiving the partner fee")
}

func parseQuoteFlags(ctx context.Context, cmd *cobra.Command, rt *runtime) (engine.QuoteRequest, error) {
	var req engine.QuoteRequest
	var err error
	if req.AssetIn, err = addressFlag(cmd, "asset-in"); err != nil {
		return req, err
	}
	if req.AssetOut, err = addressFlag(cmd, "asset-out"); err != nil {
		return req, err
	}
	if req.FeedIn, err = feedFlag(ctx, cmd, rt, "feed-in", req.AssetIn); err != nil {
		return req, err
	}
	if req.FeedOut, err = feedFlag(ctx, cmd, rt, "feed-out", req.AssetOut); err != nil {
		return req, err
	}
	req.AmountIn, _ = cmd.Flags().GetUint64("amount-in")
	req.MinAmountOut, _ = cmd.Flags().GetUint64("min-amount-out")
	req.PartnerFeeRate, _ = cmd.Flags().GetUint64("partner-fee")
	partner, _ := cmd.Flags().GetString("partner")
	if req.Partner, err = config.ParseOptionalAddress(partner); err != nil {
		return req, err
	}
	return req, nil
}

func feedFlag(ctx context.Context, cmd *cobra.Command, rt *runtime, name string, asset common.Address) (common.Address, error) {
	if raw, _ := cmd.Flags().GetString(name); raw != "" {
		return addressFlag(cmd, name)
	}
	pool, err := rt.engine.Pool(ctx, asset)
	if err != nil {
		return common.Address{}, err
	}
	return pool.OracleFeed, nil
}

type quoteOutput struct {
	model.SwapQuote
	NetFormatted string `json:"net_amount_out_formatted,omitempty"`
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	caller, err := addressFlag(cmd, "caller")
	if err != nil {
		return err
	}
	req, err := parseQuoteFlags(ctx, cmd, rt)
	if err != nil {
		return err
	}

	quote, err := rt.engine.Swap(ctx, engine.SwapRequest{Caller: caller, QuoteRequest: req})
	if err != nil {
		return err
	}
	return printJSON(cmd, quoteOutput{SwapQuote: quote, NetFormatted: rt.formatted(ctx, quote.AssetOut, quote.NetAmountOut)})
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	req, err := parseQuoteFlags(ctx, cmd, rt)
	if err != nil {
		return err
	}
	quote, err := rt.engine.Quote(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd, quoteOutput{SwapQuote: quote, NetFormatted: rt.formatted(ctx, quote.AssetOut, quote.NetAmountOut)})
}
