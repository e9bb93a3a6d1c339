package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Deposit or withdraw pool liquidity",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit liquidity and mint LP shares",
		RunE:  runLiquidityAdd,
	}
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn LP shares and withdraw principal plus yield",
		RunE:  runLiquidityRemove,
	}
	for _, c := range []*cobra.Command{addCmd, removeCmd} {
		c.Flags().String("caller", "", "provider address")
		c.Flags().String("asset", "", "pool asset address")
		c.Flags().Uint64("amount", 0, "amount in base units")
	}

	cmd.AddCommand(addCmd, removeCmd)
	return cmd
}

func runLiquidityAdd(cmd *cobra.Command, _ []string) error {
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
	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	provider, err := rt.engine.IncreaseLiquidity(ctx, caller, asset, amount)
	if err != nil {
		return err
	}
	rt.logger.Info("liquidity added", zap.String("asset", asset.Hex()), zap.Uint64("amount", amount))
	return printJSON(cmd, provider)
}

func runLiquidityRemove(cmd *cobra.Command, _ []string) error {
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
	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	payout, err := rt.engine.DecreaseLiquidity(ctx, caller, asset, amount)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]interface{}{
		"asset":            asset,
		"burned":           amount,
		"payout":           payout,
		"payout_formatted": rt.formatted(ctx, asset, payout),
	})
}
