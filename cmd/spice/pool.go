package main

import (
	"github.com/spf13/cobra"

	"spiceEngine/internal/engine"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Create, configure and inspect pools",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pool",
		RunE:  runPoolCreate,
	}
	createCmd.Flags().String("caller", "", "admin address")
	createCmd.Flags().String("asset", "", "pool asset address")
	createCmd.Flags().String("feed", "", "price feed address")
	createCmd.Flags().String("lp-asset", "", "LP share asset address")
	createCmd.Flags().Bool("active", true, "accept swaps")
	createCmd.Flags().Uint64("base-fee", 0, "fee floor scaled by 100000")

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change the active flag and fee floor of a pool",
		RunE:  runPoolSet,
	}
	setCmd.Flags().String("caller", "", "admin address")
	setCmd.Flags().String("asset", "", "pool asset address")
	setCmd.Flags().Bool("active", true, "accept swaps")
	setCmd.Flags().Uint64("base-fee", 0, "fee floor scaled by 100000")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show one pool, or every pool without --asset",
		RunE:  runPoolShow,
	}
	showCmd.Flags().String("asset", "", "pool asset address")
	showCmd.Flags().String("owner", "", "also show this provider position")

	cmd.AddCommand(createCmd, setCmd, showCmd)
	return cmd
}

func runPoolCreate(cmd *cobra.Command, _ []string) error {
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
	var req engine.CreatePoolRequest
	if req.Asset, err = addressFlag(cmd, "asset"); err != nil {
		return err
	}
	if req.OracleFeed, err = addressFlag(cmd, "feed"); err != nil {
		return err
	}
	if req.LPShareAsset, err = addressFlag(cmd, "lp-asset"); err != nil {
		return err
	}
	req.Active, _ = cmd.Flags().GetBool("active")
	req.BaseFee, _ = cmd.Flags().GetUint64("base-fee")

	pool, err := rt.engine.CreatePool(ctx, caller, req)
	if err != nil {
		return err
	}
	return printJSON(cmd, pool)
}

func runPoolSet(cmd *cobra.Command, _ []string) error {
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
	active, _ := cmd.Flags().GetBool("active")
	baseFee, _ := cmd.Flags().GetUint64("base-fee")

	pool, err := rt.engine.SetPoolSettings(ctx, caller, asset, active, baseFee)
	if err != nil {
		return err
	}
	return printJSON(cmd, pool)
}

func runPoolShow(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if raw, _ := cmd.Flags().GetString("asset"); raw == "" {
		pools, err := rt.engine.Pools(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, pools)
	}

	asset, err := addressFlag(cmd, "asset")
	if err != nil {
		return err
	}
	pool, err := rt.engine.Pool(ctx, asset)
	if err != nil {
		return err
	}
	out := map[string]interface{}{
		"pool":                        pool,
		"current_liquidity_formatted": rt.formatted(ctx, asset, pool.CurrentLiquidity),
	}
	if raw, _ := cmd.Flags().GetString("owner"); raw != "" {
		owner, err := addressFlag(cmd, "owner")
		if err != nil {
			return err
		}
		provider, err := rt.engine.Provider(ctx, asset, owner)
		if err != nil {
			return err
		}
		owed, err := rt.engine.Entitlement(ctx, asset, owner)
		if err != nil {
			return err
		}
		out["provider"] = provider
		out["entitlement"] = owed
		out["entitlement_formatted"] = rt.formatted(ctx, asset, owed)
	}
	return printJSON(cmd, out)
}
