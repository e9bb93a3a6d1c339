package main

import (
	"github.com/spf13/cobra"
)

func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Pay out the yield owed to a provider",
		RunE:  runHarvest,
	}
	cmd.Flags().String("caller", "", "provider address")
	cmd.Flags().String("asset", "", "pool asset address")
	return cmd
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect the protocol income of a pool as admin",
		RunE:  runCollect,
	}
	cmd.Flags().String("caller", "", "admin address")
	cmd.Flags().String("asset", "", "pool asset address")
	return cmd
}

func runHarvest(cmd *cobra.Command, _ []string) error {
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

	paid, err := rt.engine.HarvestYield(ctx, caller, asset)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]interface{}{
		"asset":          asset,
		"paid":           paid,
		"paid_formatted": rt.formatted(ctx, asset, paid),
	})
}

func runCollect(cmd *cobra.Command, _ []string) error {
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

	paid, err := rt.engine.CollectProtocolIncome(ctx, caller, asset)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]interface{}{
		"asset":          asset,
		"paid":           paid,
		"paid_formatted": rt.formatted(ctx, asset, paid),
	})
}
