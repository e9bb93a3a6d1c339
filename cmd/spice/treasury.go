package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newTreasuryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treasury",
		Short: "Manage treasury settings",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialise the treasury as the bootstrap administrator",
		RunE:  runTreasuryInit,
	}
	initCmd.Flags().String("caller", "", "caller address")
	initCmd.Flags().Uint64("income-distribution", 1, "divisor of the protocol fee kept by the treasury")
	initCmd.Flags().Bool("stoptap", false, "halt swaps, deposits, withdrawals and harvests")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update treasury settings and optionally rotate the admin",
		RunE:  runTreasuryUpdate,
	}
	updateCmd.Flags().String("caller", "", "current admin address")
	updateCmd.Flags().String("new-admin", "", "new admin address (defaults to caller)")
	updateCmd.Flags().Uint64("income-distribution", 1, "divisor of the protocol fee kept by the treasury")
	updateCmd.Flags().Bool("stoptap", false, "halt swaps, deposits, withdrawals and harvests")

	cmd.AddCommand(initCmd, updateCmd)
	return cmd
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runTreasuryInit(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Administrator == "" {
		return fmt.Errorf("administrator is required")
	}
	caller, err := addressFlag(cmd, "caller")
	if err != nil {
		return err
	}
	income, _ := cmd.Flags().GetUint64("income-distribution")
	stoptap, _ := cmd.Flags().GetBool("stoptap")

	settings, err := rt.engine.InitTreasury(ctx, caller, income, stoptap)
	if err != nil {
		return err
	}
	return printJSON(cmd, settings)
}

func runTreasuryUpdate(cmd *cobra.Command, _ []string) error {
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
	newAdmin := caller
	if raw, _ := cmd.Flags().GetString("new-admin"); raw != "" {
		if newAdmin, err = addressFlag(cmd, "new-admin"); err != nil {
			return err
		}
	}
	income, _ := cmd.Flags().GetUint64("income-distribution")
	stoptap, _ := cmd.Flags().GetBool("stoptap")

	settings, err := rt.engine.UpdateSettings(ctx, caller, newAdmin, income, stoptap)
	if err != nil {
		return err
	}
	return printJSON(cmd, settings)
}
