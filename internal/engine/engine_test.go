package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"spiceEngine/internal/custody"
	"spiceEngine/internal/model"
	"spiceEngine/internal/oracle"
	"spiceEngine/internal/storage"
	"spiceEngine/internal/token"
	"spiceEngine/internal/yield"
)

var (
	admin   = common.HexToAddress("0xad")
	lp      = common.HexToAddress("0x11")
	trader  = common.HexToAddress("0x22")
	partner = common.HexToAddress("0x33")

	assetA = common.HexToAddress("0xaa")
	assetB = common.HexToAddress("0xbb")
	feedA  = common.HexToAddress("0xfa")
	feedB  = common.HexToAddress("0xfb")
	shareA = common.HexToAddress("0x1a")
	shareB = common.HexToAddress("0x1b")
)

const (
	depth       uint64 = 1_000_000_000_000
	tradeIn     uint64 = 1_000_000_000
	baseFee     uint64 = 10
	incomeShare uint64 = 2
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	engine *Engine
	store  *storage.Memory
	ledger *custody.Ledger
	prices *oracle.Static
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  storage.NewMemory(),
		ledger: custody.NewLedger(),
		prices: oracle.NewStatic(map[common.Address]int64{feedA: 200_000_000, feedB: 100_000_000}),
		reg:    prometheus.NewRegistry(),
	}
	eng, err := New(Config{
		Store:         f.store,
		Custodian:     f.ledger,
		Oracle:        f.prices,
		Tokens:        token.NewStatic(map[common.Address]uint8{assetA: 6, assetB: 6}),
		Administrator: admin,
		Registerer:    f.reg,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	f.engine = eng

	if _, err := eng.InitTreasury(f.ctx, admin, incomeShare, false); err != nil {
		t.Fatalf("init treasury: %v", err)
	}
	for _, req := range []CreatePoolRequest{
		{Asset: assetA, OracleFeed: feedA, LPShareAsset: shareA, Active: true, BaseFee: baseFee},
		{Asset: assetB, OracleFeed: feedB, LPShareAsset: shareB, Active: true, BaseFee: baseFee},
	} {
		if _, err := eng.CreatePool(f.ctx, admin, req); err != nil {
			t.Fatalf("create pool: %v", err)
		}
	}
	return f
}

func (f *fixture) fund(account, asset common.Address, amount uint64) {
	f.t.Helper()
	if err := f.ledger.Credit(account, asset, amount); err != nil {
		f.t.Fatalf("credit: %v", err)
	}
}

func (f *fixture) deposit(asset common.Address, amount uint64) {
	f.t.Helper()
	f.fund(lp, asset, amount)
	if _, err := f.engine.IncreaseLiquidity(f.ctx, lp, asset, amount); err != nil {
		f.t.Fatalf("increase liquidity: %v", err)
	}
}

func (f *fixture) pool(asset common.Address) model.Pool {
	f.t.Helper()
	pool, err := f.engine.Pool(f.ctx, asset)
	if err != nil {
		f.t.Fatalf("pool: %v", err)
	}
	return pool
}

// snapshot captures everything an operation may change.
type snapshot struct {
	pools     []model.Pool
	providers []model.Provider
	balances  []uint64
}

func (f *fixture) snapshot() snapshot {
	f.t.Helper()
	pools, err := f.store.Pools(f.ctx)
	if err != nil {
		f.t.Fatalf("pools: %v", err)
	}
	var snap snapshot
	snap.pools = pools
	for _, asset := range []common.Address{assetA, assetB} {
		for _, owner := range []common.Address{lp, trader} {
			if p, ok, _ := f.store.Provider(f.ctx, asset, owner); ok {
				snap.providers = append(snap.providers, p)
			}
		}
	}
	for _, asset := range []common.Address{assetA, assetB, shareA, shareB} {
		snap.balances = append(snap.balances, f.ledger.Custody(asset))
		for _, owner := range []common.Address{lp, trader, partner, admin} {
			snap.balances = append(snap.balances, f.ledger.Balance(owner, asset))
		}
	}
	return snap
}

func (f *fixture) requireUnchanged(before snapshot) {
	f.t.Helper()
	after := f.snapshot()
	if !reflect.DeepEqual(before, after) {
		f.t.Fatalf("state changed by rejected operation:\nbefore %+v\nafter  %+v", before, after)
	}
}

func swapRequest(amountIn uint64) SwapRequest {
	return SwapRequest{
		Caller: trader,
		QuoteRequest: QuoteRequest{
			AssetIn:  assetA,
			AssetOut: assetB,
			FeedIn:   feedA,
			FeedOut:  feedB,
			AmountIn: amountIn,
		},
	}
}

func TestSwapUpdatesPoolsAndSettles(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)

	quote, err := f.engine.Swap(f.ctx, swapRequest(tradeIn))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if quote.RawAmountOut != 2_000_000_000 {
		t.Fatalf("expected raw 2000000000, got %d", quote.RawAmountOut)
	}
	if quote.FeeRate != baseFee || quote.Regime != "regular" {
		t.Fatalf("expected floor fee in regular regime, got %d %s", quote.FeeRate, quote.Regime)
	}
	if quote.ProtocolFee != 200_000 || quote.NetAmountOut != 1_999_800_000 || quote.PartnerFee != 0 {
		t.Fatalf("unexpected split %+v", quote)
	}
	if quote.NetAmountOut+quote.ProtocolFee+quote.PartnerFee != quote.RawAmountOut {
		t.Fatalf("split does not reconcile: %+v", quote)
	}

	poolA := f.pool(assetA)
	if poolA.CurrentLiquidity != depth+tradeIn || poolA.InitialLiquidity != depth {
		t.Fatalf("unexpected pool a %+v", poolA)
	}
	poolB := f.pool(assetB)
	if poolB.ProtocolIncome != 100_000_000 {
		t.Fatalf("expected protocol income 100000000, got %d", poolB.ProtocolIncome)
	}
	if poolB.CurrentLiquidity != depth-1_999_900_000 {
		t.Fatalf("unexpected pool b current %d", poolB.CurrentLiquidity)
	}
	if poolB.CumulativeYield != 100_000_000 {
		t.Fatalf("expected cumulative yield 100000000, got %d", poolB.CumulativeYield)
	}

	if got := f.ledger.Balance(trader, assetB); got != quote.NetAmountOut {
		t.Fatalf("trader received %d, want %d", got, quote.NetAmountOut)
	}
	if got := f.ledger.Custody(assetA); got != depth+tradeIn {
		t.Fatalf("custody a %d", got)
	}

	if got := testutil.ToFloat64(f.engine.metrics.SwapsTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected one ok swap, got %v", got)
	}
	if got := testutil.ToFloat64(f.engine.metrics.FeesTotal.WithLabelValues("protocol")); got != 200_000 {
		t.Fatalf("expected protocol fees 200000, got %v", got)
	}
}

func TestQuoteDoesNotCommit(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	before := f.snapshot()

	quote, err := f.engine.Quote(f.ctx, swapRequest(tradeIn).QuoteRequest)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.NetAmountOut != 1_999_800_000 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	f.requireUnchanged(before)
}

func TestSwapPartnerFee(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)

	req := swapRequest(tradeIn)
	req.PartnerFeeRate = 50
	before := f.snapshot()
	if _, err := f.engine.Swap(f.ctx, req); !errors.Is(err, model.ErrMissingSPLAccount) {
		t.Fatalf("expected ErrMissingSPLAccount, got %v", err)
	}
	f.requireUnchanged(before)

	req.Partner = &partner
	quote, err := f.engine.Swap(f.ctx, req)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if quote.PartnerFee != 1_000_000 {
		t.Fatalf("expected partner fee 1000000, got %d", quote.PartnerFee)
	}
	if got := f.ledger.Balance(partner, assetB); got != quote.PartnerFee {
		t.Fatalf("partner received %d", got)
	}
	if quote.NetAmountOut+quote.ProtocolFee+quote.PartnerFee != quote.RawAmountOut {
		t.Fatalf("split does not reconcile: %+v", quote)
	}
}

func TestSwapRejections(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, 1_000_000)
	f.fund(trader, assetA, tradeIn)

	cases := []struct {
		name   string
		mutate func(*SwapRequest)
		want   error
	}{
		{"insufficient liquidity", func(r *SwapRequest) {}, model.ErrInsufficientLiquidity},
		{"slippage", func(r *SwapRequest) { r.AmountIn = 100; r.MinAmountOut = 1_000 }, model.ErrHighSlippage},
		{"feed in", func(r *SwapRequest) { r.FeedIn = feedB }, model.ErrInvalidPythAccount},
		{"feed out", func(r *SwapRequest) { r.FeedOut = feedA }, model.ErrInvalidPythAccount},
		{"same asset", func(r *SwapRequest) { r.AssetOut = assetA; r.FeedOut = feedA }, model.ErrSameAsset},
		{"missing pool", func(r *SwapRequest) { r.AssetOut = common.HexToAddress("0xcc") }, model.ErrMissingAccount},
	}
	for _, tc := range cases {
		req := swapRequest(tradeIn)
		tc.mutate(&req)
		before := f.snapshot()
		if _, err := f.engine.Swap(f.ctx, req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		f.requireUnchanged(before)
	}

	if _, err := f.engine.SetPoolSettings(f.ctx, admin, assetA, false, baseFee); err != nil {
		t.Fatalf("deactivate a: %v", err)
	}
	if _, err := f.engine.Swap(f.ctx, swapRequest(100)); !errors.Is(err, model.ErrPoolANotActive) {
		t.Fatalf("expected ErrPoolANotActive, got %v", err)
	}
	if _, err := f.engine.SetPoolSettings(f.ctx, admin, assetA, true, baseFee); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if _, err := f.engine.SetPoolSettings(f.ctx, admin, assetB, false, baseFee); err != nil {
		t.Fatalf("deactivate b: %v", err)
	}
	if _, err := f.engine.Swap(f.ctx, swapRequest(100)); !errors.Is(err, model.ErrPoolBNotActive) {
		t.Fatalf("expected ErrPoolBNotActive, got %v", err)
	}
	if got := testutil.ToFloat64(f.engine.metrics.SwapsTotal.WithLabelValues("rejected")); got != 8 {
		t.Fatalf("expected 8 rejected swaps, got %v", got)
	}
}

func TestSwapRequiresPriceAndIncomeDistribution(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)

	f.prices.Set(feedB, 0)
	if _, err := f.engine.Quote(f.ctx, swapRequest(tradeIn).QuoteRequest); !errors.Is(err, model.ErrPriceNotAvailable) {
		t.Fatalf("expected ErrPriceNotAvailable, got %v", err)
	}
	f.prices.Set(feedB, 100_000_000)

	if _, err := f.engine.UpdateSettings(f.ctx, admin, admin, 0, false); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := f.engine.Quote(f.ctx, swapRequest(tradeIn).QuoteRequest); !errors.Is(err, model.ErrDivideByZero) {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestStoptapRejectsValueMovingOperations(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)
	f.fund(lp, assetA, 100)

	if _, err := f.engine.UpdateSettings(f.ctx, admin, admin, incomeShare, true); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	before := f.snapshot()

	ops := map[string]func() error{
		"swap": func() error {
			_, err := f.engine.Swap(f.ctx, swapRequest(tradeIn))
			return err
		},
		"harvest": func() error {
			_, err := f.engine.HarvestYield(f.ctx, lp, assetB)
			return err
		},
		"increase": func() error {
			_, err := f.engine.IncreaseLiquidity(f.ctx, lp, assetA, 100)
			return err
		},
		"decrease": func() error {
			_, err := f.engine.DecreaseLiquidity(f.ctx, lp, assetA, 100)
			return err
		},
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, model.ErrStoptapActivated) {
			t.Fatalf("%s: expected ErrStoptapActivated, got %v", name, err)
		}
	}
	f.requireUnchanged(before)
}

func TestDecreaseBeyondBalance(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, 500)
	before := f.snapshot()

	if _, err := f.engine.DecreaseLiquidity(f.ctx, lp, assetA, 501); !errors.Is(err, model.ErrInvalidLpAmount) {
		t.Fatalf("expected ErrInvalidLpAmount, got %v", err)
	}
	f.requireUnchanged(before)

	if _, err := f.engine.DecreaseLiquidity(f.ctx, trader, assetA, 1); !errors.Is(err, model.ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}
}

func TestDecreaseLiquidityRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, 500)

	payout, err := f.engine.DecreaseLiquidity(f.ctx, lp, assetA, 200)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if payout != 200 {
		t.Fatalf("expected payout 200, got %d", payout)
	}
	pool := f.pool(assetA)
	if pool.InitialLiquidity != 300 || pool.CurrentLiquidity != 300 {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if got := f.ledger.Balance(lp, shareA); got != 300 {
		t.Fatalf("expected 300 lp shares, got %d", got)
	}
	if got := f.ledger.Balance(lp, assetA); got != 200 {
		t.Fatalf("expected 200 returned, got %d", got)
	}
}

func TestDecreaseDepletedPoolChargesExitFee(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)
	if _, err := f.engine.Swap(f.ctx, swapRequest(tradeIn)); err != nil {
		t.Fatalf("swap: %v", err)
	}

	poolB := f.pool(assetB)
	if !poolB.Depleted() {
		t.Fatalf("expected pool b depleted: %+v", poolB)
	}
	owed, err := f.engine.Entitlement(f.ctx, assetB, lp)
	if err != nil {
		t.Fatalf("entitlement: %v", err)
	}
	if owed == 0 {
		t.Fatalf("expected accrued yield")
	}
	want, err := yield.WithdrawalAmount(poolB, tradeIn, owed)
	if err != nil {
		t.Fatalf("withdrawal amount: %v", err)
	}

	payout, err := f.engine.DecreaseLiquidity(f.ctx, lp, assetB, tradeIn)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if payout != want || payout >= tradeIn+owed {
		t.Fatalf("expected payout %d below %d, got %d", want, tradeIn+owed, payout)
	}
	provider, err := f.engine.Provider(f.ctx, assetB, lp)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	if provider.PendingClaim != 0 || provider.LastCumulativeYield != poolB.CumulativeYield || provider.LPBalance != depth-tradeIn {
		t.Fatalf("unexpected provider %+v", provider)
	}
}

func TestHarvestTwicePaysOnce(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)
	if _, err := f.engine.Swap(f.ctx, swapRequest(tradeIn)); err != nil {
		t.Fatalf("swap: %v", err)
	}

	owed, err := f.engine.Entitlement(f.ctx, assetB, lp)
	if err != nil {
		t.Fatalf("entitlement: %v", err)
	}
	first, err := f.engine.HarvestYield(f.ctx, lp, assetB)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if first != owed || first == 0 {
		t.Fatalf("expected first harvest %d, got %d", owed, first)
	}
	second, err := f.engine.HarvestYield(f.ctx, lp, assetB)
	if err != nil {
		t.Fatalf("second harvest: %v", err)
	}
	if second != 0 {
		t.Fatalf("expected second harvest 0, got %d", second)
	}
	if got := f.ledger.Balance(lp, assetB); got != first {
		t.Fatalf("lp received %d, want %d", got, first)
	}
}

func TestDepositSettlesAccruedYield(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)
	if _, err := f.engine.Swap(f.ctx, swapRequest(tradeIn)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	owed, err := f.engine.Entitlement(f.ctx, assetB, lp)
	if err != nil {
		t.Fatalf("entitlement: %v", err)
	}

	f.deposit(assetB, 1_000)
	provider, err := f.engine.Provider(f.ctx, assetB, lp)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	if provider.PendingClaim != owed {
		t.Fatalf("expected pending claim %d, got %d", owed, provider.PendingClaim)
	}
	after, err := f.engine.Entitlement(f.ctx, assetB, lp)
	if err != nil {
		t.Fatalf("entitlement: %v", err)
	}
	if after != owed {
		t.Fatalf("deposit changed entitlement from %d to %d", owed, after)
	}
}

func TestAdminOperations(t *testing.T) {
	f := newFixture(t)
	stranger := common.HexToAddress("0x99")

	if _, err := f.engine.InitTreasury(f.ctx, admin, 1, false); !errors.Is(err, model.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if _, err := f.engine.CreatePool(f.ctx, stranger, CreatePoolRequest{Asset: common.HexToAddress("0xcc")}); !errors.Is(err, model.ErrInvalidAdmin) {
		t.Fatalf("expected ErrInvalidAdmin, got %v", err)
	}
	if _, err := f.engine.CreatePool(f.ctx, admin, CreatePoolRequest{Asset: assetA}); !errors.Is(err, model.ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
	if _, err := f.engine.CreatePool(f.ctx, admin, CreatePoolRequest{Asset: common.HexToAddress("0xcc"), BaseFee: model.FeeScale + 1}); !errors.Is(err, model.ErrInvalidBaseFee) {
		t.Fatalf("expected ErrInvalidBaseFee, got %v", err)
	}
	if _, err := f.engine.SetPoolSettings(f.ctx, admin, common.HexToAddress("0xcc"), true, 1); !errors.Is(err, model.ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}

	if _, err := f.engine.UpdateSettings(f.ctx, admin, stranger, 3, false); err != nil {
		t.Fatalf("rotate admin: %v", err)
	}
	if _, err := f.engine.SetPoolSettings(f.ctx, admin, assetA, false, 1); !errors.Is(err, model.ErrInvalidAdmin) {
		t.Fatalf("old admin still accepted: %v", err)
	}
	settings, err := f.engine.Settings(f.ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.Admin != stranger || settings.IncomeDistribution != 3 {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestInitTreasuryRequiresAdministrator(t *testing.T) {
	eng, err := New(Config{Store: storage.NewMemory(), Custodian: custody.NewLedger(), Administrator: admin})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()
	if _, err := eng.InitTreasury(ctx, trader, 1, false); !errors.Is(err, model.ErrInvalidAdmin) {
		t.Fatalf("expected ErrInvalidAdmin, got %v", err)
	}
	if _, err := eng.Settings(ctx); !errors.Is(err, model.ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}
	if _, err := eng.HarvestYield(ctx, trader, assetA); !errors.Is(err, model.ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount before init, got %v", err)
	}
}

func TestCollectProtocolIncome(t *testing.T) {
	f := newFixture(t)
	f.deposit(assetA, depth)
	f.deposit(assetB, depth)
	f.fund(trader, assetA, tradeIn)
	if _, err := f.engine.Swap(f.ctx, swapRequest(tradeIn)); err != nil {
		t.Fatalf("swap: %v", err)
	}

	if _, err := f.engine.CollectProtocolIncome(f.ctx, trader, assetB); !errors.Is(err, model.ErrInvalidAdmin) {
		t.Fatalf("expected ErrInvalidAdmin, got %v", err)
	}
	paid, err := f.engine.CollectProtocolIncome(f.ctx, admin, assetB)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if paid != 100_000 {
		t.Fatalf("expected 100000 collected, got %d", paid)
	}
	if got := f.ledger.Balance(admin, assetB); got != paid {
		t.Fatalf("admin received %d", got)
	}
	if pool := f.pool(assetB); pool.ProtocolIncome != 0 {
		t.Fatalf("expected protocol income reset, got %d", pool.ProtocolIncome)
	}
	again, err := f.engine.CollectProtocolIncome(f.ctx, admin, assetB)
	if err != nil || again != 0 {
		t.Fatalf("expected nothing left to collect, got %d (%v)", again, err)
	}
}

func TestCustodyFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	before := f.snapshot()

	// lp holds no asset a, so the pull fails.
	if _, err := f.engine.IncreaseLiquidity(f.ctx, lp, assetA, 10); !errors.Is(err, custody.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	f.requireUnchanged(before)
}
