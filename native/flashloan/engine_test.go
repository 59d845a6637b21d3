package flashloan

import (
	"errors"
	"math/big"
	"testing"

	"flashvault/core/types"
	"flashvault/crypto"
	"flashvault/native/assetadapter"
	"flashvault/native/pool"
	"flashvault/storage"
)

func addr(prefix crypto.AddressPrefix, b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(prefix, raw)
}

func assetAddr(b byte) crypto.Address   { return addr(crypto.AssetPrefix, b) }
func accountAddr(b byte) crypto.Address { return addr(crypto.AccountPrefix, b) }

// seedPool deposits amount from a funded depositor so the pool has
// total_liquidity == amount and the holder custodies it.
func seedPool(t *testing.T, state *storage.MemoryStore, holder, asset crypto.Address, amount *big.Int) {
	t.Helper()
	depositor := accountAddr(0xEE)
	fundReceiver(t, state, depositor, asset, amount)

	poolEngine := pool.NewEngine(holder)
	poolEngine.SetState(state)
	if _, err := poolEngine.Deposit(depositor, asset, amount); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
}

func fundReceiver(t *testing.T, state *storage.MemoryStore, account, asset crypto.Address, amount *big.Int) {
	t.Helper()
	acc, err := state.GetAccount(account)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acc == nil {
		acc = &types.Account{}
	}
	acc.EnsureDefaults()
	acc.SetBalance(asset.String(), amount)
	if err := state.PutAccount(account, acc); err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

// singleReceiver is a flash-loan receiver that repays amount+fee (minus an
// optional shortfall) out of its own pre-funded balance.
type singleReceiver struct {
	address crypto.Address
	state   *storage.MemoryStore
	holder  crypto.Address
	shortBy *big.Int
}

func (r *singleReceiver) Address() crypto.Address { return r.address }

func (r *singleReceiver) OnFlashLoan(asset crypto.Address, amount, fee *big.Int, params []byte) error {
	repay := new(big.Int).Add(amount, fee)
	if r.shortBy != nil {
		repay = new(big.Int).Sub(repay, r.shortBy)
	}
	adapter := assetadapter.New(r.state, asset)
	return adapter.TransferTo(r.address, r.holder, repay)
}

func TestFlashLoanHappyPathCreditsFeesAndEmitsEvent(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := storage.NewMemoryStore()
	seedPool(t, state, holder, asset, big.NewInt(200_000))

	e := NewEngine(holder)
	e.SetState(state)
	e.SetManagementFeePercentage(100)

	receiverAddr := accountAddr(0x30)
	receiver := &singleReceiver{address: receiverAddr, state: state, holder: holder}
	fundReceiver(t, state, receiverAddr, asset, big.NewInt(10))

	borrower := accountAddr(0x40)
	if err := e.FlashLoan(borrower, asset, big.NewInt(50_000), receiver, nil); err != nil {
		t.Fatalf("flash loan: %v", err)
	}

	p, _ := state.GetPool(asset)
	// lp_fee = 50000*1/10000 = 5; mgmt_fee = 50000*1*100/100000000 = 0
	if p.TotalLiquidity.Cmp(big.NewInt(200_005)) != 0 {
		t.Fatalf("expected total liquidity 200005, got %s", p.TotalLiquidity)
	}
	if p.CollectedManagementFee.Sign() != 0 {
		t.Fatalf("expected zero mgmt fee for a small loan, got %s", p.CollectedManagementFee)
	}
}

func TestFlashLoanLargeAmountSplitsManagementFee(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := storage.NewMemoryStore()
	seedPool(t, state, holder, asset, big.NewInt(2_000_000_000))

	e := NewEngine(holder)
	e.SetState(state)
	e.SetManagementFeePercentage(100)

	receiverAddr := accountAddr(0x30)
	receiver := &singleReceiver{address: receiverAddr, state: state, holder: holder}
	fundReceiver(t, state, receiverAddr, asset, big.NewInt(200_000))

	borrower := accountAddr(0x40)
	if err := e.FlashLoan(borrower, asset, big.NewInt(1_000_000_000), receiver, nil); err != nil {
		t.Fatalf("flash loan: %v", err)
	}

	p, _ := state.GetPool(asset)
	// lp_fee = 1e9 * 1 / 10000 = 100000; mgmt_fee = 1e9*1*100/1e8 = 1000
	if p.CollectedManagementFee.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected mgmt fee 1000, got %s", p.CollectedManagementFee)
	}
}

func TestFlashLoanNotRepaidReverts(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := storage.NewMemoryStore()
	seedPool(t, state, holder, asset, big.NewInt(200_000))

	e := NewEngine(holder)
	e.SetState(state)

	receiverAddr := accountAddr(0x30)
	receiver := &singleReceiver{address: receiverAddr, state: state, holder: holder, shortBy: big.NewInt(1)}
	fundReceiver(t, state, receiverAddr, asset, big.NewInt(10))

	preLiquidity, _ := state.GetPool(asset)
	preTotal := new(big.Int).Set(preLiquidity.TotalLiquidity)

	borrower := accountAddr(0x40)
	if err := e.FlashLoan(borrower, asset, big.NewInt(50_000), receiver, nil); !errors.Is(err, ErrNotRepaid) {
		t.Fatalf("expected ErrNotRepaid, got %v", err)
	}

	postLiquidity, _ := state.GetPool(asset)
	if postLiquidity.TotalLiquidity.Cmp(preTotal) != 0 {
		t.Fatalf("expected total liquidity unchanged on revert, got %s want %s", postLiquidity.TotalLiquidity, preTotal)
	}
}

func TestFlashLoanExceedingLiquidityFails(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := storage.NewMemoryStore()
	seedPool(t, state, holder, asset, big.NewInt(1000))

	e := NewEngine(holder)
	e.SetState(state)

	receiverAddr := accountAddr(0x30)
	receiver := &singleReceiver{address: receiverAddr, state: state, holder: holder}

	borrower := accountAddr(0x40)
	if err := e.FlashLoan(borrower, asset, big.NewInt(1001), receiver, nil); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	// Exactly total_liquidity is allowed (boundary behavior, spec.md §8).
	fundReceiver(t, state, receiverAddr, asset, big.NewInt(1))
	if err := e.FlashLoan(borrower, asset, big.NewInt(1000), receiver, nil); err != nil {
		t.Fatalf("expected loan of exactly total liquidity to succeed, got %v", err)
	}
}

// reentrantReceiver attempts to call back into a mutating entry point while
// the outer flash loan is still in flight (spec.md §8's boundary behavior
// and scenario S5).
type reentrantReceiver struct {
	address   crypto.Address
	pool      *pool.Engine
	depositor crypto.Address
	asset     crypto.Address
}

func (r *reentrantReceiver) Address() crypto.Address { return r.address }

func (r *reentrantReceiver) OnFlashLoan(asset crypto.Address, amount, fee *big.Int, params []byte) error {
	_, err := r.pool.Deposit(r.depositor, r.asset, big.NewInt(1000))
	return err
}

func TestFlashLoanReentrancyIntoDepositIsRejected(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := storage.NewMemoryStore()
	seedPool(t, state, holder, asset, big.NewInt(200_000))

	poolEngine := pool.NewEngine(holder)
	poolEngine.SetState(state)

	e := NewEngine(holder)
	e.SetState(state)
	// Share the flash-loan engine's guard with the pool engine the way the
	// facade does, so a reentrant deposit call observes Entered.
	poolEngine.SetGuard(e.guard)

	receiverAddr := accountAddr(0x30)
	depositor := accountAddr(0x50)
	fundReceiver(t, state, receiverAddr, asset, big.NewInt(10))
	fundReceiver(t, state, depositor, asset, big.NewInt(10_000))

	receiver := &reentrantReceiver{address: receiverAddr, pool: poolEngine, depositor: depositor, asset: asset}

	borrower := accountAddr(0x40)
	if err := e.FlashLoan(borrower, asset, big.NewInt(50_000), receiver, nil); !errors.Is(err, ErrReentrant) {
		t.Fatalf("expected ErrReentrant from the reentrant deposit's failure, got %v", err)
	}

	pos, _ := state.GetPosition(asset, depositor)
	if pos != nil && pos.Shares != nil && pos.Shares.Sign() != 0 {
		t.Fatalf("expected reentrant deposit to have no effect, got shares %s", pos.Shares)
	}
}

type multiReceiver struct {
	address    crypto.Address
	state      *storage.MemoryStore
	holder     crypto.Address
	shortAsset crypto.Address
	shortBy    *big.Int
}

func (r *multiReceiver) Address() crypto.Address { return r.address }

func (r *multiReceiver) OnMultiFlashLoan(assets []crypto.Address, amounts, fees []*big.Int, params []byte) error {
	for i, asset := range assets {
		repay := new(big.Int).Add(amounts[i], fees[i])
		if r.shortBy != nil && r.shortAsset.Equal(asset) {
			repay = new(big.Int).Sub(repay, r.shortBy)
		}
		adapter := assetadapter.New(r.state, asset)
		if err := adapter.TransferTo(r.address, r.holder, repay); err != nil {
			return err
		}
	}
	return nil
}

func TestMultiFlashLoanAllOrNothing(t *testing.T) {
	holder := accountAddr(0x01)
	assetX := assetAddr(0x10)
	assetY := assetAddr(0x11)
	state := storage.NewMemoryStore()
	seedPool(t, state, holder, assetX, big.NewInt(1_000_000))
	seedPool(t, state, holder, assetY, big.NewInt(2_000_000))

	e := NewEngine(holder)
	e.SetState(state)

	receiverAddr := accountAddr(0x30)
	fundReceiver(t, state, receiverAddr, assetX, big.NewInt(10))
	fundReceiver(t, state, receiverAddr, assetY, big.NewInt(10))

	receiver := &multiReceiver{address: receiverAddr, state: state, holder: holder, shortAsset: assetY, shortBy: big.NewInt(1)}

	preX, _ := state.GetPool(assetX)
	preY, _ := state.GetPool(assetY)
	preXLiq := new(big.Int).Set(preX.TotalLiquidity)
	preYLiq := new(big.Int).Set(preY.TotalLiquidity)

	borrower := accountAddr(0x40)
	err := e.MultiFlashLoan(borrower, []crypto.Address{assetX, assetY}, []*big.Int{big.NewInt(1000), big.NewInt(2000)}, receiver, nil)
	if !errors.Is(err, ErrNotRepaid) {
		t.Fatalf("expected ErrNotRepaid when one asset underpays, got %v", err)
	}

	postX, _ := state.GetPool(assetX)
	postY, _ := state.GetPool(assetY)
	if postX.TotalLiquidity.Cmp(preXLiq) != 0 {
		t.Fatalf("expected asset X liquidity unchanged on full revert, got %s want %s", postX.TotalLiquidity, preXLiq)
	}
	if postY.TotalLiquidity.Cmp(preYLiq) != 0 {
		t.Fatalf("expected asset Y liquidity unchanged on full revert, got %s want %s", postY.TotalLiquidity, preYLiq)
	}
}

func TestMultiFlashLoanEmptyListFails(t *testing.T) {
	holder := accountAddr(0x01)
	state := storage.NewMemoryStore()
	e := NewEngine(holder)
	e.SetState(state)

	receiver := &multiReceiver{address: accountAddr(0x30), state: state, holder: holder}
	if err := e.MultiFlashLoan(accountAddr(0x40), nil, nil, receiver, nil); !errors.Is(err, ErrEmptyAssetList) {
		t.Fatalf("expected ErrEmptyAssetList, got %v", err)
	}
}

func TestMultiFlashLoanLengthMismatchFails(t *testing.T) {
	holder := accountAddr(0x01)
	asset := assetAddr(0x10)
	state := storage.NewMemoryStore()
	e := NewEngine(holder)
	e.SetState(state)

	receiver := &multiReceiver{address: accountAddr(0x30), state: state, holder: holder}
	assets := []crypto.Address{asset}
	amounts := []*big.Int{big.NewInt(1), big.NewInt(2)}
	if err := e.MultiFlashLoan(accountAddr(0x40), assets, amounts, receiver, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
