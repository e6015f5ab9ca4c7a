package sol

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChain answers the RPC reads of the engine from memory.
type fakeChain struct {
	*fakeWatcherClient

	mu       sync.Mutex
	curves   map[solana.PublicKey][]byte
	holdings map[solana.PublicKey]uint64
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		fakeWatcherClient: &fakeWatcherClient{hash: solana.Hash{5}, accounts: []*rpc.Account{nil, nil}},
		curves:            make(map[solana.PublicKey][]byte),
		holdings:          make(map[solana.PublicKey]uint64),
	}
}

func curveAccountData(t *testing.T, c *pumpfun.CurveState) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	require.NoError(t, encoder.WriteBytes([]byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}, false))
	for _, v := range []uint64{c.VirtualTokenReserves, c.VirtualSolReserves, c.RealTokenReserves, c.RealSolReserves, c.TokenTotalSupply} {
		require.NoError(t, encoder.WriteUint64(v, bin.LE))
	}
	require.NoError(t, encoder.WriteBool(c.Complete))
	return buf.Bytes()
}

func tokenAccountForOwner(mint, owner solana.PublicKey, amount uint64) token.Account {
	return token.Account{Mint: mint, Owner: owner, Amount: amount}
}

func (c *fakeChain) listCurve(t *testing.T, mint solana.PublicKey, state *pumpfun.CurveState) {
	c.mu.Lock()
	c.curves[pumpfun.FindBondingCurve(mint)] = curveAccountData(t, state)
	c.mu.Unlock()
}

func (c *fakeChain) hold(mint solana.PublicKey, amount uint64) {
	c.mu.Lock()
	c.holdings[mint] = amount
	c.mu.Unlock()
}

func (c *fakeChain) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.curves[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: &rpc.Account{Owner: pumpfun.ProgramID, Data: rpc.DataBytesOrJSONFromBytes(data)}}, nil
}

func (c *fakeChain) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: 0}, nil
}

func (c *fakeChain) GetTokenAccountsByOwner(_ context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, _ *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &rpc.GetTokenAccountsResult{}
	for mint, amount := range c.holdings {
		if conf.Mint != nil && !conf.Mint.Equals(mint) {
			continue
		}
		buf := new(bytes.Buffer)
		account := tokenAccountForOwner(mint, owner, amount)
		if err := account.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
			return nil, err
		}
		result.Value = append(result.Value, &rpc.TokenAccount{
			Pubkey:  solana.NewWallet().PublicKey(),
			Account: rpc.Account{Owner: solana.TokenProgramID, Data: rpc.DataBytesOrJSONFromBytes(buf.Bytes())},
		})
	}
	return result, nil
}

func (c *fakeChain) GetTokenLargestAccounts(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenLargestAccountsResult, error) {
	return &rpc.GetTokenLargestAccountsResult{}, nil
}

func (c *fakeChain) GetTokenSupply(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	return nil, errors.New("not supported")
}

func (c *fakeChain) GetTransaction(context.Context, solana.Signature, *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	return nil, rpc.ErrNotFound
}

func testConfig() *types.Config {
	return &types.Config{
		PrivateKey:       solana.NewWallet().PrivateKey,
		BuyAmount:        1_000_000_000,
		SlippageBps:      1_500,
		SellSlippageBps:  10_000,
		ComputeUnitPrice: 1_000,
		ComputeUnitLimit: 100_000,
		Relay:            types.RelayBundle,
		Encoding:         "raw",
		SellMaxAttempts:  3,
	}
}

func newTestEngine(t *testing.T, chain *fakeChain, sub *fakeSubmitter) *Engine {
	t.Helper()
	e, err := NewEngineWithClient(testConfig(), chain, sub, utils.NopLogger())
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewSubmitter(t *testing.T) {
	sub, err := NewSubmitter(&types.Config{}, utils.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, types.RelayBundle, sub.Kind())

	_, err = NewSubmitter(&types.Config{Relay: types.RelayPriority}, utils.NopLogger())
	assert.Error(t, err)

	sub, err = NewSubmitter(&types.Config{Relay: types.RelayPriority, BloxrouteAuth: "auth"}, utils.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, types.RelayPriority, sub.Kind())

	_, err = NewSubmitter(&types.Config{Relay: "carrier-pigeon"}, utils.NopLogger())
	assert.Error(t, err)
}

func TestNewSubmittersNeedsBloxrouteAuth(t *testing.T) {
	relays := NewSubmitters(&types.Config{}, utils.NopLogger())
	assert.Len(t, relays, 1)
	assert.Equal(t, types.RelayBundle, relays[types.RelayBundle].Kind())

	relays = NewSubmitters(&types.Config{BloxrouteAuth: "auth"}, utils.NopLogger())
	require.Contains(t, relays, types.RelayPriority)
	assert.Equal(t, types.RelayPriority, relays[types.RelayPriority].Kind())
}

func TestNewEngineRequiresKey(t *testing.T) {
	_, err := NewEngineWithClient(&types.Config{}, newFakeChain(), &fakeSubmitter{}, utils.NopLogger())
	assert.Error(t, err)
}

func TestEngineBuyThenSellAll(t *testing.T) {
	chain := newFakeChain()
	sub := &fakeSubmitter{}
	e := newTestEngine(t, chain, sub)

	mint := solana.NewWallet().PublicKey()
	chain.listCurve(t, mint, testCurve())

	result, err := e.Buy(context.Background(), mint, 0)
	require.NoError(t, err)
	assert.Equal(t, types.StateSuccess, result.State)
	assert.Equal(t, uint64(1_500), result.Intent.SlippageBps)
	assert.Equal(t, types.RelayBundle, result.Intent.Relay)

	p, ok := e.Positions().Get(mint)
	require.True(t, ok)
	assert.Equal(t, uint64(34612903225806), p.Tokens)
	assert.Equal(t, uint64(1_000_000_000), p.Cost)

	chain.hold(mint, p.Tokens)
	pnl, err := e.PnL(context.Background())
	require.NoError(t, err)
	require.Len(t, pnl, 1)
	assert.Equal(t, "-0.0625", pnl[0].PnL.String())

	result, err = e.Sell(context.Background(), mint, 0)
	require.NoError(t, err)
	assert.Equal(t, types.StateSuccess, result.State)
	assert.Equal(t, uint64(10_000), result.Intent.SlippageBps)
	assert.Equal(t, p.Tokens, result.Intent.Amount)
	assert.Equal(t, 2, sub.submits)

	_, ok = e.Positions().Get(mint)
	assert.False(t, ok)
}

func TestEngineSellWithoutHoldings(t *testing.T) {
	e := newTestEngine(t, newFakeChain(), &fakeSubmitter{})

	_, err := e.Sell(context.Background(), solana.NewWallet().PublicKey(), 0)
	assert.ErrorIs(t, err, types.ErrNoPosition)
}

func TestEngineBuyUnknownMintFails(t *testing.T) {
	sub := &fakeSubmitter{}
	e := newTestEngine(t, newFakeChain(), sub)

	result, err := e.Buy(context.Background(), solana.NewWallet().PublicKey(), 1_000)
	assert.ErrorIs(t, err, types.ErrAccountNotFound)
	assert.Equal(t, types.StateFailed, result.State)
	assert.Zero(t, sub.submits)
	assert.Empty(t, e.Positions().All())
}

func TestEngineCreatorSellExitsPosition(t *testing.T) {
	chain := newFakeChain()
	sub := &fakeSubmitter{}
	e := newTestEngine(t, chain, sub)

	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	chain.listCurve(t, mint, testCurve())
	e.Positions().Open(Position{Mint: mint, Creator: creator, Tokens: 1_000_000, Cost: 1_000})

	// a sell by someone else is ignored
	e.onCreatorSell(solana.NewWallet().PublicKey(), mint)
	e.onCreatorSell(creator, mint)
	e.subprocesses.Wait()

	assert.Equal(t, 1, sub.submits)
	_, ok := e.Positions().Get(mint)
	assert.False(t, ok)
}
