package sol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/sol/pumpfun"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProviderClient struct {
	devATA  solana.PublicKey
	largest string
	supply  string
	balance uint64
	calls   atomic.Int32
}

func (c *fakeProviderClient) GetAccountInfoWithOpts(context.Context, solana.PublicKey, *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	c.calls.Add(1)
	return nil, errors.New("not found")
}

func (c *fakeProviderClient) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	c.calls.Add(1)
	return &rpc.GetBalanceResult{Value: c.balance}, nil
}

func (c *fakeProviderClient) GetTokenAccountsByOwner(context.Context, solana.PublicKey, *rpc.GetTokenAccountsConfig, *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	c.calls.Add(1)
	if c.devATA.IsZero() {
		return &rpc.GetTokenAccountsResult{}, nil
	}
	return &rpc.GetTokenAccountsResult{Value: []*rpc.TokenAccount{{Pubkey: c.devATA}}}, nil
}

func (c *fakeProviderClient) GetTokenLargestAccounts(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenLargestAccountsResult, error) {
	c.calls.Add(1)
	var out rpc.GetTokenLargestAccountsResult
	if err := json.Unmarshal([]byte(c.largest), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *fakeProviderClient) GetTokenSupply(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	c.calls.Add(1)
	var out rpc.GetTokenSupplyResult
	if err := json.Unmarshal([]byte(c.supply), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func newTestProviders(t *testing.T, client ProviderClient, heliusURL string) *Providers {
	t.Helper()
	cache, err := utils.NewCache()
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return NewProviders(client, cache, ProviderConfig{HeliusURL: heliusURL, HeliusAPIKey: "test-key"}, utils.NopLogger())
}

func largestAccounts(accounts map[solana.PublicKey]uint64, order []solana.PublicKey) string {
	value := make([]map[string]interface{}, 0, len(order))
	for _, address := range order {
		value = append(value, map[string]interface{}{
			"address":        address.String(),
			"amount":         fmt.Sprint(accounts[address]),
			"decimals":       6,
			"uiAmountString": "",
		})
	}
	data, _ := json.Marshal(map[string]interface{}{
		"context": map[string]interface{}{"slot": 1},
		"value":   value,
	})
	return string(data)
}

func TestHolderPct(t *testing.T) {
	assert.Equal(t, uint64(79), holderPct(793_100_000_000_000, 1_000_000_000_000_000))
	assert.Equal(t, uint64(3), holderPct(34_612_903_225_806, 1_000_000_000_000_000))
	assert.Equal(t, uint64(100), holderPct(1_000, 1_000))
	assert.Zero(t, holderPct(9, 1_000))
	assert.Zero(t, holderPct(1, 0))
	// amount*10000 overflows uint64
	assert.Equal(t, uint64(50), holderPct(9_000_000_000_000_000_000, 18_000_000_000_000_000_000))
}

func TestFetchHoldersLabelsAccounts(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	curveATA := solana.NewWallet().PublicKey()
	devATA := solana.NewWallet().PublicKey()

	amounts := map[solana.PublicKey]uint64{
		curveATA: 900_000_000_000_000,
		devATA:   50_000_000_000_000,
	}
	order := []solana.PublicKey{curveATA, devATA}
	for i := 0; i < 12; i++ {
		holder := solana.NewWallet().PublicKey()
		amounts[holder] = 1_000_000_000_000
		order = append(order, holder)
	}

	client := &fakeProviderClient{
		devATA:  devATA,
		largest: largestAccounts(amounts, order),
		supply:  `{"context":{"slot":1},"value":{"amount":"1000000000000000","decimals":6,"uiAmountString":"1000000000"}}`,
	}
	p := newTestProviders(t, client, "")

	holders, err := p.FetchHolders(context.Background(), mint, curveATA, creator)
	require.NoError(t, err)
	require.Len(t, holders, MaxHolders)
	assert.Equal(t, types.HolderLabelBondingCurve, holders[0].Label)
	assert.Equal(t, uint64(90), holders[0].Pct)
	assert.Equal(t, types.HolderLabelCreator, holders[1].Label)
	assert.Equal(t, uint64(5), holders[1].Pct)
	assert.Equal(t, types.HolderLabelHolder, holders[2].Label)
	assert.Zero(t, holders[2].Pct)

	report := &types.ContextReport{Holders: holders}
	assert.Equal(t, uint64(90), report.HolderPct(types.HolderLabelBondingCurve))

	// second lookup is served from the cache
	calls := client.calls.Load()
	_, err = p.FetchHolders(context.Background(), mint, curveATA, creator)
	require.NoError(t, err)
	assert.Equal(t, calls, client.calls.Load())
}

func TestFetchHoldersWithoutCreatorAccount(t *testing.T) {
	curveATA := solana.NewWallet().PublicKey()
	client := &fakeProviderClient{
		largest: largestAccounts(map[solana.PublicKey]uint64{curveATA: 1_000}, []solana.PublicKey{curveATA}),
		supply:  `{"context":{"slot":1},"value":{"amount":"1000","decimals":6,"uiAmountString":"0.001"}}`,
	}
	p := newTestProviders(t, client, "")

	holders, err := p.FetchHolders(context.Background(), solana.NewWallet().PublicKey(), curveATA, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, types.HolderLabelBondingCurve, holders[0].Label)
	assert.Equal(t, uint64(100), holders[0].Pct)
}

func TestFetchBalance(t *testing.T) {
	client := &fakeProviderClient{balance: 1_500_000_000}
	p := newTestProviders(t, client, "")

	balance, err := p.FetchBalance(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), balance)
}

func TestFetchMetadataFromCreateData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"Dog Coin","symbol":"DOG","description":"woof","twitter":"https://x.com/dog"}`))
	}))
	defer server.Close()

	args, err := borsh.Serialize(struct {
		Name   string
		Symbol string
		Uri    string
	}{Name: "Dog", Symbol: "D", Uri: server.URL + "/meta.json"})
	require.NoError(t, err)

	client := &fakeProviderClient{}
	p := newTestProviders(t, client, "")
	intent := &types.TradeIntent{
		Mint:       solana.NewWallet().PublicKey(),
		CreateData: append(pumpfun.Instruction_Create.Bytes(), args...),
	}

	metadata, err := p.FetchMetadata(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, "Dog Coin", metadata.Name)
	assert.Equal(t, "DOG", metadata.Symbol)
	assert.Equal(t, "woof", metadata.Description)
	assert.Equal(t, "https://x.com/dog", metadata.Twitter)
	assert.Equal(t, server.URL+"/meta.json", metadata.URI)
	assert.Zero(t, client.calls.Load())
}

func TestFetchMetadataFallsBackToCreateArgs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"description":"no names here"}`))
	}))
	defer server.Close()

	args, err := borsh.Serialize(struct {
		Name   string
		Symbol string
		Uri    string
	}{Name: "Cat", Symbol: "CAT", Uri: server.URL})
	require.NoError(t, err)

	p := newTestProviders(t, &fakeProviderClient{}, "")
	metadata, err := p.FetchMetadata(context.Background(), &types.TradeIntent{
		Mint:       solana.NewWallet().PublicKey(),
		CreateData: append(pumpfun.Instruction_Create.Bytes(), args...),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cat", metadata.Name)
	assert.Equal(t, "CAT", metadata.Symbol)
}

func TestFetchMetadataUriError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	args, err := borsh.Serialize(struct {
		Name   string
		Symbol string
		Uri    string
	}{Name: "Cat", Symbol: "CAT", Uri: server.URL + "/x"})
	require.NoError(t, err)

	p := newTestProviders(t, &fakeProviderClient{}, "")
	_, err = p.FetchMetadata(context.Background(), &types.TradeIntent{
		Mint:       solana.NewWallet().PublicKey(),
		CreateData: append(pumpfun.Instruction_Create.Bytes(), args...),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestFetchMetadataWithoutAccount(t *testing.T) {
	p := newTestProviders(t, &fakeProviderClient{}, "")
	_, err := p.FetchMetadata(context.Background(), &types.TradeIntent{Mint: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, types.ErrAccountNotFound)
}

func TestFetchWalletAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	address := solana.NewWallet().PublicKey()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v0/addresses/"+address.String()+"/transactions", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		_ = json.NewEncoder(w).Encode([]heliusTransaction{
			{Signature: "a", Timestamp: now.Add(-time.Hour).Unix()},
			{Signature: "b", Timestamp: now.Add(-50 * time.Hour).Unix()},
		})
	}))
	defer server.Close()

	p := newTestProviders(t, &fakeProviderClient{}, server.URL)
	p.now = func() time.Time { return now }

	age, err := p.FetchWalletAge(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, 3, age)

	age, err = p.FetchWalletAge(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, 3, age)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchWalletAgeWithoutHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	p := newTestProviders(t, &fakeProviderClient{}, server.URL)
	age, err := p.FetchWalletAge(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Zero(t, age)
}

func TestWalletAgeDays(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, walletAgeDays(now, now.Unix()))
	assert.Equal(t, 1, walletAgeDays(now, now.Add(-time.Minute).Unix()))
	assert.Equal(t, 1, walletAgeDays(now, now.Add(-24*time.Hour).Unix()))
	assert.Equal(t, 2, walletAgeDays(now, now.Add(-25*time.Hour).Unix()))
	// clock skew counts the same as age
	assert.Equal(t, 1, walletAgeDays(now, now.Add(time.Hour).Unix()))
}
