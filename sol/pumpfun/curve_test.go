package pumpfun

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/meme-bots/pump-trader/types"
	"github.com/meme-bots/pump-trader/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeCurve(c *CurveState, withFlag bool) []byte {
	data := make([]byte, 8, 49)
	copy(data, []byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60})
	for _, v := range []uint64{c.VirtualTokenReserves, c.VirtualSolReserves, c.RealTokenReserves, c.RealSolReserves, c.TokenTotalSupply} {
		data = binary.LittleEndian.AppendUint64(data, v)
	}
	if withFlag {
		if c.Complete {
			data = append(data, 1)
		} else {
			data = append(data, 0)
		}
	}
	return data
}

func TestDecodeCurveState(t *testing.T) {
	want := freshCurve()

	got, err := DecodeCurveState(encodeCurve(want, false))
	require.NoError(t, err)
	assert.Equal(t, want.VirtualTokenReserves, got.VirtualTokenReserves)
	assert.Equal(t, want.VirtualSolReserves, got.VirtualSolReserves)
	assert.Equal(t, want.RealTokenReserves, got.RealTokenReserves)
	assert.Equal(t, want.RealSolReserves, got.RealSolReserves)
	assert.Equal(t, want.TokenTotalSupply, got.TokenTotalSupply)
	assert.False(t, got.Complete)
	assert.InDelta(t, 2.7958993e-08, got.VirtualTokenPrice, 1e-15)
}

func TestDecodeCurveStateCompleteFlag(t *testing.T) {
	want := freshCurve()
	want.Complete = true

	got, err := DecodeCurveState(encodeCurve(want, true))
	require.NoError(t, err)
	assert.True(t, got.Complete)
}

func TestDecodeCurveStateShortBuffer(t *testing.T) {
	data := encodeCurve(freshCurve(), false)

	_, err := DecodeCurveState(data[:47])
	assert.ErrorIs(t, err, types.ErrLayoutMismatch)

	_, err = DecodeCurveState(nil)
	assert.ErrorIs(t, err, types.ErrLayoutMismatch)
}

type fakeAccounts struct {
	calls int
	data  map[solana.PublicKey][]byte
}

func (f *fakeAccounts) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.calls++
	data, ok := f.data[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}, nil
}

func newTestDecoder(t *testing.T, fetcher AccountFetcher) *CurveDecoder {
	cache, err := utils.NewCache()
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return NewCurveDecoder(fetcher, cache, utils.NopLogger())
}

func TestCurveDecoderCachesSnapshots(t *testing.T) {
	curve := solana.NewWallet().PublicKey()
	fetcher := &fakeAccounts{data: map[solana.PublicKey][]byte{curve: encodeCurve(freshCurve(), true)}}
	decoder := newTestDecoder(t, fetcher)
	ctx := context.Background()

	first, err := decoder.Decode(ctx, curve)
	require.NoError(t, err)
	second, err := decoder.Decode(ctx, curve)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, first, second)

	decoder.Invalidate(ctx, curve)
	_, err = decoder.Decode(ctx, curve)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestCurveDecoderMissingAccount(t *testing.T) {
	decoder := newTestDecoder(t, &fakeAccounts{})

	_, err := decoder.Decode(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, types.ErrAccountNotFound)
}

func TestCurveDecoderLayoutMismatchIsNotCached(t *testing.T) {
	curve := solana.NewWallet().PublicKey()
	fetcher := &fakeAccounts{data: map[solana.PublicKey][]byte{curve: make([]byte, 20)}}
	decoder := newTestDecoder(t, fetcher)

	for i := 0; i < 2; i++ {
		_, err := decoder.Decode(context.Background(), curve)
		assert.ErrorIs(t, err, types.ErrLayoutMismatch)
	}
	assert.Equal(t, 2, fetcher.calls)
}
