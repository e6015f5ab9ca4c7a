package utils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKeyBase58(t *testing.T) {
	wallet := solana.NewWallet()

	key, err := ParsePrivateKey(" " + wallet.PrivateKey.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), key.PublicKey())
}

func TestParsePrivateKeyJSON(t *testing.T) {
	wallet := solana.NewWallet()
	ints := make([]string, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		ints[i] = fmt.Sprint(b)
	}

	key, err := ParsePrivateKey("[" + strings.Join(ints, ",") + "]")
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), key.PublicKey())
}

func TestParsePrivateKeyInvalid(t *testing.T) {
	for _, s := range []string{"", "   ", "not-base58-0OIl", "[1,2,3]", "[256]", "[1,2"} {
		_, err := ParsePrivateKey(s)
		assert.Error(t, err, s)
	}
}
