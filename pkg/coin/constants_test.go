package coin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDsUniqueInOrder(t *testing.T) {
	ids := IDs()
	assert.Len(t, Supported(), 10)
	assert.Equal(t, []ID{Bitcoin, Ethereum, Litecoin, Tether, Tron, Ripple, Solana, Dogecoin, Cardano}, ids)
}

func TestLookup(t *testing.T) {
	id, err := Lookup("USDT (TRC20)")
	require.NoError(t, err)
	assert.Equal(t, Tether, id)

	id, err = Lookup("USDT (ERC-20)")
	require.NoError(t, err)
	assert.Equal(t, Tether, id)

	_, err = Lookup("XMR")
	assert.Error(t, err)
}

func TestAliasIsNotPublished(t *testing.T) {
	assert.True(t, BTC.IsValid())
	assert.False(t, USDTERC20.IsValid())
}
