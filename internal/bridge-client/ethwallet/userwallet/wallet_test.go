package userwallet

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestFromHex(t *testing.T) {
	w, err := FromHex("0x" + testKey)
	require.NoError(t, err)
	require.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", w.Address().Hex())

	_, err = FromHex("abcd")
	require.Error(t, err)
}

func TestTransactOpts(t *testing.T) {
	w, err := FromHex(testKey)
	require.NoError(t, err)

	opts, err := w.TransactOpts(context.Background(), big.NewInt(84532))
	require.NoError(t, err)
	require.Equal(t, w.Address(), opts.From)

	tx := types.NewTx(&types.DynamicFeeTx{ChainID: big.NewInt(84532), Nonce: 1, Gas: 21000})
	signed, err := opts.Signer(opts.From, tx)
	require.NoError(t, err)
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(84532)), signed)
	require.NoError(t, err)
	require.Equal(t, w.Address(), from)

	_, err = w.TransactOpts(context.Background(), big.NewInt(0))
	require.Error(t, err)
}

func TestStoreEnsureLoadsExisting(t *testing.T) {
	// Light scrypt keeps the test fast; the format is the same.
	path := filepath.Join(t.TempDir(), "wallet.json")
	s := &Store{Path: path}

	w, err := NewRandomWallet()
	require.NoError(t, err)
	key := &keystore.Key{Address: w.address, PrivateKey: w.key}
	blob, err := keystore.EncryptKey(key, "password1", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	loaded, err := s.Ensure([]byte("password1"))
	require.NoError(t, err)
	require.Equal(t, w.Address(), loaded.Address())

	_, err = s.Ensure([]byte("wrong-password"))
	require.Error(t, err)
}
