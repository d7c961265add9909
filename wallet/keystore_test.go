package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeystore(t *testing.T, passphrases ...string) (string, []common.Address) {
	t.Helper()
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	var addrs []common.Address
	for _, p := range passphrases {
		acc, err := ks.NewAccount(p)
		require.NoError(t, err)
		addrs = append(addrs, acc.Address)
	}
	return dir, addrs
}

func staticPrompt(pass string) Prompt {
	return func(context.Context) (string, error) { return pass, nil }
}

func TestNewKeystoreRequiresDir(t *testing.T) {
	_, err := NewKeystore("", staticPrompt("pw"))
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRequestAccounts(t *testing.T) {
	dir, addrs := newTestKeystore(t, "pw")
	k, err := NewKeystore(dir, staticPrompt("pw"))
	require.NoError(t, err)

	ctx := context.Background()
	got, err := k.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "nothing granted before the prompt")

	got, err = k.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, addrs, got)

	got, err = k.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, addrs, got, "grant persists without prompting")
}

func TestRequestAccountsRejected(t *testing.T) {
	dir, _ := newTestKeystore(t, "pw")

	k, err := NewKeystore(dir, staticPrompt("wrong"))
	require.NoError(t, err)
	_, err = k.RequestAccounts(context.Background())
	assert.True(t, errors.Is(err, ErrRejected), "wrong passphrase: %v", err)

	k, err = NewKeystore(dir, func(context.Context) (string, error) { return "", errors.New("cancelled") })
	require.NoError(t, err)
	_, err = k.RequestAccounts(context.Background())
	assert.True(t, errors.Is(err, ErrRejected), "declined prompt: %v", err)
}

func TestRequestAccountsEmptyKeystore(t *testing.T) {
	k, err := NewKeystore(t.TempDir(), staticPrompt("pw"))
	require.NoError(t, err)
	_, err = k.RequestAccounts(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSelectAndRevokeNotify(t *testing.T) {
	dir, addrs := newTestKeystore(t, "pw", "pw")
	k, err := NewKeystore(dir, staticPrompt("pw"))
	require.NoError(t, err)

	granted, err := k.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, granted, 2)
	assert.ElementsMatch(t, addrs, granted)

	ch := make(chan []common.Address, 4)
	sub := k.SubscribeAccountsChanged(ch)
	defer sub.Unsubscribe()

	second := granted[1]
	require.NoError(t, k.Select(second))
	select {
	case got := <-ch:
		assert.Equal(t, second, got[0])
		assert.Len(t, got, 2)
	case <-time.After(time.Second):
		t.Fatal("no accountsChanged after Select")
	}

	require.NoError(t, k.Revoke(second))
	select {
	case got := <-ch:
		assert.Equal(t, []common.Address{granted[0]}, got)
	case <-time.After(time.Second):
		t.Fatal("no accountsChanged after Revoke")
	}

	assert.Error(t, k.Select(second), "revoked account cannot be selected")
}

func TestNetworkCallsWithoutEndpoint(t *testing.T) {
	dir, addrs := newTestKeystore(t, "pw")
	k, err := NewKeystore(dir, staticPrompt("pw"))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = k.BalanceAt(ctx, addrs[0])
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = k.SendTransaction(ctx, TxRequest{From: addrs[0]})
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = k.WaitMined(ctx, common.Hash{})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRequestAccountsPromptsOnce(t *testing.T) {
	dir, addrs := newTestKeystore(t, "pw")
	prompts := 0
	k, err := NewKeystore(dir, func(context.Context) (string, error) {
		prompts++
		return "pw", nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := k.RequestAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, addrs, got)
	}
	assert.Equal(t, 1, prompts, "granted accounts are returned without prompting")

	require.NoError(t, k.Revoke(addrs[0]))
	_, err = k.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, prompts, "a revoked grant needs the passphrase again")
}

// fakeNode answers the calls SendTransaction and WaitMined make. Anything
// else hits the nil embedded Backend and panics.
type fakeNode struct {
	Backend

	chainID *big.Int
	nonce   uint64
	tip     *big.Int
	baseFee *big.Int
	gas     uint64
	sent    []*types.Transaction
}

func (f *fakeNode) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeNode) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeNode) SuggestGasTipCap(context.Context) (*big.Int, error) { return f.tip, nil }

func (f *fakeNode) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeNode) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, nil
}

func (f *fakeNode) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeNode) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
		}
	}
	return nil, ethereum.NotFound
}

func TestSendTransactionSignsDynamicFeeTx(t *testing.T) {
	dir, addrs := newTestKeystore(t, "pw")
	node := &fakeNode{
		chainID: big.NewInt(1337),
		nonce:   7,
		tip:     big.NewInt(2 * params.GWei),
		baseFee: big.NewInt(10 * params.GWei),
		gas:     30_000,
	}
	k, err := NewKeystore(dir, staticPrompt("pw"), WithBackend(node))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = k.RequestAccounts(ctx)
	require.NoError(t, err)

	to := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	value := big.NewInt(params.GWei)
	data := []byte{0x3c, 0xcf, 0xd6, 0x0b}
	hash, err := k.SendTransaction(ctx, TxRequest{From: addrs[0], To: to, Value: value, Data: data})
	require.NoError(t, err)

	require.Len(t, node.sent, 1)
	tx := node.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(30_000), tx.Gas())
	assert.Equal(t, big.NewInt(2*params.GWei), tx.GasTipCap())
	// tip plus twice the base fee
	assert.Equal(t, big.NewInt(22*params.GWei), tx.GasFeeCap())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, value, tx.Value())
	assert.Equal(t, data, tx.Data())
	assert.Equal(t, big.NewInt(1337), tx.ChainId())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1337)), tx)
	require.NoError(t, err)
	assert.Equal(t, addrs[0], from)

	receipt, err := k.WaitMined(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}

func TestSendTransactionRequiresGrant(t *testing.T) {
	dir, addrs := newTestKeystore(t, "pw")
	node := &fakeNode{chainID: big.NewInt(1337), tip: big.NewInt(1), gas: 21_000}
	k, err := NewKeystore(dir, staticPrompt("pw"), WithBackend(node))
	require.NoError(t, err)

	_, err = k.SendTransaction(context.Background(), TxRequest{From: addrs[0]})
	assert.True(t, errors.Is(err, ErrRejected), "not granted: %v", err)
	assert.Empty(t, node.sent)
}
