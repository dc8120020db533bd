package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPublicValuesEncoding(t *testing.T) {
	s := MustNewSerializer()
	deposit, err := s.SerializeDeposit(&DepositPayload{Account: common.HexToAddress("0xa11ce"), Amount: big.NewInt(42)})
	require.NoError(t, err)
	reward, err := s.SerializeReward(&RewardPayload{Prover: common.HexToAddress("0x9999"), Amount: big.NewInt(7)})
	require.NoError(t, err)

	pv := &PublicValues{
		Receipts: []*Receipt{
			{Variant: TransactionVariantDeposit, Status: TransactionStatusCompleted, OnchainTxID: 1, Payload: deposit},
			{Variant: TransactionVariantReward, Status: TransactionStatusCompleted, Payload: reward},
		},
		OldRoot:   common.HexToHash("0x01"),
		NewRoot:   common.HexToHash("0x02"),
		Timestamp: 1700000000,
	}
	data, err := s.SerializePublicValues(pv)
	require.NoError(t, err)
	decoded, err := s.DeserializePublicValues(data)
	require.NoError(t, err)
	require.Equal(t, pv, decoded)

	rewardPayload, err := s.DeserializeReward(decoded.Receipts[1].Payload)
	require.NoError(t, err)
	require.Equal(t, int64(7), rewardPayload.Amount.Int64())
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	s := MustNewSerializer()
	_, err := s.DeserializePublicValues([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidPublicValues)
	_, err = s.DeserializeReceipt(nil)
	require.ErrorIs(t, err, ErrInvalidPublicValues)
	_, _, err = s.DeserializeBalanceLeaf([]byte{0xff})
	require.Error(t, err)
}

func TestBalanceLeaf(t *testing.T) {
	s := MustNewSerializer()
	account := common.HexToAddress("0xb0b")
	leaf, err := s.SerializeBalanceLeaf(account, big.NewInt(1000))
	require.NoError(t, err)
	require.Len(t, leaf, 64)

	decodedAccount, balance, err := s.DeserializeBalanceLeaf(leaf)
	require.NoError(t, err)
	require.Equal(t, account, decodedAccount)
	require.Equal(t, int64(1000), balance.Int64())
}

func TestVariantOrigin(t *testing.T) {
	require.True(t, TransactionVariantDeposit.IsOnchain())
	require.True(t, TransactionVariantCreateProver.IsOnchain())
	require.False(t, TransactionVariantReward.IsOnchain())
	require.Equal(t, "Slash", TransactionVariantSlash.String())
}
