package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Serializer encodes the wire formats shared between the ledger and the
// off-ledger computation. Everything is abi encoded so that an on-ledger
// verifier contract could decode the same bytes.
type Serializer struct {
	typeRegistry          *typeRegistry
	publicValuesArguments abi.Arguments
	receiptArguments      abi.Arguments
	depositArguments      abi.Arguments
	withdrawArguments     abi.Arguments
	createProverArguments abi.Arguments
	proverAmountArguments abi.Arguments
	balanceLeafArguments  abi.Arguments
	attestationArguments  abi.Arguments
}

func NewSerializer() (*Serializer, error) {
	r, err := newTypeRegistry()
	if err != nil {
		return nil, err
	}
	return &Serializer{
		typeRegistry: r,
		publicValuesArguments: arguments(
			arg("receipts", r.bytesSliceTy),
			arg("oldRoot", r.bytes32Ty),
			arg("newRoot", r.bytes32Ty),
			arg("timestamp", r.uint64Ty),
		),
		receiptArguments: arguments(
			arg("variant", r.uint8Ty),
			arg("status", r.uint8Ty),
			arg("onchainTxId", r.uint64Ty),
			arg("payload", r.bytesTy),
		),
		depositArguments: arguments(
			arg("account", r.addressTy),
			arg("amount", r.uint256Ty),
		),
		withdrawArguments: arguments(
			arg("account", r.addressTy),
			arg("to", r.addressTy),
			arg("amount", r.uint256Ty),
		),
		createProverArguments: arguments(
			arg("prover", r.addressTy),
			arg("owner", r.addressTy),
			arg("stakerFeeBips", r.uint256Ty),
		),
		proverAmountArguments: arguments(
			arg("prover", r.addressTy),
			arg("amount", r.uint256Ty),
		),
		balanceLeafArguments: arguments(
			arg("account", r.addressTy),
			arg("balance", r.uint256Ty),
		),
		attestationArguments: arguments(
			arg("vkey", r.bytes32Ty),
			arg("digest", r.bytes32Ty),
		),
	}, nil
}

// MustNewSerializer panics on error. The abi type names are constants, so an
// error is a programming mistake.
func MustNewSerializer() *Serializer {
	s, err := NewSerializer()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Serializer) SerializePublicValues(pv *PublicValues) ([]byte, error) {
	receipts := make([][]byte, len(pv.Receipts))
	for i, receipt := range pv.Receipts {
		data, err := s.SerializeReceipt(receipt)
		if err != nil {
			return nil, err
		}
		receipts[i] = data
	}
	return s.publicValuesArguments.Pack(receipts, [32]byte(pv.OldRoot), [32]byte(pv.NewRoot), pv.Timestamp)
}

func (s *Serializer) DeserializePublicValues(data []byte) (*PublicValues, error) {
	values, err := s.publicValuesArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicValues, err)
	}
	encodedReceipts, ok1 := values[0].([][]byte)
	oldRoot, ok2 := values[1].([32]byte)
	newRoot, ok3 := values[2].([32]byte)
	timestamp, ok4 := values[3].(uint64)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("%w: unexpected field types", ErrInvalidPublicValues)
	}
	receipts := make([]*Receipt, len(encodedReceipts))
	for i, encoded := range encodedReceipts {
		receipt, err := s.DeserializeReceipt(encoded)
		if err != nil {
			return nil, fmt.Errorf("receipt %d: %w", i, err)
		}
		receipts[i] = receipt
	}
	return &PublicValues{
		Receipts:  receipts,
		OldRoot:   common.Hash(oldRoot),
		NewRoot:   common.Hash(newRoot),
		Timestamp: timestamp,
	}, nil
}

func (s *Serializer) SerializeReceipt(receipt *Receipt) ([]byte, error) {
	return s.receiptArguments.Pack(uint8(receipt.Variant), uint8(receipt.Status), receipt.OnchainTxID, receipt.Payload)
}

func (s *Serializer) DeserializeReceipt(data []byte) (*Receipt, error) {
	values, err := s.receiptArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicValues, err)
	}
	variant, ok1 := values[0].(uint8)
	status, ok2 := values[1].(uint8)
	txID, ok3 := values[2].(uint64)
	payload, ok4 := values[3].([]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("%w: unexpected receipt field types", ErrInvalidPublicValues)
	}
	return &Receipt{
		Variant:     TransactionVariant(variant),
		Status:      TransactionStatus(status),
		OnchainTxID: txID,
		Payload:     payload,
	}, nil
}

func (s *Serializer) SerializeDeposit(p *DepositPayload) ([]byte, error) {
	return s.depositArguments.Pack(p.Account, p.Amount)
}

func (s *Serializer) DeserializeDeposit(data []byte) (*DepositPayload, error) {
	values, err := s.depositArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize DepositPayload: %w", err)
	}
	account, ok1 := values[0].(common.Address)
	amount, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("Deserialize DepositPayload: %w", ErrInvalidPublicValues)
	}
	return &DepositPayload{Account: account, Amount: amount}, nil
}

func (s *Serializer) SerializeWithdraw(p *WithdrawPayload) ([]byte, error) {
	return s.withdrawArguments.Pack(p.Account, p.To, p.Amount)
}

func (s *Serializer) DeserializeWithdraw(data []byte) (*WithdrawPayload, error) {
	values, err := s.withdrawArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize WithdrawPayload: %w", err)
	}
	account, ok1 := values[0].(common.Address)
	to, ok2 := values[1].(common.Address)
	amount, ok3 := values[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("Deserialize WithdrawPayload: %w", ErrInvalidPublicValues)
	}
	return &WithdrawPayload{Account: account, To: to, Amount: amount}, nil
}

func (s *Serializer) SerializeCreateProver(p *CreateProverPayload) ([]byte, error) {
	return s.createProverArguments.Pack(p.Prover, p.Owner, p.StakerFeeBips)
}

func (s *Serializer) DeserializeCreateProver(data []byte) (*CreateProverPayload, error) {
	values, err := s.createProverArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize CreateProverPayload: %w", err)
	}
	prover, ok1 := values[0].(common.Address)
	owner, ok2 := values[1].(common.Address)
	fee, ok3 := values[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("Deserialize CreateProverPayload: %w", ErrInvalidPublicValues)
	}
	return &CreateProverPayload{Prover: prover, Owner: owner, StakerFeeBips: fee}, nil
}

func (s *Serializer) SerializeReward(p *RewardPayload) ([]byte, error) {
	return s.proverAmountArguments.Pack(p.Prover, p.Amount)
}

func (s *Serializer) DeserializeReward(data []byte) (*RewardPayload, error) {
	prover, amount, err := s.unpackProverAmount(data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize RewardPayload: %w", err)
	}
	return &RewardPayload{Prover: prover, Amount: amount}, nil
}

func (s *Serializer) SerializeSlash(p *SlashPayload) ([]byte, error) {
	return s.proverAmountArguments.Pack(p.Prover, p.Amount)
}

func (s *Serializer) DeserializeSlash(data []byte) (*SlashPayload, error) {
	prover, amount, err := s.unpackProverAmount(data)
	if err != nil {
		return nil, fmt.Errorf("Deserialize SlashPayload: %w", err)
	}
	return &SlashPayload{Prover: prover, Amount: amount}, nil
}

func (s *Serializer) unpackProverAmount(data []byte) (common.Address, *big.Int, error) {
	values, err := s.proverAmountArguments.Unpack(data)
	if err != nil {
		return common.Address{}, nil, err
	}
	prover, ok1 := values[0].(common.Address)
	amount, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return common.Address{}, nil, ErrInvalidPublicValues
	}
	return prover, amount, nil
}

// SerializeBalanceLeaf encodes the value stored at an account's leaf of the
// off-ledger balance tree.
func (s *Serializer) SerializeBalanceLeaf(account common.Address, balance *big.Int) ([]byte, error) {
	return s.balanceLeafArguments.Pack(account, balance)
}

func (s *Serializer) DeserializeBalanceLeaf(data []byte) (common.Address, *big.Int, error) {
	values, err := s.balanceLeafArguments.Unpack(data)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("deserialize balance leaf: %w", err)
	}
	account, ok1 := values[0].(common.Address)
	balance, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return common.Address{}, nil, fmt.Errorf("deserialize balance leaf: %w", ErrInvalidPublicValues)
	}
	return account, balance, nil
}

// SerializeAttestation encodes the message signed by an attesting prover.
func (s *Serializer) SerializeAttestation(vkey common.Hash, digest common.Hash) ([]byte, error) {
	return s.attestationArguments.Pack([32]byte(vkey), [32]byte(digest))
}
