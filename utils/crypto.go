package utils

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	solsha3 "github.com/miguelmota/go-solidity-sha3"
)

// SigIsValid reports whether sig over data was produced by signer.
func SigIsValid(signer common.Address, data []byte, sig []byte) bool {
	recoveredAddr, err := RecoverSigner(data, sig)
	if err != nil {
		return false
	}
	return recoveredAddr == signer
}

// RecoverSigner recovers the address that signed data with SignData.
func RecoverSigner(data []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pubKey, err := crypto.SigToPub(generatePrefixedHash(data), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// SignData signs keccak256(data...) with the Ethereum signed message prefix.
func SignData(privateKey *ecdsa.PrivateKey, data ...[]byte) ([]byte, error) {
	return crypto.Sign(generatePrefixedHash(concat(data...)), privateKey)
}

// PackedHash is keccak256 of the tightly packed values of the given solidity
// types.
func PackedHash(types []string, values []interface{}) []byte {
	return solsha3.SoliditySHA3(types, values)
}

// SignPackedData signs the packed encoding of values with SignData.
func SignPackedData(privateKey *ecdsa.PrivateKey, types []string, values []interface{}) ([]byte, error) {
	return SignData(privateKey, PackedHash(types, values))
}

func GetPrivateKeyFromKeystore(path string, password string) (*ecdsa.PrivateKey, error) {
	ksBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey(ksBytes, password)
	if err != nil {
		return nil, err
	}
	return key.PrivateKey, nil
}

// StoreKeystore encrypts key into a new keystore file under dir and returns
// the file path.
func StoreKeystore(dir string, key *ecdsa.PrivateKey, password string) (string, error) {
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.ImportECDSA(key, password)
	if err != nil {
		return "", err
	}
	return account.URL.Path, nil
}

func generatePrefixedHash(data []byte) []byte {
	return crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), crypto.Keccak256(data))
}

func concat(data ...[]byte) []byte {
	var out []byte
	for _, d := range data {
		out = append(out, d...)
	}
	return out
}
