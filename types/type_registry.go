package types

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

type typeRegistry struct {
	addressTy    abi.Type
	bytesTy      abi.Type
	bytesSliceTy abi.Type
	bytes32Ty    abi.Type
	uint8Ty      abi.Type
	uint64Ty     abi.Type
	uint256Ty    abi.Type
}

func newTypeRegistry() (*typeRegistry, error) {
	names := []string{"address", "bytes", "bytes[]", "bytes32", "uint8", "uint64", "uint256"}
	tys := make([]abi.Type, len(names))
	for i, name := range names {
		ty, err := abi.NewType(name, "", nil)
		if err != nil {
			return nil, err
		}
		tys[i] = ty
	}
	return &typeRegistry{
		addressTy:    tys[0],
		bytesTy:      tys[1],
		bytesSliceTy: tys[2],
		bytes32Ty:    tys[3],
		uint8Ty:      tys[4],
		uint64Ty:     tys[5],
		uint256Ty:    tys[6],
	}, nil
}

func arguments(entries ...abi.Argument) abi.Arguments {
	return abi.Arguments(entries)
}

func arg(name string, ty abi.Type) abi.Argument {
	return abi.Argument{Name: name, Type: ty, Indexed: false}
}
