package db

import "encoding/binary"

var (
	// token ledger
	NamespaceTokenBalance   = []byte("tb")
	NamespaceTokenSupply    = []byte("ts")
	NamespaceTokenAllowance = []byte("ta")
	NamespaceTokenNonce     = []byte("tn")

	// prover registry
	NamespaceProver        = []byte("pr")
	NamespaceProverOwner   = []byte("pro")
	NamespaceProverVault   = []byte("prv")
	NamespaceProverCounter = []byte("prc")

	// staking engine
	NamespaceStakerBinding = []byte("sb")
	NamespaceUnstakeQueue  = []byte("suq")
	NamespaceSlashRequests = []byte("ssr")
	NamespaceOpenSlashes   = []byte("sos")
	NamespaceDispense      = []byte("sd")
	NamespaceStakingRoles  = []byte("srl")

	// ledger bridge
	NamespaceStateRoot          = []byte("bsr")
	NamespaceBridgeHead         = []byte("bh")
	NamespaceTransaction        = []byte("btx")
	NamespaceTransactionCounter = []byte("btc")
	NamespaceFinalizedTx        = []byte("bft")
	NamespaceWithdrawalClaim    = []byte("bwc")
	NamespaceEmergencyClaimed   = []byte("bec")
	NamespaceBridgeConfig       = []byte("bcf")

	// off-ledger state machine
	NamespaceBalanceTrie   = []byte("sbt")
	NamespaceBalanceRoot   = []byte("sbr")
	NamespaceGenesisMarker = []byte("gen")

	EmptyKey  = []byte{}
	Separator = []byte("|")
)

// PrependNamespace returns a fresh slice holding namespace|key.
func PrependNamespace(namespace []byte, key []byte) []byte {
	if namespace == nil {
		return key
	}
	out := make([]byte, 0, len(namespace)+len(Separator)+len(key))
	out = append(out, namespace...)
	out = append(out, Separator...)
	return append(out, key...)
}

func ConvNilToBytes(byteArray []byte) []byte {
	if byteArray == nil {
		return []byte{}
	}
	return byteArray
}

// Uint64Key encodes n big-endian so that keys sort numerically.
func Uint64Key(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

// JoinKey concatenates key parts.
func JoinKey(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
