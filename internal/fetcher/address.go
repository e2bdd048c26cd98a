package fetcher

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"nftvault/internal/models"
)

const NetworkSolana = "solana"

// FamilyForNetwork maps a network id to its address family.
func FamilyForNetwork(network string) string {
	if strings.EqualFold(strings.TrimSpace(network), NetworkSolana) {
		return models.ChainFamilySolana
	}
	return models.ChainFamilyEVM
}

// DetectFamily guesses the chain family from the address shape.
func DetectFamily(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) && strings.HasPrefix(strings.ToLower(address), "0x") {
		return models.ChainFamilyEVM, true
	}
	if isSolanaAddress(address) {
		return models.ChainFamilySolana, true
	}
	return "", false
}

// NormalizeAddress validates the address for family and returns its stored
// form: lower-cased hex for EVM, verbatim base58 for Solana.
func NormalizeAddress(address, family string) (string, error) {
	raw := strings.TrimSpace(address)
	if raw == "" {
		return "", &InvalidAddressError{Address: address, Reason: "empty address"}
	}
	switch family {
	case models.ChainFamilySolana:
		if !isSolanaAddress(raw) {
			return "", &InvalidAddressError{Address: address, Network: NetworkSolana, Reason: "not a 32-byte base58 public key"}
		}
		return raw, nil
	case models.ChainFamilyEVM, "":
		if !strings.HasPrefix(strings.ToLower(raw), "0x") || !common.IsHexAddress(raw) {
			return "", &InvalidAddressError{Address: address, Reason: "not a 20-byte hex address"}
		}
		return strings.ToLower(raw), nil
	default:
		return "", &InvalidAddressError{Address: address, Reason: "unknown chain family " + family}
	}
}

func isSolanaAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	b, err := base58.Decode(address)
	return err == nil && len(b) == 32
}
