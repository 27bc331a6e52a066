package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"enclave-sdk/internal/models"
)

const (
	SLIP44Ethereum uint32 = 60
	SLIP44TRON     uint32 = 195
	SLIP44BSC      uint32 = 714
	SLIP44Polygon  uint32 = 966

	tronAddressPrefix byte = 0x41
)

var (
	evmHexPattern       = regexp.MustCompile("^[0-9a-fA-F]{40}$")
	universalHexPattern = regexp.MustCompile("^[0-9a-fA-F]{64}$")
)

// IsTronAddress checks whether the address looks like a TRON base58 address.
func IsTronAddress(address string) bool {
	return address != "" && strings.HasPrefix(address, "T") && len(address) == 34
}

// IsEvmAddress checks whether the address is 20-byte hex, with or without 0x.
func IsEvmAddress(address string) bool {
	return evmHexPattern.MatchString(trim0x(address))
}

// IsUniversalAddress checks whether the address is 32-byte hex, with or without 0x.
func IsUniversalAddress(address string) bool {
	return universalHexPattern.MatchString(trim0x(address))
}

func trim0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// ToUniversalAddress converts a chain-native address to a UniversalAddress.
// Accepts EVM hex, TRON base58 and already-universal 32-byte hex.
func ToUniversalAddress(slip44ChainID uint32, address string) (models.UniversalAddress, error) {
	ua := models.UniversalAddress{SLIP44ChainID: slip44ChainID, DisplayAddress: address}
	var raw []byte
	var err error
	switch {
	case address == "":
		return ua, fmt.Errorf("empty address")
	case IsUniversalAddress(address):
		raw, err = hex.DecodeString(trim0x(address))
		if err == nil {
			copy(ua.Data[:], raw)
			ua.DisplayAddress, err = UniversalToNative(ua)
		}
		return ua, err
	case slip44ChainID == SLIP44TRON && IsTronAddress(address):
		raw, err = decodeTronAddress(address)
	case IsEvmAddress(address):
		raw, err = hex.DecodeString(trim0x(address))
		ua.DisplayAddress = common.BytesToAddress(raw).Hex()
	default:
		return ua, fmt.Errorf("unsupported address format for chain %d: %s", slip44ChainID, address)
	}
	if err != nil {
		return ua, err
	}
	copy(ua.Data[12:], raw)
	return ua, nil
}

// MustUniversalAddress is ToUniversalAddress for constant inputs in tests and tools.
func MustUniversalAddress(slip44ChainID uint32, address string) models.UniversalAddress {
	ua, err := ToUniversalAddress(slip44ChainID, address)
	if err != nil {
		panic(err)
	}
	return ua
}

// UniversalToNative renders the chain-native form: base58 for TRON,
// checksummed hex for EVM chains, raw 32-byte hex otherwise.
func UniversalToNative(ua models.UniversalAddress) (string, error) {
	if !bytes.Equal(ua.Data[:12], make([]byte, 12)) {
		return ua.Hex(), nil
	}
	evm := common.BytesToAddress(ua.Data[12:])
	if ua.SLIP44ChainID == SLIP44TRON {
		return EvmToTronAddress(evm.Hex())
	}
	return evm.Hex(), nil
}

// ParseUniversalAddressString parses the "slip44:address" form carried in the auth token.
func ParseUniversalAddressString(s string) (models.UniversalAddress, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return models.UniversalAddress{}, fmt.Errorf("invalid universal address string: %s", s)
	}
	chainID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return models.UniversalAddress{}, fmt.Errorf("invalid chain id in universal address %q: %w", s, err)
	}
	return ToUniversalAddress(uint32(chainID), parts[1])
}

// EvmToUniversalAddress left-pads a 20-byte EVM address to 32 bytes.
func EvmToUniversalAddress(evmAddress string) (string, error) {
	if !IsEvmAddress(evmAddress) {
		return "", fmt.Errorf("invalid EVM address format: %s", evmAddress)
	}
	ua, err := ToUniversalAddress(SLIP44Ethereum, evmAddress)
	if err != nil {
		return "", err
	}
	return ua.Hex(), nil
}

// TronToUniversalAddress converts TRON base58 to 0x-prefixed 32-byte hex.
func TronToUniversalAddress(tronAddress string) (string, error) {
	if !IsTronAddress(tronAddress) {
		return "", fmt.Errorf("invalid TRON address format: %s", tronAddress)
	}
	ua, err := ToUniversalAddress(SLIP44TRON, tronAddress)
	if err != nil {
		return "", err
	}
	return ua.Hex(), nil
}

// decodeTronAddress returns the 20 address bytes after checksum and prefix checks.
func decodeTronAddress(tronAddress string) ([]byte, error) {
	decoded, err := base58.Decode(tronAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TRON address: %w", err)
	}
	// 21 address bytes + 4 checksum bytes
	if len(decoded) != 25 {
		return nil, fmt.Errorf("invalid TRON address length: expected 25 bytes, got %d", len(decoded))
	}
	payload, checksum := decoded[:21], decoded[21:]
	if !bytes.Equal(checksum, tronChecksum(payload)) {
		return nil, fmt.Errorf("invalid TRON address checksum")
	}
	if payload[0] != tronAddressPrefix {
		return nil, fmt.Errorf("invalid TRON address prefix: expected 0x41, got 0x%02x", payload[0])
	}
	return payload[1:], nil
}

func tronChecksum(payload []byte) []byte {
	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

// ExtractEvmAddressFromUniversal returns the last 20 bytes as a 0x address.
func ExtractEvmAddressFromUniversal(universalAddress string) (string, error) {
	if !IsUniversalAddress(universalAddress) {
		return "", fmt.Errorf("invalid Universal Address format: %s", universalAddress)
	}
	hexStr := strings.ToLower(trim0x(universalAddress))
	return "0x" + hexStr[24:], nil
}

// EvmToTronAddress converts an EVM address (0x...) to TRON base58 (T...).
func EvmToTronAddress(evmAddress string) (string, error) {
	if !IsEvmAddress(evmAddress) {
		return "", fmt.Errorf("invalid EVM address format: %s", evmAddress)
	}
	evmBytes, err := hex.DecodeString(trim0x(evmAddress))
	if err != nil {
		return "", fmt.Errorf("failed to decode EVM address: %w", err)
	}
	payload := append([]byte{tronAddressPrefix}, evmBytes...)
	return base58.Encode(append(payload, tronChecksum(payload)...)), nil
}
