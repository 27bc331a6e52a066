package utils

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// EncodeAssetID encodes SLIP-44 Chain ID, Adapter ID, and Token ID into a bytes32 hex string
// Format: SLIP44ID (4 bytes) || AdapterID (4 bytes) || TokenID (2 bytes) || Reserved (22 bytes)
// Example: BSC (714) + Adapter(1) + Token(1) = 0x000002ca00000001000100000000000000000000000000000000000000000000
func EncodeAssetID(slip44ChainID uint32, adapterID uint32, tokenID uint16) string {
	id := AssetIDBytes(slip44ChainID, adapterID, tokenID)
	return "0x" + hex.EncodeToString(id[:])
}

// AssetIDBytes is EncodeAssetID without the hex rendering.
func AssetIDBytes(slip44ChainID uint32, adapterID uint32, tokenID uint16) [32]byte {
	var out [32]byte
	binary.BigEndian.PutUint32(out[0:4], slip44ChainID)
	binary.BigEndian.PutUint32(out[4:8], adapterID)
	binary.BigEndian.PutUint16(out[8:10], tokenID)
	return out
}

// ParseAssetID decodes a 0x-optional 64-char hex asset id.
func ParseAssetID(assetID string) ([32]byte, error) {
	var out [32]byte
	s := trim0x(assetID)
	if len(s) != 64 {
		return out, fmt.Errorf("invalid asset ID length: expected 64 hex chars, got %d", len(s))
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex string: %v", err)
	}
	copy(out[:], data)
	return out, nil
}

// DecodeAssetID decodes a bytes32 hex string into SLIP-44 Chain ID, Adapter ID, and Token ID
func DecodeAssetID(assetID string) (uint32, uint32, uint16, error) {
	data, err := ParseAssetID(assetID)
	if err != nil {
		return 0, 0, 0, err
	}
	chain, adapter, token := SplitAssetID(data)
	return chain, adapter, token, nil
}

// SplitAssetID extracts the three packed fields from raw asset id bytes.
func SplitAssetID(data [32]byte) (slip44ChainID uint32, adapterID uint32, tokenID uint16) {
	return binary.BigEndian.Uint32(data[0:4]), binary.BigEndian.Uint32(data[4:8]), binary.BigEndian.Uint16(data[8:10])
}

// ValidateAssetID validates that an asset ID is well-formed and matches expected values
func ValidateAssetID(assetID string, expectedSLIP44 uint32, expectedAdapter uint32, expectedToken uint16) error {
	slip44, adapter, token, err := DecodeAssetID(assetID)
	if err != nil {
		return err
	}
	if slip44 != expectedSLIP44 {
		return fmt.Errorf("SLIP-44 Chain ID mismatch: expected %d, got %d", expectedSLIP44, slip44)
	}
	if adapter != expectedAdapter {
		return fmt.Errorf("adapter ID mismatch: expected %d, got %d", expectedAdapter, adapter)
	}
	if token != expectedToken {
		return fmt.Errorf("token ID mismatch: expected %d, got %d", expectedToken, token)
	}
	return nil
}

// GetChainIDFromAssetID extracts SLIP-44 Chain ID from an Asset ID
func GetChainIDFromAssetID(assetID string) (uint32, error) {
	slip44, _, _, err := DecodeAssetID(assetID)
	return slip44, err
}

// GetAdapterIDFromAssetID extracts Adapter ID from an Asset ID
func GetAdapterIDFromAssetID(assetID string) (uint32, error) {
	_, adapter, _, err := DecodeAssetID(assetID)
	return adapter, err
}

// GetTokenIDFromAssetID extracts Token ID from an Asset ID
func GetTokenIDFromAssetID(assetID string) (uint16, error) {
	_, _, token, err := DecodeAssetID(assetID)
	return token, err
}
