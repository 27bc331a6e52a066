package utils

import (
	"fmt"
	"strings"
)

// ChainInfo describes one supported chain. Wire payloads always carry the
// SLIP-44 id; the EVM id is only used when talking to a wallet.
type ChainInfo struct {
	SLIP44ChainID uint32
	EVMChainID    uint32 // 0 when the chain is not EVM
	Name          string
	Symbol        string
}

var supportedChains = []ChainInfo{
	{SLIP44ChainID: SLIP44BSC, EVMChainID: 56, Name: "BSC", Symbol: "BNB"},
	{SLIP44ChainID: SLIP44Ethereum, EVMChainID: 1, Name: "Ethereum", Symbol: "ETH"},
	{SLIP44ChainID: SLIP44Polygon, EVMChainID: 137, Name: "Polygon", Symbol: "MATIC"},
	{SLIP44ChainID: SLIP44TRON, Name: "TRON", Symbol: "TRX"},
}

// ChainIDMapping converts between SLIP-44 and EVM chain ids.
type ChainIDMapping struct {
	bySlip44 map[uint32]ChainInfo
	byEVM    map[uint32]ChainInfo
}

// NewChainIDMapping builds the mapping for the supported chains.
func NewChainIDMapping() *ChainIDMapping {
	m := &ChainIDMapping{
		bySlip44: make(map[uint32]ChainInfo, len(supportedChains)),
		byEVM:    make(map[uint32]ChainInfo, len(supportedChains)),
	}
	for _, c := range supportedChains {
		m.bySlip44[c.SLIP44ChainID] = c
		if c.EVMChainID != 0 {
			m.byEVM[c.EVMChainID] = c
		}
	}
	return m
}

var GlobalChainIDMapping = NewChainIDMapping()

// SLIP44ToEVM converts a SLIP-44 Chain ID to an EVM Chain ID.
func (c *ChainIDMapping) SLIP44ToEVM(slip44ChainID uint32) (uint32, error) {
	info, ok := c.bySlip44[slip44ChainID]
	if !ok {
		return 0, fmt.Errorf("unsupported SLIP-44 Chain ID: %d", slip44ChainID)
	}
	if info.EVMChainID == 0 {
		return 0, fmt.Errorf("%s does not have EVM Chain ID", info.Name)
	}
	return info.EVMChainID, nil
}

// EVMToSLIP44 converts an EVM Chain ID to a SLIP-44 Chain ID.
func (c *ChainIDMapping) EVMToSLIP44(evmChainID uint32) (uint32, error) {
	info, ok := c.byEVM[evmChainID]
	if !ok {
		return 0, fmt.Errorf("unsupported EVM Chain ID: %d", evmChainID)
	}
	return info.SLIP44ChainID, nil
}

// GetChainName returns the display name, or Unknown(id).
func (c *ChainIDMapping) GetChainName(slip44ChainID uint32) string {
	if info, ok := c.bySlip44[slip44ChainID]; ok {
		return info.Name
	}
	return fmt.Sprintf("Unknown(%d)", slip44ChainID)
}

// LookupChainName is GetChainName that reports unknown chains instead of rendering them.
func (c *ChainIDMapping) LookupChainName(slip44ChainID uint32) (string, bool) {
	info, ok := c.bySlip44[slip44ChainID]
	return info.Name, ok
}

// IsEVMCompatible checks whether the chain uses EVM addresses and signatures.
func (c *ChainIDMapping) IsEVMCompatible(slip44ChainID uint32) bool {
	return c.bySlip44[slip44ChainID].EVMChainID != 0
}

// ValidateSLIP44ChainID checks whether the SLIP-44 Chain ID is supported.
func (c *ChainIDMapping) ValidateSLIP44ChainID(slip44ChainID uint32) error {
	if _, ok := c.bySlip44[slip44ChainID]; !ok {
		return fmt.Errorf("unsupported SLIP-44 Chain ID: %d", slip44ChainID)
	}
	return nil
}

// SmartToSlip44 accepts either id space and returns the SLIP-44 id.
// Used for caller input and the legacy chain_id wire field.
func (c *ChainIDMapping) SmartToSlip44(chainID uint32) (uint32, error) {
	if _, ok := c.bySlip44[chainID]; ok {
		return chainID, nil
	}
	return c.EVMToSLIP44(chainID)
}

// Slip44FromName resolves "bsc", "ETH", "tron" and similar names.
func (c *ChainIDMapping) Slip44FromName(name string) (uint32, bool) {
	switch strings.ToLower(name) {
	case "bsc", "bnb":
		return SLIP44BSC, true
	case "ethereum", "eth":
		return SLIP44Ethereum, true
	case "polygon", "matic":
		return SLIP44Polygon, true
	case "tron", "trx":
		return SLIP44TRON, true
	}
	return 0, false
}
