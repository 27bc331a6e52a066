package dto

import (
	"github.com/golang-jwt/jwt/v5"

	"enclave-sdk/internal/models"
	"enclave-sdk/internal/utils"
)

// ==================== Auth DTOs ====================

// NonceResponse is returned by GET /api/auth/nonce. Message is the exact
// text the wallet must sign.
type NonceResponse struct {
	Success   bool   `json:"success"`
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// AuthResponse Authentication response structure
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JWTClaims JWT Claims structure
type JWTClaims struct {
	UserAddress      string `json:"user_address"`      // wallet address
	UniversalAddress string `json:"universal_address"` // slip44_chain_id:data
	ChainID          int    `json:"chain_id"`          // SLIP-44 chain ID (e.g., 714 for BSC, 60 for Ethereum, 195 for TRON)
	jwt.RegisteredClaims
}

// Owner returns the authenticated universal address, preferring the
// universal_address claim and falling back to user_address on chain_id.
func (c *JWTClaims) Owner() (models.UniversalAddress, error) {
	if c.UniversalAddress != "" {
		return utils.ParseUniversalAddressString(c.UniversalAddress)
	}
	return utils.ToUniversalAddress(uint32(c.ChainID), c.UserAddress)
}
