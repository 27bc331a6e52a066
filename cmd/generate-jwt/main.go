// Command generate-jwt mints a token for a local backend started with a
// known JWT secret, so the SDK tools can run without a wallet login.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/utils"
)

func main() {
	var (
		secret  = flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret the backend verifies tokens with")
		address = flag.String("address", "", "Wallet address (EVM 0x... or TRON T...)")
		chainID = flag.Uint("chain-id", uint(utils.SLIP44BSC), "SLIP-44 chain id")
		ttl     = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
		issuer  = flag.String("issuer", "zkpay-backend", "iss claim")
	)
	flag.Parse()

	if *secret == "" || *address == "" {
		logrus.Fatal("-secret (or JWT_SECRET) and -address are required")
	}
	ua, err := utils.ToUniversalAddress(uint32(*chainID), *address)
	if err != nil {
		logrus.Fatalf("Invalid address: %v", err)
	}

	now := time.Now()
	claims := dto.JWTClaims{
		UserAddress:      ua.DisplayAddress,
		UniversalAddress: fmt.Sprintf("%d:%s", ua.SLIP44ChainID, ua.Hex()),
		ChainID:          int(ua.SLIP44ChainID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    *issuer,
			Subject:   ua.DisplayAddress,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*secret))
	if err != nil {
		logrus.Fatalf("Error generating token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Universal Address: %s\nExpires: %s\n", claims.UniversalAddress, claims.ExpiresAt.Time.Format(time.RFC3339))
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "\nUsage: ENCLAVE_TOKEN=<token> batch-cancel-withdraw -dry-run -status verify_failed\n")
}
