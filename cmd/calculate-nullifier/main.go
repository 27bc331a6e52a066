package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/commitment"
	"enclave-sdk/internal/utils"
)

func main() {
	var (
		commitmentHex = flag.String("commitment", "", "Checkbook commitment (0x + 64 hex chars)")
		seq           = flag.Uint("seq", 0, "Allocation seq (0-255)")
		amountStr     = flag.String("amount", "", "Allocation amount in base units (decimal, or 0x-prefixed hex)")
		verbose       = flag.Bool("v", false, "Print the hashed bytes")
	)
	flag.Parse()

	if *seq > 255 {
		logrus.Fatalf("seq %d out of range", *seq)
	}
	c, err := commitment.ParseHash(*commitmentHex)
	if err != nil {
		logrus.Fatalf("Invalid commitment: %v", err)
	}
	amount, err := parseAmount(*amountStr)
	if err != nil {
		logrus.Fatalf("Invalid amount: %v", err)
	}

	nullifier, err := commitment.Nullifier(c, uint8(*seq), amount)
	if err != nil {
		logrus.Fatalf("Failed to compute nullifier: %v", err)
	}

	if *verbose {
		amount32, _ := utils.AmountToHex32(amount)
		fmt.Fprintf(os.Stderr, "commitment (32): %x\n", c.Bytes())
		fmt.Fprintf(os.Stderr, "seq (1):         %02x\n", *seq)
		fmt.Fprintf(os.Stderr, "amount (32, BE): %s\n", amount32)
	}
	fmt.Println(nullifier.Hex())
}

func parseAmount(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return utils.ParseHexAmount(s)
	}
	return utils.ParseAmount(s)
}
