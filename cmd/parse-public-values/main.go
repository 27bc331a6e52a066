// Command parse-public-values decodes the ABI-encoded public values of a
// commitment or withdraw proof, as returned by the backend.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/types"
	"enclave-sdk/internal/utils"
)

func main() {
	var (
		kind = flag.String("type", "withdraw", "Public values type: withdraw or commitment")
		hexS = flag.String("hex", "", "ABI-encoded public values (0x optional); read from stdin when empty")
	)
	flag.Parse()

	data := *hexS
	if data == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			logrus.Fatalf("Failed to read stdin: %v", err)
		}
		data = string(raw)
	}
	data = strings.TrimSpace(data)

	switch *kind {
	case "withdraw":
		v, err := types.ParseWithdrawPublicValues(data)
		if err != nil {
			logrus.Fatalf("Failed to decode withdraw public values: %v", err)
		}
		fmt.Printf("commitmentRoot  = %s\n", v.CommitmentRoot.Hex())
		for i, n := range v.Nullifiers {
			fmt.Printf("nullifiers[%d]   = %s\n", i, n.Hex())
		}
		fmt.Printf("amount          = %s (%s)\n", v.Amount, utils.FormatAmountValue(v.Amount, 18))
		fmt.Printf("intentType      = %d\n", v.IntentType)
		fmt.Printf("slip44ChainId   = %d\n", v.SLIP44ChainID)
		fmt.Printf("adapterId       = %d\n", v.AdapterID)
		fmt.Printf("tokenKey        = %s\n", v.TokenKey)
		fmt.Printf("beneficiaryData = %s\n", v.BeneficiaryData.Hex())
		fmt.Printf("minOutput       = %s\n", v.MinOutput)
		fmt.Printf("sourceChainId   = %d\n", v.SourceChainID)
		fmt.Printf("sourceTokenKey  = %s\n", v.SourceTokenKey)
	case "commitment":
		v, err := types.ParseCommitmentPublicValues(data)
		if err != nil {
			logrus.Fatalf("Failed to decode commitment public values: %v", err)
		}
		fmt.Printf("commitment  = %s\n", v.Commitment.Hex())
		fmt.Printf("owner       = %s\n", v.Owner.Hex())
		fmt.Printf("totalAmount = %s (%s)\n", v.TotalAmount, utils.FormatAmountValue(v.TotalAmount, 18))
		if id, ok := v.DepositIDUint64(); ok {
			fmt.Printf("depositId   = %d\n", id)
		} else {
			fmt.Printf("depositId   = %s\n", v.DepositID.Hex())
		}
		fmt.Printf("coinType    = %d\n", v.CoinType)
		fmt.Printf("tokenKey    = %s\n", v.TokenKey)
	default:
		logrus.Fatalf("Unknown -type %q (want withdraw or commitment)", *kind)
	}
}
