package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/app"
	"enclave-sdk/internal/commitment"
	"enclave-sdk/internal/config"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/utils"
)

func main() {
	var (
		checkbookID = flag.String("checkbook", "", "Fetch the checkbook from the backend and verify its commitment and nullifiers")
		configPath  = flag.String("config", "", "Path to config file (backend mode)")
		token       = flag.String("token", os.Getenv("ENCLAVE_TOKEN"), "JWT to use instead of logging in (backend mode)")

		depositID   = flag.Uint64("deposit-id", 0, "Checkbook local deposit id")
		chainID     = flag.Uint("chain-id", uint(utils.SLIP44BSC), "Deposit chain (SLIP-44)")
		tokenKey    = flag.String("token-key", "", "Token key, e.g. USDT")
		owner       = flag.String("owner", "", "Owner as slip44:address, e.g. 714:0xabc...")
		allocations = flag.String("allocations", "", "Comma-separated seq:amount pairs in base units, e.g. 0:1000,1:2500")
		expected    = flag.String("expected", "", "Commitment to compare against")
	)
	flag.Parse()

	var (
		res report
		err error
	)
	if *checkbookID != "" {
		res, err = verifyRemote(*configPath, *token, *checkbookID)
	} else {
		res, err = verifyOffline(offlineInput{
			DepositID:   *depositID,
			ChainID:     uint32(*chainID),
			TokenKey:    *tokenKey,
			Owner:       *owner,
			Allocations: *allocations,
			Expected:    *expected,
		})
	}
	if err != nil {
		logrus.Fatalf("Verification failed: %v", err)
	}

	res.print()
	if !res.ok() {
		os.Exit(1)
	}
}

func verifyRemote(configPath, token, checkbookID string) (report, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return report{}, err
	}
	container, err := app.NewServiceContainer(app.Options{Config: cfg})
	if err != nil {
		return report{}, err
	}
	defer container.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := container.Authenticate(ctx, token); err != nil {
		return report{}, err
	}
	cb, allocs, err := container.CheckbookService.GetCheckbook(ctx, checkbookID)
	if err != nil {
		return report{}, err
	}
	return verifyCheckbook(cb, allocs)
}

// verifyCheckbook recomputes the commitment of cb and the nullifier of
// every allocation that carries one.
func verifyCheckbook(cb models.Checkbook, allocs []models.Allocation) (report, error) {
	if !cb.HasLocalDepositID() {
		return report{}, fmt.Errorf("checkbook %s has no local deposit id yet", cb.ID)
	}
	if len(allocs) == 0 {
		return report{}, fmt.Errorf("checkbook %s has no allocations", cb.ID)
	}
	sorted := append([]models.Allocation(nil), allocs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	leaves := make([]commitment.Leaf, len(sorted))
	for i, a := range sorted {
		leaves[i] = commitment.Leaf{Seq: a.Seq, Amount: a.Amount}
	}
	computed, err := commitment.Compute(commitment.Params{
		Leaves:    leaves,
		DepositID: *cb.LocalDepositID,
		ChainID:   cb.SLIP44ChainID,
		TokenKey:  cb.Token.Symbol,
		Owner:     cb.UserAddress,
	})
	if err != nil {
		return report{}, err
	}

	res := report{Computed: computed.Hex(), Expected: cb.Commitment}
	for _, a := range sorted {
		if a.Nullifier == "" {
			continue
		}
		n, err := commitment.Nullifier(computed, a.Seq, a.Amount)
		if err != nil {
			return report{}, err
		}
		res.Nullifiers = append(res.Nullifiers, nullifierCheck{
			AllocationID: a.ID,
			Seq:          a.Seq,
			Computed:     n.Hex(),
			Reported:     a.Nullifier,
		})
	}
	return res, nil
}

type nullifierCheck struct {
	AllocationID string
	Seq          uint8
	Computed     string
	Reported     string
}

type report struct {
	Computed   string
	Expected   string
	Nullifiers []nullifierCheck
}

func (r report) ok() bool {
	if r.Expected != "" && !commitment.Equal(r.Computed, r.Expected) {
		return false
	}
	for _, n := range r.Nullifiers {
		if !commitment.Equal(n.Computed, n.Reported) {
			return false
		}
	}
	return true
}

func (r report) print() {
	fmt.Printf("commitment: %s\n", r.Computed)
	if r.Expected != "" {
		fmt.Printf("expected:   %s %s\n", r.Expected, mark(commitment.Equal(r.Computed, r.Expected)))
	}
	for _, n := range r.Nullifiers {
		fmt.Printf("nullifier %s #%d: %s %s\n", n.AllocationID, n.Seq, n.Computed, mark(commitment.Equal(n.Computed, n.Reported)))
	}
}

func mark(ok bool) string {
	if ok {
		return "OK"
	}
	return "MISMATCH"
}
