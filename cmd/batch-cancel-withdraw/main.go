package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/app"
	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/config"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/services"
)

func main() {
	var (
		executeStatus = flag.String("execute-status", "", "Filter by execute_status (e.g., verify_failed)")
		payoutStatus  = flag.String("payout-status", "", "Filter by payout_status (e.g., failed)")
		proofStatus   = flag.String("proof-status", "", "Filter by proof_status (e.g., failed)")
		status        = flag.String("status", "", "Filter by main status (e.g., failed_permanent)")
		requestIDs    = flag.String("ids", "", "Comma-separated list of request IDs to cancel")
		dryRun        = flag.Bool("dry-run", false, "Only show what would be cancelled, don't actually cancel")
		assumeYes     = flag.Bool("yes", false, "Do not ask for confirmation")
		configPath    = flag.String("config", "", "Path to config file (default config.local.yaml or config.yaml)")
		token         = flag.String("token", os.Getenv("ENCLAVE_TOKEN"), "JWT to use instead of logging in with the configured key")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	container, err := app.NewServiceContainer(app.Options{Config: cfg})
	if err != nil {
		logrus.Fatalf("Failed to initialize SDK: %v", err)
	}
	defer container.Close()
	log := container.Log

	ctx := context.Background()
	if err := container.Authenticate(ctx, *token); err != nil {
		logrus.Fatalf("Failed to authenticate: %v", err)
	}
	withdrawService := container.WithdrawRequestService

	f := filter{
		ExecuteStatus: *executeStatus,
		PayoutStatus:  *payoutStatus,
		ProofStatus:   *proofStatus,
		Status:        *status,
	}

	var requestsToCancel []models.WithdrawRequest
	if *requestIDs != "" {
		for _, id := range strings.Split(*requestIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			req, err := withdrawService.GetWithdrawRequest(ctx, id)
			if err != nil {
				log.WithError(err).WithField("withdraw_id", id).Warn("Failed to get request")
				continue
			}
			requestsToCancel = append(requestsToCancel, req)
		}
	} else {
		if f.empty() {
			logrus.Fatal("Please specify either -ids, -status, -execute-status, -payout-status, or -proof-status")
		}
		all, err := listAll(ctx, withdrawService, f.Status)
		if err != nil {
			logrus.Fatalf("Failed to list withdraw requests: %v", err)
		}
		requestsToCancel = f.apply(all)
	}

	if len(requestsToCancel) == 0 {
		log.Info("No requests found to cancel")
		return
	}

	fmt.Printf("Found %d requests to cancel:\n", len(requestsToCancel))
	for _, req := range requestsToCancel {
		fmt.Printf("  - ID: %s, Status: %s, ExecuteStatus: %s, PayoutStatus: %s, ProofStatus: %s, Allocations: %s\n",
			req.ID, req.Status, req.ExecuteStatus, req.PayoutStatus, req.ProofStatus, strings.Join(req.AllocationIDs, ","))
	}

	if *dryRun {
		fmt.Println("\nDRY RUN MODE - No requests were actually cancelled")
		return
	}

	if !*assumeYes {
		fmt.Print("\nAre you sure you want to cancel these requests? (yes/no): ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Println("Cancelled by user")
			return
		}
	}

	successCount := 0
	failCount := 0
	for _, req := range requestsToCancel {
		entry := log.WithField("withdraw_id", req.ID)
		if err := withdrawService.Cancel(ctx, req.ID); err != nil {
			entry.WithError(err).Error("Failed to cancel request")
			failCount++
		} else {
			entry.Info("Cancelled request")
			successCount++
		}
		// stay well under the API rate limit
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Successfully cancelled: %d\n", successCount)
	fmt.Printf("  Failed: %d\n", failCount)
	fmt.Printf("  Total processed: %d\n", len(requestsToCancel))
	if failCount > 0 {
		os.Exit(1)
	}
}

func listAll(ctx context.Context, s *services.WithdrawRequestService, status string) ([]models.WithdrawRequest, error) {
	var out []models.WithdrawRequest
	for page := 1; ; page++ {
		res, err := s.ListWithdrawRequests(ctx, clients.ListWithdrawParams{Page: page, PageSize: 100, Status: status})
		if err != nil {
			return nil, err
		}
		out = append(out, res.Requests...)
		if len(res.Requests) == 0 || page >= res.Page.TotalPages {
			return out, nil
		}
	}
}
