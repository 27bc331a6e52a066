package interfaces

import (
	"context"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/types"
)

// The backend interfaces below are implemented by *clients.APIClient. They
// let the services package be tested against fakes without an HTTP server.

// CheckbookAPI reads checkbooks and allocations.
type CheckbookAPI interface {
	ListCheckbooks(ctx context.Context, p clients.ListCheckbooksParams) (*clients.CheckbooksPage, error)
	GetCheckbook(ctx context.Context, id string) (models.Checkbook, []models.Allocation, error)
	DeleteCheckbook(ctx context.Context, id string) error
	ListAllocations(ctx context.Context, p clients.ListAllocationsParams) (*dto.AllocationsPage, error)
	GetAllocation(ctx context.Context, id string) (models.Allocation, error)
}

// CommitmentAPI submits commitments.
type CommitmentAPI interface {
	GetCheckbook(ctx context.Context, id string) (models.Checkbook, []models.Allocation, error)
	SubmitCommitment(ctx context.Context, req types.CommitmentSubmitRequest) (*dto.CommitmentResult, error)
}

// WithdrawAPI drives withdraw requests through the backend pipeline.
type WithdrawAPI interface {
	GetCheckbook(ctx context.Context, id string) (models.Checkbook, []models.Allocation, error)
	GetAllocation(ctx context.Context, id string) (models.Allocation, error)

	SubmitWithdraw(ctx context.Context, req types.WithdrawSubmitRequest) (models.WithdrawRequest, error)
	ListWithdrawRequests(ctx context.Context, p clients.ListWithdrawParams) (*dto.WithdrawRequestsPage, error)
	ListBeneficiaryWithdrawRequests(ctx context.Context, p clients.ListWithdrawParams) (*dto.WithdrawRequestsPage, error)
	GetWithdrawStats(ctx context.Context) (models.WithdrawStats, error)
	GetWithdrawRequest(ctx context.Context, id string) (models.WithdrawRequest, error)
	GetWithdrawRequestByNullifier(ctx context.Context, nullifier string) (models.WithdrawRequest, error)
	RetryWithdrawRequest(ctx context.Context, id string) (*dto.RetryResponse, error)
	RetryPayout(ctx context.Context, id string) (*dto.RetryResponse, error)
	RetryFallback(ctx context.Context, id string) (*dto.RetryResponse, error)
	CancelWithdrawRequest(ctx context.Context, id string) (models.WithdrawRequest, bool, error)
	RequestPayout(ctx context.Context, id string) error
	ClaimTimeout(ctx context.Context, id string) error
}

// ActionObserver is told the outcome of every orchestrated step.
// err is nil on success.
type ActionObserver interface {
	ObserveAction(flow, step string, err error)
}

var (
	_ CheckbookAPI  = (*clients.APIClient)(nil)
	_ CommitmentAPI = (*clients.APIClient)(nil)
	_ WithdrawAPI   = (*clients.APIClient)(nil)
)
