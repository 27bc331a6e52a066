package services

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/types"
	"enclave-sdk/internal/utils"
)

const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	commitment1 = "0x1111111111111111111111111111111111111111111111111111111111111111"
	commitment2 = "0x2222222222222222222222222222222222222222222222222222222222222222"
)

func u64(v uint64) *uint64 { return &v }

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad amount " + s)
	}
	return v
}

func owner() models.UniversalAddress {
	return utils.MustUniversalAddress(utils.SLIP44BSC, testAddr)
}

func testCheckbook(id string, localDepositID uint64, status models.CheckbookStatus) models.Checkbook {
	return models.Checkbook{
		ID:                id,
		SLIP44ChainID:     utils.SLIP44BSC,
		LocalDepositID:    u64(localDepositID),
		UserAddress:       owner(),
		Token:             models.Token{Symbol: "USDT", Decimals: 18},
		Amount:            wei("1000000000000000000"),
		AllocatableAmount: wei("1000000000000000000"),
		Status:            status,
	}
}

// fakeAPI is an in-memory backend. Every field may be set by a test before use.
type fakeAPI struct {
	mu sync.Mutex

	checkbooks  map[string]models.Checkbook
	allocations map[string]models.Allocation
	withdrawals map[string]models.WithdrawRequest

	calls map[string]int

	commitmentResult *dto.CommitmentResult
	submitErr        error
	lastCommitment   *types.CommitmentSubmitRequest
	lastWithdraw     *types.WithdrawSubmitRequest
	retryStatus      string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		checkbooks:  map[string]models.Checkbook{},
		allocations: map[string]models.Allocation{},
		withdrawals: map[string]models.WithdrawRequest{},
		calls:       map[string]int{},
		retryStatus: string(models.WithdrawStatusSubmitting),
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func notFound(endpoint string) error {
	return &clients.APIError{StatusCode: http.StatusNotFound, Message: "not found", Endpoint: endpoint}
}

func (f *fakeAPI) ListCheckbooks(ctx context.Context, p clients.ListCheckbooksParams) (*clients.CheckbooksPage, error) {
	f.hit("ListCheckbooks")
	page := &clients.CheckbooksPage{Page: dto.PageInfo{Page: p.Page, TotalPages: 1}}
	if p.Page > 1 {
		return page, nil
	}
	for _, cb := range f.checkbooks {
		page.Checkbooks = append(page.Checkbooks, cb)
	}
	for _, a := range f.allocations {
		page.Allocations = append(page.Allocations, a)
	}
	return page, nil
}

func (f *fakeAPI) GetCheckbook(ctx context.Context, id string) (models.Checkbook, []models.Allocation, error) {
	f.hit("GetCheckbook")
	cb, ok := f.checkbooks[id]
	if !ok {
		return models.Checkbook{}, nil, notFound("/api/checkbooks/id/:id")
	}
	var allocs []models.Allocation
	for _, a := range f.allocations {
		if a.CheckbookID == id {
			allocs = append(allocs, a)
		}
	}
	return cb, allocs, nil
}

func (f *fakeAPI) DeleteCheckbook(ctx context.Context, id string) error {
	f.hit("DeleteCheckbook")
	delete(f.checkbooks, id)
	return nil
}

func (f *fakeAPI) ListAllocations(ctx context.Context, p clients.ListAllocationsParams) (*dto.AllocationsPage, error) {
	f.hit("ListAllocations")
	page := &dto.AllocationsPage{Checkbooks: map[string]dto.CheckbookRef{}}
	for _, a := range f.allocations {
		if p.CheckbookID == "" || a.CheckbookID == p.CheckbookID {
			page.Allocations = append(page.Allocations, a)
		}
	}
	return page, nil
}

func (f *fakeAPI) GetAllocation(ctx context.Context, id string) (models.Allocation, error) {
	f.hit("GetAllocation")
	a, ok := f.allocations[id]
	if !ok {
		return models.Allocation{}, notFound("/api/allocations/:id")
	}
	return a, nil
}

func (f *fakeAPI) SubmitCommitment(ctx context.Context, req types.CommitmentSubmitRequest) (*dto.CommitmentResult, error) {
	f.hit("SubmitCommitment")
	f.lastCommitment = &req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.commitmentResult, nil
}

func (f *fakeAPI) SubmitWithdraw(ctx context.Context, req types.WithdrawSubmitRequest) (models.WithdrawRequest, error) {
	f.hit("SubmitWithdraw")
	f.lastWithdraw = &req
	if f.submitErr != nil {
		return models.WithdrawRequest{}, f.submitErr
	}
	w := models.WithdrawRequest{
		ID:                "w-new",
		WithdrawNullifier: req.Nullifier,
		AllocationIDs:     req.AllocationIDs,
		ProofStatus:       models.ProofStatusPending,
		Status:            models.WithdrawStatusCreated,
	}
	f.withdrawals[w.ID] = w
	return w, nil
}

func (f *fakeAPI) ListWithdrawRequests(ctx context.Context, p clients.ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	f.hit("ListWithdrawRequests")
	page := &dto.WithdrawRequestsPage{}
	for _, w := range f.withdrawals {
		page.Requests = append(page.Requests, w)
	}
	return page, nil
}

func (f *fakeAPI) ListBeneficiaryWithdrawRequests(ctx context.Context, p clients.ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	f.hit("ListBeneficiaryWithdrawRequests")
	return &dto.WithdrawRequestsPage{}, nil
}

func (f *fakeAPI) GetWithdrawStats(ctx context.Context) (models.WithdrawStats, error) {
	f.hit("GetWithdrawStats")
	return models.WithdrawStats{TotalRequests: int64(len(f.withdrawals)), TotalAmountWithdrawn: big.NewInt(0)}, nil
}

func (f *fakeAPI) GetWithdrawRequest(ctx context.Context, id string) (models.WithdrawRequest, error) {
	f.hit("GetWithdrawRequest")
	w, ok := f.withdrawals[id]
	if !ok {
		return models.WithdrawRequest{}, notFound("/api/my/withdraw-requests/:id")
	}
	return w, nil
}

func (f *fakeAPI) GetWithdrawRequestByNullifier(ctx context.Context, nullifier string) (models.WithdrawRequest, error) {
	f.hit("GetWithdrawRequestByNullifier")
	for _, w := range f.withdrawals {
		if w.WithdrawNullifier == nullifier {
			return w, nil
		}
	}
	return models.WithdrawRequest{}, notFound("/api/my/withdraw-requests/by-nullifier/:nullifier")
}

func (f *fakeAPI) retry(name, id string) (*dto.RetryResponse, error) {
	f.hit(name)
	resp := &dto.RetryResponse{Success: true}
	resp.Data.RequestID = id
	resp.Data.Status = f.retryStatus
	return resp, nil
}

func (f *fakeAPI) RetryWithdrawRequest(ctx context.Context, id string) (*dto.RetryResponse, error) {
	return f.retry("RetryWithdrawRequest", id)
}

func (f *fakeAPI) RetryPayout(ctx context.Context, id string) (*dto.RetryResponse, error) {
	return f.retry("RetryPayout", id)
}

func (f *fakeAPI) RetryFallback(ctx context.Context, id string) (*dto.RetryResponse, error) {
	return f.retry("RetryFallback", id)
}

func (f *fakeAPI) CancelWithdrawRequest(ctx context.Context, id string) (models.WithdrawRequest, bool, error) {
	f.hit("CancelWithdrawRequest")
	w, ok := f.withdrawals[id]
	if !ok {
		return models.WithdrawRequest{}, false, notFound("/api/my/withdraw-requests/:id")
	}
	w.Status = models.WithdrawStatusCancelled
	f.withdrawals[id] = w
	return w, true, nil
}

func (f *fakeAPI) RequestPayout(ctx context.Context, id string) error {
	f.hit("RequestPayout")
	return nil
}

func (f *fakeAPI) ClaimTimeout(ctx context.Context, id string) error {
	f.hit("ClaimTimeout")
	if id == "" {
		return fmt.Errorf("id required")
	}
	return nil
}

type recordedAction struct {
	flow, step string
	failed     bool
}

type actionRecorder struct {
	mu      sync.Mutex
	actions []recordedAction
}

func (r *actionRecorder) ObserveAction(flow, step string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, recordedAction{flow: flow, step: step, failed: err != nil})
}
