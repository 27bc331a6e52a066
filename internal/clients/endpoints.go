package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/types"
)

// MaxAllocationsPageSize is the largest limit /api/allocations accepts.
const MaxAllocationsPageSize = 100

// ==================== Checkbooks ====================

// ListCheckbooksParams filters GET /api/checkbooks.
type ListCheckbooksParams struct {
	Page           int
	Size           int
	IncludeDeleted bool
}

// CheckbooksPage is one page of checkbooks with their nested allocations.
type CheckbooksPage struct {
	Checkbooks  []models.Checkbook
	Allocations []models.Allocation
	Page        dto.PageInfo
}

func (c *APIClient) ListCheckbooks(ctx context.Context, p ListCheckbooksParams) (*CheckbooksPage, error) {
	q := url.Values{}
	setPositive(q, "page", p.Page)
	setPositive(q, "size", p.Size)
	if p.IncludeDeleted {
		q.Set("deleted", "true")
	}

	var env dto.Envelope[[]dto.CheckbookWire]
	if err := c.do(ctx, request{method: http.MethodGet, endpoint: "/api/checkbooks", path: "/api/checkbooks", query: q}, &env); err != nil {
		return nil, err
	}
	out := &CheckbooksPage{Page: env.Pagination.Info(len(env.Data))}
	for _, w := range env.Data {
		cb, allocs, err := dto.ToCheckbook(w)
		if err != nil {
			return nil, err
		}
		out.Checkbooks = append(out.Checkbooks, cb)
		out.Allocations = append(out.Allocations, allocs...)
	}
	return out, nil
}

// GetCheckbook returns a checkbook and its allocations.
func (c *APIClient) GetCheckbook(ctx context.Context, id string) (models.Checkbook, []models.Allocation, error) {
	if err := requireID("get_checkbook", id); err != nil {
		return models.Checkbook{}, nil, err
	}
	var env dto.Envelope[dto.CheckbookDetailWire]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/api/checkbooks/id/:id",
		path:     "/api/checkbooks/id/" + url.PathEscape(id),
	}, &env)
	if err != nil {
		return models.Checkbook{}, nil, err
	}
	return dto.ToCheckbookDetail(env.Data)
}

// DeleteCheckbook removes a fully used checkbook.
func (c *APIClient) DeleteCheckbook(ctx context.Context, id string) error {
	if err := requireID("delete_checkbook", id); err != nil {
		return err
	}
	return c.do(ctx, request{
		method:   http.MethodDelete,
		endpoint: "/api/checkbooks/:id",
		path:     "/api/checkbooks/" + url.PathEscape(id),
	}, nil)
}

// ==================== Allocations ====================

// ListAllocationsParams filters GET /api/allocations.
type ListAllocationsParams struct {
	CheckbookID string
	TokenKeys   []string
	Status      models.AllocationStatus
	Page        int
	Limit       int // capped at MaxAllocationsPageSize
}

func (c *APIClient) ListAllocations(ctx context.Context, p ListAllocationsParams) (*dto.AllocationsPage, error) {
	q := url.Values{}
	if p.CheckbookID != "" {
		q.Set("checkbookId", p.CheckbookID)
	}
	if len(p.TokenKeys) > 0 {
		q.Set("tokenKeys", strings.Join(p.TokenKeys, ","))
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.Limit > MaxAllocationsPageSize {
		p.Limit = MaxAllocationsPageSize
	}
	setPositive(q, "page", p.Page)
	setPositive(q, "limit", p.Limit)

	var env dto.Envelope[[]dto.AllocationWire]
	if err := c.do(ctx, request{method: http.MethodGet, endpoint: "/api/allocations", path: "/api/allocations", query: q}, &env); err != nil {
		return nil, err
	}
	page, err := dto.ToAllocationsPage(env.Data, env.Pagination)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAllocation returns one allocation.
func (c *APIClient) GetAllocation(ctx context.Context, id string) (models.Allocation, error) {
	if err := requireID("get_allocation", id); err != nil {
		return models.Allocation{}, err
	}
	var env dto.Envelope[struct {
		Allocation dto.AllocationWire `json:"allocation"`
	}]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/api/allocations/:id",
		path:     "/api/allocations/" + url.PathEscape(id),
	}, &env)
	if err != nil {
		return models.Allocation{}, err
	}
	return dto.ToAllocation(env.Data.Allocation, nil)
}

// ==================== Commitments ====================

// SubmitCommitment posts a signed commitment. The request never carries a
// locally computed commitment; the backend derives its own.
func (c *APIClient) SubmitCommitment(ctx context.Context, req types.CommitmentSubmitRequest) (*dto.CommitmentResult, error) {
	var resp dto.CommitmentSubmitResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/commitments/submit",
		path:     "/api/commitments/submit",
		body:     req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return nil, sdkerr.New(sdkerr.KindTransport, "submit_commitment", fmt.Errorf("commitment rejected: %s", msg))
	}
	return dto.ToCommitmentResult(resp)
}

// ==================== Withdraw requests ====================

// SubmitWithdraw posts a signed withdrawal.
func (c *APIClient) SubmitWithdraw(ctx context.Context, req types.WithdrawSubmitRequest) (models.WithdrawRequest, error) {
	var env dto.Envelope[dto.WithdrawRequestWire]
	err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/withdraws/submit",
		path:     "/api/withdraws/submit",
		body:     req,
	}, &env)
	if err != nil {
		return models.WithdrawRequest{}, err
	}
	return dto.ToWithdrawRequest(env.Data)
}

// ListWithdrawParams filters the withdraw request lists.
type ListWithdrawParams struct {
	Page     int
	PageSize int
	Status   string
}

func (p ListWithdrawParams) query() url.Values {
	q := url.Values{}
	setPositive(q, "page", p.Page)
	setPositive(q, "page_size", p.PageSize)
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}

// ListWithdrawRequests lists the user's withdraw requests.
func (c *APIClient) ListWithdrawRequests(ctx context.Context, p ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	return c.listWithdraws(ctx, "/api/my/withdraw-requests", p)
}

// ListBeneficiaryWithdrawRequests lists requests paying out to the user.
func (c *APIClient) ListBeneficiaryWithdrawRequests(ctx context.Context, p ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	return c.listWithdraws(ctx, "/api/my/beneficiary-withdraw-requests", p)
}

func (c *APIClient) listWithdraws(ctx context.Context, path string, p ListWithdrawParams) (*dto.WithdrawRequestsPage, error) {
	var env dto.Envelope[[]dto.WithdrawRequestWire]
	if err := c.do(ctx, request{method: http.MethodGet, endpoint: path, path: path, query: p.query()}, &env); err != nil {
		return nil, err
	}
	page, err := dto.ToWithdrawRequestsPage(env.Data, env.Pagination)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetWithdrawStats returns the user's withdrawal aggregate.
func (c *APIClient) GetWithdrawStats(ctx context.Context) (models.WithdrawStats, error) {
	var env dto.Envelope[dto.WithdrawStatsWire]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/api/my/withdraw-requests/stats",
		path:     "/api/my/withdraw-requests/stats",
	}, &env)
	if err != nil {
		return models.WithdrawStats{}, err
	}
	return dto.ToWithdrawStats(env.Data), nil
}

func (c *APIClient) GetWithdrawRequest(ctx context.Context, id string) (models.WithdrawRequest, error) {
	if err := requireID("get_withdraw_request", id); err != nil {
		return models.WithdrawRequest{}, err
	}
	return c.getWithdraw(ctx, "/api/my/withdraw-requests/:id", "/api/my/withdraw-requests/"+url.PathEscape(id))
}

func (c *APIClient) GetWithdrawRequestByNullifier(ctx context.Context, nullifier string) (models.WithdrawRequest, error) {
	if err := requireID("get_withdraw_by_nullifier", nullifier); err != nil {
		return models.WithdrawRequest{}, err
	}
	return c.getWithdraw(ctx, "/api/my/withdraw-requests/by-nullifier/:nullifier",
		"/api/my/withdraw-requests/by-nullifier/"+url.PathEscape(nullifier))
}

func (c *APIClient) getWithdraw(ctx context.Context, endpoint, path string) (models.WithdrawRequest, error) {
	var env dto.Envelope[dto.WithdrawRequestWire]
	if err := c.do(ctx, request{method: http.MethodGet, endpoint: endpoint, path: path}, &env); err != nil {
		return models.WithdrawRequest{}, err
	}
	return dto.ToWithdrawRequest(env.Data)
}

// RetryWithdrawRequest re-submits execution after submit_failed.
func (c *APIClient) RetryWithdrawRequest(ctx context.Context, id string) (*dto.RetryResponse, error) {
	return c.retry(ctx, id, "retry")
}

// RetryPayout re-runs a failed payout.
func (c *APIClient) RetryPayout(ctx context.Context, id string) (*dto.RetryResponse, error) {
	return c.retry(ctx, id, "retry-payout")
}

// RetryFallback re-runs the fallback transfer after a failed hook.
func (c *APIClient) RetryFallback(ctx context.Context, id string) (*dto.RetryResponse, error) {
	return c.retry(ctx, id, "retry-fallback")
}

func (c *APIClient) retry(ctx context.Context, id, action string) (*dto.RetryResponse, error) {
	if err := requireID(action, id); err != nil {
		return nil, err
	}
	var resp dto.RetryResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/my/withdraw-requests/:id/" + action,
		path:     "/api/my/withdraw-requests/" + url.PathEscape(id) + "/" + action,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelWithdrawRequest cancels a pending or failed request. The backend
// returns the updated request, or only its id when a completed request was
// deleted; in that case ok is false.
func (c *APIClient) CancelWithdrawRequest(ctx context.Context, id string) (updated models.WithdrawRequest, ok bool, err error) {
	if err := requireID("cancel_withdraw_request", id); err != nil {
		return models.WithdrawRequest{}, false, err
	}
	var env dto.Envelope[json.RawMessage]
	err = c.do(ctx, request{
		method:   http.MethodDelete,
		endpoint: "/api/my/withdraw-requests/:id",
		path:     "/api/my/withdraw-requests/" + url.PathEscape(id),
	}, &env)
	if err != nil {
		return models.WithdrawRequest{}, false, err
	}
	var w dto.WithdrawRequestWire
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &w) != nil || w.ID == "" {
		return models.WithdrawRequest{}, false, nil
	}
	r, err := dto.ToWithdrawRequest(w)
	if err != nil {
		return models.WithdrawRequest{}, false, err
	}
	return r, true, nil
}

// RequestPayout asks the backend to execute the payout of a request the user benefits from.
func (c *APIClient) RequestPayout(ctx context.Context, id string) error {
	return c.beneficiaryAction(ctx, id, "request-payout")
}

// ClaimTimeout claims a payout whose deadline passed.
func (c *APIClient) ClaimTimeout(ctx context.Context, id string) error {
	return c.beneficiaryAction(ctx, id, "claim-timeout")
}

func (c *APIClient) beneficiaryAction(ctx context.Context, id, action string) error {
	if err := requireID(action, id); err != nil {
		return err
	}
	var resp dto.ActionResponse
	return c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/my/beneficiary-withdraw-requests/:id/" + action,
		path:     "/api/my/beneficiary-withdraw-requests/" + url.PathEscape(id) + "/" + action,
	}, &resp)
}

// ==================== Prices ====================

// GetPrices returns quotes for the given token symbols; no symbols means all.
func (c *APIClient) GetPrices(ctx context.Context, symbols []string) ([]models.Price, error) {
	q := url.Values{}
	if len(symbols) > 0 {
		q.Set("symbols", strings.Join(symbols, ","))
	}
	var resp dto.PricesResponse
	if err := c.do(ctx, request{method: http.MethodGet, endpoint: "/api/prices", path: "/api/prices", query: q}, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Price, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		out = append(out, dto.ToPrice(p))
	}
	return out, nil
}

func setPositive(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func requireID(step, id string) error {
	if strings.TrimSpace(id) == "" {
		return sdkerr.Validation(step, "id is required")
	}
	return nil
}
