package dto

import (
	"encoding/json"
	"fmt"
)

// ==================== Response envelopes ====================

// Envelope is the common {success, data, pagination} response shape.
type Envelope[T any] struct {
	Success    bool            `json:"success"`
	Data       T               `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Pagination normalizes the three pagination shapes the list endpoints use:
// {page, page_size, total, total_pages}, {page, size, total, pages} and
// {page, limit, total, pages}.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size,omitempty"`
	Size       int   `json:"size,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages,omitempty"`
	Pages      int   `json:"pages,omitempty"`
}

// PerPage returns whichever page-size field was set.
func (p *Pagination) PerPage() int {
	if p == nil {
		return 0
	}
	switch {
	case p.PageSize > 0:
		return p.PageSize
	case p.Size > 0:
		return p.Size
	default:
		return p.Limit
	}
}

// PageCount returns the number of pages, deriving it from total when absent.
func (p *Pagination) PageCount() int {
	if p == nil {
		return 0
	}
	if p.TotalPages > 0 {
		return p.TotalPages
	}
	if p.Pages > 0 {
		return p.Pages
	}
	if per := p.PerPage(); per > 0 {
		return int((p.Total + int64(per) - 1) / int64(per))
	}
	return 0
}

// HasMore reports whether a page after the current one exists.
func (p *Pagination) HasMore() bool {
	return p != nil && p.Page < p.PageCount()
}

// PageInfo is the pagination handed to SDK callers.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
}

// Info converts to PageInfo. A nil pagination yields a single page of n items.
func (p *Pagination) Info(n int) PageInfo {
	if p == nil {
		return PageInfo{Page: 1, PerPage: n, Total: int64(n), TotalPages: 1}
	}
	return PageInfo{Page: p.Page, PerPage: p.PerPage(), Total: p.Total, TotalPages: p.PageCount()}
}

// ErrorBody is the {"error": ..., "details": ...} body returned on failures.
// Some handlers use "message" and a machine code instead.
type ErrorBody struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Text returns the most specific human-readable message in the body.
func (e ErrorBody) Text() string {
	switch {
	case e.Error != "" && e.Message != "" && e.Error != e.Message:
		return fmt.Sprintf("%s: %s", e.Error, e.Message)
	case e.Error != "":
		return e.Error
	default:
		return e.Message
	}
}

// ==================== Retry DTOs ====================

// RetryResponse is returned by the retry, retry-payout and retry-fallback endpoints.
type RetryResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	} `json:"data"`
}

// ActionResponse is the generic {success, message} body of delete and beneficiary actions.
type ActionResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
