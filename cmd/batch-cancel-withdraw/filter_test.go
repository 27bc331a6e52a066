package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"enclave-sdk/internal/models"
)

func TestFilter(t *testing.T) {
	reqs := []models.WithdrawRequest{
		{ID: "w1", Status: models.WithdrawStatusVerifyFailed, ExecuteStatus: models.ExecuteStatusVerifyFailed},
		{ID: "w2", Status: models.WithdrawStatusSubmitted, ExecuteStatus: models.ExecuteStatusSubmitted},
		{ID: "w3", Status: models.WithdrawStatusProofFailed, ProofStatus: models.ProofStatusFailed},
		{ID: "w4", Status: models.WithdrawStatusCancelled, ProofStatus: models.ProofStatusFailed},
	}

	tests := []struct {
		name string
		f    filter
		want []string
	}{
		{"execute status", filter{ExecuteStatus: "verify_failed"}, []string{"w1"}},
		{"submitted is never cancellable", filter{ExecuteStatus: "submitted"}, nil},
		{"proof status skips cancelled", filter{ProofStatus: "failed"}, []string{"w3"}},
		{"main status", filter{Status: "proof_failed"}, []string{"w3"}},
		{"combined", filter{Status: "proof_failed", ExecuteStatus: "verify_failed"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range tt.f.apply(reqs) {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, filter{}.empty())
	assert.False(t, filter{Status: "x"}.empty())
}
