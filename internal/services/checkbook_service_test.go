package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/store"
)

func TestCheckbookService_SyncAndDelete(t *testing.T) {
	api := newFakeAPI()
	api.checkbooks["cb1"] = testCheckbook("cb1", 7, models.CheckbookStatusWithCheckbook)
	api.checkbooks["cb2"] = testCheckbook("cb2", 9, models.CheckbookStatusUnsigned)
	api.allocations["a1"] = models.Allocation{ID: "a1", CheckbookID: "cb1", Amount: wei("1"), Status: models.AllocationStatusIdle}
	st := store.New(nil)
	svc := NewCheckbookService(api, st, nil)

	n, err := svc.SyncCheckbooks(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, api.count("ListCheckbooks"), "single page stops the walk")

	snap := st.Snapshot()
	assert.Len(t, snap.Checkbooks(), 2)
	assert.Len(t, snap.AllocationsByCheckbook("cb1"), 1)

	require.NoError(t, svc.DeleteCheckbook(context.Background(), "cb2"))
	_, ok := st.Snapshot().Checkbook("cb2")
	assert.False(t, ok)
}

func TestCheckbookService_Reads(t *testing.T) {
	api := newFakeAPI()
	api.checkbooks["cb1"] = testCheckbook("cb1", 7, models.CheckbookStatusWithCheckbook)
	api.allocations["a1"] = models.Allocation{ID: "a1", CheckbookID: "cb1", Amount: wei("1"), Status: models.AllocationStatusIdle}
	api.allocations["a2"] = models.Allocation{ID: "a2", CheckbookID: "cb9", Amount: wei("2"), Status: models.AllocationStatusUsed}
	st := store.New(nil)
	svc := NewCheckbookService(api, st, nil)

	cb, allocs, err := svc.GetCheckbook(context.Background(), "cb1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), *cb.LocalDepositID)
	assert.Len(t, allocs, 1)

	page, err := svc.ListAllocations(context.Background(), clients.ListAllocationsParams{CheckbookID: "cb9"})
	require.NoError(t, err)
	require.Len(t, page.Allocations, 1)
	_, ok := st.Snapshot().Allocation("a2")
	assert.True(t, ok)

	_, err = svc.GetAllocation(context.Background(), "missing")
	apiErr, ok := clients.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
}
