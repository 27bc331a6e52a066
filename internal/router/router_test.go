package router

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/metrics"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/realtime"
	"enclave-sdk/internal/store"
)

type fakeConn struct {
	state realtime.State
}

func (f fakeConn) State() realtime.State { return f.state }
func (f fakeConn) Subscriptions() []realtime.Subscription {
	return []realtime.Subscription{{Channel: realtime.ChannelCheckbooks}}
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seeded() *store.Store {
	st := store.New(nil)
	st.Apply(
		store.UpsertCheckbook(models.Checkbook{ID: "cb-1", Status: models.CheckbookStatusWithCheckbook}),
		store.UpsertAllocation(models.Allocation{ID: "a1", CheckbookID: "cb-1", Amount: big.NewInt(5), Status: models.AllocationStatusIdle}),
		store.UpsertAllocation(models.Allocation{ID: "a2", CheckbookID: "cb-1", Seq: 1, Amount: big.NewInt(6), Status: models.AllocationStatusPending}),
	)
	return st
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveHeartbeatTimeout()

	r := SetupRouter(Deps{Store: seeded(), Realtime: fakeConn{realtime.StateConnected}, Gatherer: reg})

	w := get(t, r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"realtime":"connected"`)

	w = get(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "enclave_sdk_realtime_heartbeat_timeouts_total 1"))

	w = get(t, r, "/api/snapshot")
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Version uint64
		Counts  store.Counts
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, store.Counts{Checkbooks: 1, Allocations: 2}, snap.Counts)

	w = get(t, r, "/api/allocations?status=pending")
	require.Equal(t, http.StatusOK, w.Code)
	var allocs struct{ Data []models.Allocation }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &allocs))
	require.Len(t, allocs.Data, 1)
	assert.Equal(t, "a2", allocs.Data[0].ID)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/allocations?status=weird").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/api/checkbooks/cb-1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/checkbooks/nope").Code)
}

func TestSetupRouter_HealthAndAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(Deps{Store: store.New(nil), Realtime: fakeConn{realtime.StateError}})

	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/health").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/metrics").Code, "no gatherer, no route")

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
