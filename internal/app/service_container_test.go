package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/config"
	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/realtime"
)

const (
	testKey   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	ownerData = "0x000000000000000000000000f39fd6e51aad88f6f4ce6ab8827279cfffb92266"
)

func checkbookJSON(status string) gin.H {
	return gin.H{
		"id":               "cb-1",
		"slip44_chain_id":  714,
		"local_deposit_id": "7",
		"user_address":     gin.H{"slip44_chain_id": 714, "data": ownerData},
		"token_key":        "USDT",
		"amount":           "1000",
		"status":           status,
	}
}

type backend struct {
	srv *httptest.Server

	mu   sync.Mutex
	subs []dto.SubscriptionMessage
	ws   *websocket.Conn
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := &backend{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	r := gin.New()
	r.GET("/api/auth/nonce", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "nonce": "n1", "message": "Sign in: n1"})
	})
	r.POST("/api/auth/login", func(c *gin.Context) {
		claims := dto.JWTClaims{
			UserAddress:      testAddr,
			UniversalAddress: "714:" + ownerData,
			ChainID:          714,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	})
	r.GET("/api/checkbooks", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"data":       []gin.H{checkbookJSON("unsigned")},
			"pagination": gin.H{"page": 1, "size": 50, "total": 1, "pages": 1},
		})
	})
	r.GET("/api/ws", func(c *gin.Context) {
		if c.Query("token") == "" {
			c.Status(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.ws = conn
		b.mu.Unlock()
		for {
			var msg dto.SubscriptionMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Action != "" {
				b.mu.Lock()
				b.subs = append(b.subs, msg)
				b.mu.Unlock()
			}
		}
	})
	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) subscriptions() []dto.SubscriptionMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dto.SubscriptionMessage(nil), b.subs...)
}

func (b *backend) push(t *testing.T, v interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NoError(t, b.ws.WriteJSON(v))
}

type memPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *memPublisher) Publish(subject string, _ []byte) error {
	p.mu.Lock()
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()
	return nil
}

func (p *memPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

func TestServiceContainer_StartSyncsAndFollowsPushes(t *testing.T) {
	b := newBackend(t)
	cfg := config.Default()
	cfg.API.BaseURL = b.srv.URL
	cfg.Signer.PrivateKey = testKey
	cfg.NATS.SubjectPrefix = "wallet"

	reg := prometheus.NewRegistry()
	pub := &memPublisher{}
	c, err := NewServiceContainer(Options{Config: cfg, Registerer: reg, Publisher: pub})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.NotNil(t, c.Signer)
	require.NotNil(t, c.Relay)

	require.NoError(t, c.Start(context.Background(), 50))
	assert.NotEmpty(t, c.API.Token())

	cb, ok := c.Store.Snapshot().Checkbook("cb-1")
	require.True(t, ok)
	assert.Equal(t, models.CheckbookStatusUnsigned, cb.Status)

	require.Eventually(t, func() bool { return c.Realtime.State() == realtime.StateConnected }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(b.subscriptions()) == 2 }, 2*time.Second, 10*time.Millisecond)
	subs := b.subscriptions()
	assert.Equal(t, "checkbooks", subs[0].Type)
	assert.Equal(t, "withdraw_requests", subs[1].Type)

	b.push(t, gin.H{"type": "checkbook_update", "data": gin.H{"action": "updated", "checkbook": checkbookJSON("ready_for_commitment")}})
	require.Eventually(t, func() bool {
		cb, _ := c.Store.Snapshot().Checkbook("cb-1")
		return cb.Status == models.CheckbookStatusReadyForCommitment
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "wallet.checkbook", pub.published()[0])

	assert.Equal(t, float64(realtime.StateConnected), testutil.ToFloat64(c.Metrics.RealtimeState))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.APIRequests.WithLabelValues("GET", "/api/checkbooks", "200")))

	c.Close()
	c.Close()
	assert.Equal(t, realtime.StateDisconnected, c.Realtime.State())
}

func TestServiceContainer_Defaults(t *testing.T) {
	c, err := NewServiceContainer(Options{})
	require.NoError(t, err)
	assert.Nil(t, c.Signer)
	assert.Nil(t, c.Metrics)
	assert.Nil(t, c.Relay, "no nats url, no relay")
	assert.Error(t, c.Authenticate(context.Background(), ""), "no signer")
	assert.Error(t, c.Authenticate(context.Background(), "not-a-jwt"))

	cfg := config.Default()
	cfg.Signer.PrivateKey = "not-hex"
	_, err = NewServiceContainer(Options{Config: cfg})
	assert.Error(t, err)
}

func TestServiceContainer_NATSFailureDisablesRelay(t *testing.T) {
	cfg := config.Default()
	cfg.NATS.URL = "nats://127.0.0.1:1"
	cfg.NATS.Timeout = 1
	c, err := NewServiceContainer(Options{Config: cfg})
	require.NoError(t, err)
	assert.Nil(t, c.Relay)
	assert.Nil(t, c.NATSClient)
}
