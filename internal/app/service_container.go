package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/config"
	"enclave-sdk/internal/events"
	"enclave-sdk/internal/metrics"
	"enclave-sdk/internal/realtime"
	"enclave-sdk/internal/services"
	"enclave-sdk/internal/signer"
	"enclave-sdk/internal/store"
)

// loginMargin is how long before JWT expiry Start logs in again.
const loginMargin = 5 * time.Minute

// Options are the inputs to NewServiceContainer.
type Options struct {
	Config *config.Config
	// Signer overrides signer.private_key. Without either, flows that sign fail.
	Signer signer.Signer
	Logger logrus.FieldLogger
	// Registerer receives the SDK metrics. nil disables metrics.
	Registerer prometheus.Registerer
	// Publisher overrides the NATS connection built from nats.url.
	Publisher events.Publisher
}

// ServiceContainer wires one wallet session: API client, local store,
// action services and the realtime connection feeding the store.
type ServiceContainer struct {
	Config *config.Config
	Log    logrus.FieldLogger

	API     *clients.APIClient
	Store   *store.Store
	Signer  signer.Signer
	Metrics *metrics.Metrics

	CheckbookService       *services.CheckbookService
	CommitmentService      *services.CommitmentService
	WithdrawRequestService *services.WithdrawRequestService

	Realtime   *realtime.Client
	NATSClient *clients.NATSClient
	Relay      *events.Relay

	mu      sync.Mutex
	removes []func()
	closed  bool
}

// NewServiceContainer builds every component. Nothing touches the network
// except the optional NATS connection.
func NewServiceContainer(opts Options) (*ServiceContainer, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = cfg.NewLogger()
	}

	c := &ServiceContainer{Config: cfg, Log: log, Signer: opts.Signer}
	if opts.Registerer != nil {
		c.Metrics = metrics.New(opts.Registerer)
	}

	if err := c.initSigner(); err != nil {
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}
	c.initCoreServices()
	c.initRealtime()
	if err := c.initEventServices(opts.Publisher); err != nil {
		// the relay is optional
		log.WithError(err).Warn("[App] event relay disabled")
	}

	log.WithFields(logrus.Fields{
		"api":    cfg.API.BaseURL,
		"signer": c.Signer != nil,
		"relay":  c.Relay != nil,
	}).Info("[App] container initialized")
	return c, nil
}

func (c *ServiceContainer) initSigner() error {
	if c.Signer != nil || c.Config.Signer.PrivateKey == "" {
		return nil
	}
	s, err := signer.NewPrivateKeySigner(c.Config.Signer.PrivateKey, c.Config.Signer.ChainID)
	if err != nil {
		return err
	}
	c.Signer = s
	return nil
}

func (c *ServiceContainer) initCoreServices() {
	c.API = clients.NewAPIClient(c.Config.APIClientConfig(), c.Log)
	c.Store = store.New(c.Log)

	c.CheckbookService = services.NewCheckbookService(c.API, c.Store, c.Log)
	c.CommitmentService = services.NewCommitmentService(c.API, c.Signer, c.Store, c.Log)
	c.WithdrawRequestService = services.NewWithdrawRequestService(c.API, c.Signer, c.Store, c.Log)

	if c.Metrics != nil {
		c.API.SetObserver(c.Metrics)
		c.CommitmentService.SetObserver(c.Metrics)
		c.WithdrawRequestService.SetObserver(c.Metrics)
	}
}

func (c *ServiceContainer) initRealtime() {
	opts := c.Config.RealtimeOptions()
	opts.Token = c.API.Token
	opts.Logger = c.Log
	if c.Metrics != nil {
		opts.Observer = c.Metrics
	}
	c.Realtime = realtime.New(opts)
	c.removes = append(c.removes, c.Realtime.OnEvent(realtime.StoreSink(c.Store, c.Log)))
}

func (c *ServiceContainer) initEventServices(pub events.Publisher) error {
	if pub == nil {
		if c.Config.NATS.URL == "" {
			return nil
		}
		var obs clients.NATSStatusObserver
		if c.Metrics != nil {
			obs = c.Metrics
		}
		nc, err := clients.NewNATSClient(c.Config.NATSClientConfig(), c.Log, obs)
		if err != nil {
			return err
		}
		c.NATSClient = nc
		pub = nc
	}

	var obs events.Observer
	if c.Metrics != nil {
		obs = c.Metrics
	}
	c.Relay = events.NewRelay(pub, c.Config.NATS.SubjectPrefix, c.Log, obs)
	c.removes = append(c.removes, c.Realtime.OnEvent(c.Relay.Handle))
	return nil
}

// Authenticate installs token when given, otherwise logs in with the
// configured signer unless the current JWT is still valid.
func (c *ServiceContainer) Authenticate(ctx context.Context, token string) error {
	if token != "" {
		return c.API.SetToken(token)
	}
	if c.Signer == nil {
		return fmt.Errorf("no signer configured: set signer.private_key or ENCLAVE_PRIVATE_KEY")
	}
	return c.API.EnsureLogin(ctx, c.Signer, loginMargin)
}

// Start logs in when a signer is configured, loads the checkbooks into
// the store, then connects the realtime client and subscribes to the
// wallet's channels. A failed realtime connect is logged; the client keeps
// reconnecting in the background.
func (c *ServiceContainer) Start(ctx context.Context, pageSize int) error {
	if c.Signer != nil {
		if err := c.Authenticate(ctx, ""); err != nil {
			return err
		}
	}

	n, err := c.CheckbookService.SyncCheckbooks(ctx, pageSize)
	if err != nil {
		return err
	}
	c.Log.WithField("checkbooks", n).Info("[App] initial sync completed")

	for _, sub := range c.subscriptions(ctx) {
		if err := c.Realtime.Subscribe(sub); err != nil {
			return err
		}
	}
	if err := c.Realtime.Connect(ctx); err != nil {
		c.Log.WithError(err).Warn("[App] realtime connect failed, reconnecting in background")
	}
	return nil
}

func (c *ServiceContainer) subscriptions(ctx context.Context) []realtime.Subscription {
	var address string
	if c.Signer != nil {
		if a, err := c.Signer.Address(ctx); err == nil {
			address = a
		}
	}
	return []realtime.Subscription{
		{Channel: realtime.ChannelCheckbooks, Address: address},
		{Channel: realtime.ChannelWithdrawRequests, Address: address},
	}
}

// Close disconnects the realtime client and the relay. It is safe to call twice.
func (c *ServiceContainer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	removes := c.removes
	c.removes = nil
	c.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
	c.Realtime.Disconnect()
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	c.Log.Info("[App] container closed")
}
