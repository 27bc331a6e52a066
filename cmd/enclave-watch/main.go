// Command enclave-watch keeps a wallet's checkbooks, allocations and
// withdrawals in sync over the realtime channel, optionally relays every
// change to NATS, and serves the state on a local status API.
//
// With -follow it instead consumes a relay run by another watcher.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/app"
	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/config"
	"enclave-sdk/internal/events"
	"enclave-sdk/internal/realtime"
	"enclave-sdk/internal/router"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (default config.local.yaml or config.yaml)")
		listen     = flag.String("listen", "", "Status API address, e.g. 127.0.0.1:9464 (overrides metrics.listen)")
		allowIPs   = flag.String("allow-ips", "", "Comma-separated IPs/CIDRs allowed on /api besides localhost")
		pageSize   = flag.Int("page-size", 50, "Page size for the initial checkbook sync")
		prices     = flag.String("prices", "", "Comma-separated asset ids to subscribe to price updates for")
		follow     = flag.Bool("follow", false, "Consume the NATS relay instead of connecting to the backend")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *follow {
		if err := runFollower(ctx, cfg, log); err != nil {
			log.Fatalf("Follower stopped: %v", err)
		}
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	container, err := app.NewServiceContainer(app.Options{Config: cfg, Logger: log, Registerer: reg})
	if err != nil {
		log.Fatalf("Failed to initialize SDK: %v", err)
	}
	defer container.Close()

	container.Realtime.OnStateChange(func(from, to realtime.State) {
		log.WithFields(logrus.Fields{"from": from, "to": to}).Info("[Watch] realtime state changed")
	})
	container.Realtime.OnEvent(func(ev realtime.Event) {
		switch ev.Type {
		case realtime.EventPong, realtime.EventAck:
			return
		}
		log.WithFields(logrus.Fields{"event": ev.Type, "action": ev.Action, "id": ev.ID}).Info("[Watch] event")
	})

	if ids := splitList(*prices); len(ids) > 0 {
		if err := container.Realtime.Subscribe(realtime.Subscription{Channel: realtime.ChannelPrices, AssetIDs: ids}); err != nil {
			log.Fatalf("Invalid price subscription: %v", err)
		}
	}

	if err := container.Start(ctx, *pageSize); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	addr := *listen
	if addr == "" {
		addr = cfg.Metrics.Listen
	}
	var srv *http.Server
	if addr != "" {
		srv = &http.Server{
			Addr: addr,
			Handler: router.SetupRouter(router.Deps{
				Store:      container.Store,
				Realtime:   container.Realtime,
				Gatherer:   reg,
				AllowedIPs: splitList(*allowIPs),
				Logger:     log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.WithField("addr", addr).Info("[Watch] status API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("[Watch] status API stopped")
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info("[Watch] shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// runFollower prints every envelope relayed under the configured prefix.
func runFollower(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.NATS.URL == "" {
		return errors.New("nats.url (or ENCLAVE_NATS_URL) is required with -follow")
	}
	nc, err := clients.NewNATSClient(cfg.NATSClientConfig(), log, nil)
	if err != nil {
		return err
	}
	defer nc.Close()

	sub, err := events.Listen(nc, cfg.NATS.SubjectPrefix, log, func(env events.Envelope) {
		log.WithFields(logrus.Fields{
			"event":  env.Type,
			"action": env.Action,
			"id":     env.ID,
			"status": env.Status,
			"time":   env.Time,
		}).Info("[Follow] event")
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
