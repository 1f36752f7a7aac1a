package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	auditsvc "medgate/internal/audit"
	authhandler "medgate/internal/auth/handler"
	"medgate/internal/auth/secrets"
	authservice "medgate/internal/auth/service"
	"medgate/internal/auth/token"
	"medgate/internal/masking"
	"medgate/internal/mediator"
	mediatorhandler "medgate/internal/mediator/handler"
	patientservice "medgate/internal/patient/service"
	"medgate/internal/platform/config"
	"medgate/internal/platform/httpserver"
	"medgate/internal/platform/logger"
	"medgate/internal/platform/metrics"
	httptransport "medgate/internal/transport/http"
	"medgate/pkg/platform/audit/publishers/stream"
)

// revocationSweepInterval is how often expired revocation entries are purged.
const revocationSweepInterval = 10 * time.Minute

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if err := authservice.SeedDefaultAccounts(ctx, st.users, log); err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	auditOpts := []auditsvc.Option{auditsvc.WithLogger(log), auditsvc.WithMetrics(m)}
	if len(cfg.Kafka.Brokers) > 0 {
		mirror, sink, err := openMirror(ctx, cfg.Kafka, log, m)
		if err != nil {
			return err
		}
		defer sink.Close()
		st.health["kafka"] = sink.Ping
		st.health["audit_mirror"] = mirror.Health
		auditOpts = append(auditOpts, auditsvc.WithMirror(mirror))
		g.Go(func() error { return mirror.Run(gctx) })
	}
	auditLog := auditsvc.New(st.audit, auditOpts...)

	signingKey, err := sessionKey(cfg, log)
	if err != nil {
		return err
	}
	tokens, err := token.New(signingKey, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("session tokens: %w", err)
	}
	auth, err := authservice.New(st.users, tokens, st.trl, auditLog,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithFailureAuditing(cfg.AuditAuthFailures),
	)
	if err != nil {
		return err
	}

	if cfg.PseudonymKeyDev {
		log.Warn("PSEUDONYM_KEY not set; using the development key")
	}
	masker, err := masking.NewMasker(cfg.PseudonymKey)
	if err != nil {
		return fmt.Errorf("masking: %w", err)
	}
	patients := patientservice.New(st.patients, masker,
		patientservice.WithLogger(log),
		patientservice.WithRederiveOnUpdate(cfg.RederiveMasksOnUpdate),
	)
	med := mediator.New(patients, auditLog,
		mediator.WithLogger(log),
		mediator.WithMetrics(m),
		mediator.WithStoreTimeout(cfg.StoreTimeout),
		mediator.WithDenialAuditing(cfg.AuditDenials),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  m,
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
		Sessions: auth,
		Handlers: []httptransport.RouteRegistrar{
			authhandler.New(auth, log),
			mediatorhandler.New(med, log),
		},
		Health: st.health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting medgate", "addr", cfg.Addr, "storage", st.kind)
		return httpserver.Serve(gctx, srv)
	})
	g.Go(func() error {
		sweepRevocations(gctx, st.trl, log)
		return nil
	})
	return g.Wait()
}

func openMirror(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger, m *metrics.Metrics) (*stream.Publisher, *stream.KafkaSink, error) {
	sink, err := stream.NewKafkaSink(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka audit mirror: %w", err)
	}
	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sink.EnsureTopic(topicCtx, 1, 1); err != nil {
		log.Warn("could not ensure audit topic; mirror will retry on publish", "topic", cfg.AuditTopic, "error", err)
	}
	log.Info("audit mirror enabled", "brokers", cfg.Brokers, "topic", cfg.AuditTopic)
	return stream.New(sink, stream.WithLogger(log), stream.WithMetrics(m)), sink, nil
}

// sessionKey returns the configured signing key, or a random one when none is
// set. A random key means every restart ends every session.
func sessionKey(cfg config.Server, log *slog.Logger) ([]byte, error) {
	if cfg.JWTSigningKey != "" {
		return []byte(cfg.JWTSigningKey), nil
	}
	key, err := secrets.Generate()
	if err != nil {
		return nil, err
	}
	log.Warn("JWT_SIGNING_KEY not set; sessions will not survive a restart")
	return []byte(key), nil
}

func sweepRevocations(ctx context.Context, trl revocationList, log *slog.Logger) {
	ticker := time.NewTicker(revocationSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := trl.DeleteExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "revocation sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.DebugContext(ctx, "revocation sweep", "removed", n)
			}
		}
	}
}
