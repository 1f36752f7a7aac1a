package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	auditsvc "medgate/internal/audit"
	"medgate/internal/auth/models"
	"medgate/internal/auth/store/revocation"
	userstore "medgate/internal/auth/store/user"
	patientservice "medgate/internal/patient/service"
	patientstore "medgate/internal/patient/store"
	"medgate/internal/platform/config"
	"medgate/internal/platform/postgres"
	"medgate/internal/platform/redis"
	httptransport "medgate/internal/transport/http"
	auditmemory "medgate/pkg/platform/audit/store/memory"
	auditpostgres "medgate/pkg/platform/audit/store/postgres"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error)
}

type revocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context) (int, error)
}

type stores struct {
	kind     string
	users    userStore
	patients patientservice.Store
	audit    auditsvc.Store
	trl      revocationList
	health   map[string]httptransport.HealthCheck
	closers  []func() error
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openStores picks Postgres when DATABASE_URL is set and in-memory stores
// otherwise. The revocation list prefers Redis, then Postgres, then memory.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	st := &stores{health: map[string]httptransport.HealthCheck{}}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			st.close()
			return nil, err
		}
		st.kind = "postgres"
		st.users = userstore.NewPostgres(db)
		st.patients = patientstore.NewPostgres(db)
		st.audit = auditpostgres.New(db)
		st.health["postgres"] = db.PingContext
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores, data is lost on exit")
		st.kind = "memory"
		st.users = userstore.New()
		st.patients = patientstore.NewInMemoryStore(patientstore.WithTxTimeout(cfg.StoreTimeout))
		st.audit = auditmemory.NewInMemoryStore()
	}

	rc, err := redis.New(ctx, cfg.Redis, log)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	switch {
	case rc != nil:
		st.closers = append(st.closers, rc.Close)
		st.health["redis"] = rc.Health
		st.trl = revocation.NewRedisTRL(rc.Client)
	case db != nil:
		st.trl = revocation.NewPostgresTRL(db)
	default:
		st.trl = revocation.NewInMemoryTRL(nil)
	}
	return st, nil
}
