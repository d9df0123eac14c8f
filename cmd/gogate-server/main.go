// Command gogate-server runs a cookie-authenticated HTTP API backed by
// Postgres (roles, permissions, accounts) and Redis (authentication
// records, recovery tokens), with routes protected by a guard file.
//
// Usage:
//
//	gogate-server -config auth.yaml -guards guards.yaml -addr :8080
//
// GOGATE_DATABASE_URL and GOGATE_REDIS_ADDR override -database-url and
// -redis-addr.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/access"
	promexport "github.com/MrEthical07/goGate/metrics/export/prometheus"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/MrEthical07/goGate/store/redisstore"
	"github.com/MrEthical07/goGate/store/sqlstore"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type options struct {
	addr        string
	configPath  string
	guardsPath  string
	databaseURL string
	redisAddr   string
	redisPrefix string
	superAdmin  string
	defaultRole string
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", ":8080", "listen address")
	flag.StringVar(&opts.configPath, "config", "gogate.yaml", "authentication config file")
	flag.StringVar(&opts.guardsPath, "guards", "guards.yaml", "controller/action guard file")
	flag.StringVar(&opts.databaseURL, "database-url", "postgres://localhost/gogate?sslmode=disable", "postgres connection string")
	flag.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "redis address")
	flag.StringVar(&opts.redisPrefix, "redis-prefix", "gg", "redis key prefix")
	flag.StringVar(&opts.superAdmin, "super-admin", "root", "role that cannot be granted through the API")
	flag.StringVar(&opts.defaultRole, "default-role", "member", "role given to newly registered accounts")
	flag.Parse()

	if v := os.Getenv("GOGATE_DATABASE_URL"); v != "" {
		opts.databaseURL = v
	}
	if v := os.Getenv("GOGATE_REDIS_ADDR"); v != "" {
		opts.redisAddr = v
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, log); err != nil {
		log.WithError(err).Fatal("gogate-server stopped")
	}
}

func run(ctx context.Context, opts options, log *logrus.Logger) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	guards, err := loadGuards(opts.guardsPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", opts.databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		return err
	}

	accounts := newAccounts(db)
	if err := accounts.migrate(ctx); err != nil {
		return err
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{opts.redisAddr}})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	builder := goGate.New().
		WithConfig(cfg).
		WithLogger(log).
		WithAuthenticationProvider(redisstore.NewRecords(rdb, opts.redisPrefix)).
		WithResetTokenProvider(redisstore.NewTokens(rdb, opts.redisPrefix, cfg.Recovery.MaxAge)).
		WithUserProvider(accounts)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(goGate.NewLogSink(log.WithField("component", "audit")))
	}
	auth, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer auth.Close()

	providers := sqlstore.Providers(db)
	if opts.defaultRole != "" {
		if err := ensureRole(ctx, sqlstore.NewRoles(db), opts.defaultRole); err != nil {
			return err
		}
	}
	accessCfg := access.Config{SuperAdminRole: opts.superAdmin}

	srv := &server{
		auth:      auth,
		accounts:  accounts,
		guards:    guards,
		access:    accessCfg,
		providers: providers,
		guard:     middleware.NewGuard(auth, guards, accessCfg, providers, middleware.WithLogger(log)),
		metrics:   promexport.NewCollector(auth).Handler(),
		log:       log,

		defaultRole: opts.defaultRole,
	}

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", opts.addr).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func loadConfig(path string) (goGate.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return goGate.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return goGate.LoadConfig(f)
}

func loadGuards(path string) (*access.Guards, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open guards: %w", err)
	}
	defer f.Close()
	return access.LoadGuards(f)
}

// ensureRole creates a root-level role named name unless it exists.
func ensureRole(ctx context.Context, roles *sqlstore.Roles, name string) error {
	_, err := roles.GetRoleWithName(ctx, name)
	if !errors.Is(err, access.ErrRoleNotFound) {
		return err
	}
	return roles.Create(ctx, &access.Role{Name: name})
}
