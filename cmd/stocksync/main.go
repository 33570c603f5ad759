package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skeo/stocksync/internal/application/syncpass"
	"github.com/skeo/stocksync/internal/domain/stock"
	"github.com/skeo/stocksync/internal/infrastructure/channels"
	"github.com/skeo/stocksync/internal/infrastructure/config"
	"github.com/skeo/stocksync/internal/infrastructure/logger"
	"github.com/skeo/stocksync/internal/infrastructure/persistence"
	"github.com/skeo/stocksync/internal/interfaces/http/handler"
	"github.com/skeo/stocksync/internal/interfaces/http/middleware"
	"github.com/skeo/stocksync/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

const usageText = `Usage: stocksync <command> [flags]

Commands:
  sync      run one reconciliation pass against all enabled channels
  report    print the discrepancy report from the local cache
  cleanup   drop cached observations for products the canonical channel no longer lists
  auth      manage marketplace authorization (url, exchange, refresh)
  serve     run the diagnostics HTTP server
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Print(usageText)
		return
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stocksync: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "sync":
		err = a.runSync(ctx, args)
	case "report":
		err = a.runReport(ctx, args)
	case "cleanup":
		err = a.runCleanup(ctx, args)
	case "auth":
		err = a.runAuth(ctx, args)
	case "serve":
		err = a.runServe(args)
	default:
		fmt.Fprintf(os.Stderr, "stocksync: unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}
	if err != nil {
		a.log.Error("command failed", zap.String("command", cmd), zap.Error(err))
		fmt.Fprintf(os.Stderr, "stocksync %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Assembly
// ---------------------------------------------------------------------------

type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *persistence.Database

	policy     *stock.PropagationPolicy
	controller *syncpass.RunController
	report     *syncpass.ReportService
	cleanup    *syncpass.CleanupService
	auth       *syncpass.AuthService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Store, logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate snapshot store: %w", err)
	}

	snapshots := persistence.NewGormSnapshotRepository(db.DB)
	passes := persistence.NewGormPassRepository(db.DB)
	quirks := persistence.NewGormQuirkRepository(db.DB)
	creds := persistence.NewGormCredentialStore(db.DB)

	registry, err := channels.BuildRegistry(cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("build channel registry: %w", err)
	}
	policy, err := cfg.BuildPolicy()
	if err != nil {
		return nil, fmt.Errorf("build propagation policy: %w", err)
	}

	controller := syncpass.NewRunController(registry, snapshots, passes, quirks, policy, log, syncpass.ControllerOptions{
		FetchConcurrency: cfg.Sync.FetchConcurrency,
		CallTimeout:      cfg.Sync.CallTimeout,
		MaxFetchRetries:  uint64(cfg.Sync.MaxFetchRetries),
	})

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		policy:     policy,
		controller: controller,
		report:     syncpass.NewReportService(snapshots, quirks, passes, policy, log),
		cleanup:    syncpass.NewCleanupService(registry, snapshots, cfg.DefaultChannel(), log),
		auth:       syncpass.NewAuthService(registry),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("snapshot store close failed", zap.Error(err))
	}
	_ = a.log.Sync()
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (a *app) runSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	readOnly := fs.Bool("read-only", a.cfg.Sync.ReadOnly, "reconcile and report without pushing any update")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := a.controller.Run(ctx, *readOnly)
	if err != nil {
		return err
	}

	pass := report.Pass
	fmt.Printf("pass %s finished in state %s\n", pass.ID, pass.State)
	fmt.Printf("  observations: %d across %d products\n", pass.ObservationCount, pass.ProductCount)
	fmt.Printf("  discrepancies: %d  conflicts: %d  anomalies: %d\n",
		pass.DiscrepancyCount, pass.ConflictCount, pass.AnomalyCount)
	if *readOnly {
		fmt.Printf("  planned actions: %d (dry run, nothing pushed)\n", pass.ActionCount)
	} else {
		fmt.Printf("  corrections: %d applied, %d rejected of %d planned\n",
			pass.CorrectedCount, pass.RejectedCount, pass.ActionCount)
	}
	for _, ch := range pass.SkippedAuth {
		fmt.Printf("  skipped %s: authorization expired, run 'stocksync auth'\n", ch)
	}
	for _, ch := range pass.SkippedTransient {
		fmt.Printf("  skipped %s: transient failure, cached observations used\n", ch)
	}
	if pass.ErrorMessage != "" {
		fmt.Printf("  error: %s\n", pass.ErrorMessage)
	}
	return nil
}

func (a *app) runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := a.report.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("snapshot cache: %d observations\n", len(report.Entries))
	fmt.Printf("canonical channel: %s\n\n", a.policy.Canonical())

	if len(report.Discrepancies) == 0 {
		fmt.Println("all channels agree")
	}
	for _, d := range report.Discrepancies {
		fmt.Printf("%s:\n", d.Key)
		for ch, q := range d.Quantities {
			marker := " "
			if ch == a.policy.Canonical() {
				marker = "*"
			}
			fmt.Printf("  %s %-12s %s\n", marker, ch, q)
		}
	}
	if len(report.Actions) > 0 {
		fmt.Printf("\nplanned corrections: %d\n", len(report.Actions))
		for _, act := range report.Actions {
			fmt.Printf("  %s: set %s to %d (from %s)\n", act.Key, act.Target, act.DesiredQuantity, act.Source)
		}
	}
	for _, c := range report.Conflicts {
		fmt.Printf("\nconflict on %s -> %s: %d sources disagree, no push planned\n",
			c.Key, c.Target, len(c.Candidates))
	}
	if len(report.Quirks) > 0 {
		fmt.Printf("\nflagged quirks: %d\n", len(report.Quirks))
		for _, q := range report.Quirks {
			fmt.Printf("  %s %s: %s\n", q.Channel, q.Key, q.Reason)
		}
	}
	return nil
}

func (a *app) runCleanup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	removed, err := a.cleanup.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d cached observations no longer listed on %s\n", removed, a.policy.Canonical())
	return nil
}

func (a *app) runAuth(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: stocksync auth <url|exchange|refresh> -channel CODE [-code AUTHCODE]")
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("auth "+sub, flag.ExitOnError)
	channelName := fs.String("channel", "", "channel code (LAZADA, SHOPEE, ...)")
	authCode := fs.String("code", "", "authorization code from the marketplace redirect")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	code := stock.ChannelCode(*channelName)
	if !code.IsValid() {
		return fmt.Errorf("unknown channel %q", *channelName)
	}

	switch sub {
	case "url":
		url, err := a.auth.AuthorizationURL(code)
		if err != nil {
			return err
		}
		fmt.Printf("open in a browser and authorize the shop:\n%s\n", url)
		return nil
	case "exchange":
		if *authCode == "" {
			return errors.New("exchange requires -code")
		}
		cred, err := a.auth.Exchange(ctx, code, *authCode)
		if err != nil {
			return err
		}
		fmt.Printf("%s authorized, token valid until %s\n", code, cred.ExpiresAt.Format(time.RFC3339))
		return nil
	case "refresh":
		cred, err := a.auth.Refresh(ctx, code)
		if err != nil {
			return err
		}
		fmt.Printf("%s token refreshed, valid until %s\n", code, cred.ExpiresAt.Format(time.RFC3339))
		return nil
	default:
		return fmt.Errorf("unknown auth subcommand %q", sub)
	}
}

func (a *app) runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", a.cfg.HTTP.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if a.cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(a.log))
	engine.Use(logger.GinMiddleware(a.log))

	engine.GET("/healthz", a.healthHandler())

	router.NewRouter(engine).
		Register(handler.NewSyncHandler(a.report, a.controller, a.policy)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      engine,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	go func() {
		a.log.Info("diagnostics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

func (a *app) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
