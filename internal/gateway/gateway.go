// ABOUTME: Gateway orchestrator that wires the store, provider client, and poll loop
// ABOUTME: Manages the HTTP API server and periodic bot reconciliation

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/notefold/notetaker/internal/auth"
	"github.com/notefold/notetaker/internal/config"
	"github.com/notefold/notetaker/internal/dedupe"
	"github.com/notefold/notetaker/internal/jobs"
	"github.com/notefold/notetaker/internal/media"
	"github.com/notefold/notetaker/internal/provider"
	"github.com/notefold/notetaker/internal/recorder"
	"github.com/notefold/notetaker/internal/store"
)

// Gateway orchestrates the notetaker-gateway server components: the HTTP API
// for scheduling and media delivery, and the poll loop that reconciles
// active bots against the provider.
type Gateway struct {
	config     *config.Config
	store      store.Store
	scheduler  *recorder.Scheduler
	reconciler *recorder.Reconciler
	proxy      *media.Proxy
	verifier   auth.TokenVerifier
	httpServer *http.Server
	logger     *slog.Logger

	// inflight prevents overlapping poll ticks from reconciling the same bot
	// twice at once. The store's conditional status write remains the
	// correctness backstop.
	inflight *dedupe.Guard
}

// New creates a Gateway from configuration, opening the SQLite store and the
// provider client.
func New(cfg *config.Config) (*Gateway, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	pc := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	return newGateway(cfg, st, pc), nil
}

func newGateway(cfg *config.Config, st store.Store, pc recorder.ProviderClient) *Gateway {
	scheduler := recorder.NewScheduler(st, pc, recorder.SchedulerConfig{
		BotName:            cfg.Provider.BotName,
		DefaultLeadMinutes: cfg.Recording.DefaultLeadMinutes,
		JoinAheadThreshold: cfg.Recording.JoinAheadThreshold,
		VideoLayout:        cfg.Recording.VideoLayout,
	})
	reconciler := recorder.NewReconciler(st, pc, jobs.NewQueue(st), cfg.Recording.Announcement)

	return &Gateway{
		config:     cfg,
		store:      st,
		scheduler:  scheduler,
		reconciler: reconciler,
		proxy:      media.NewProxy(),
		verifier:   auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		inflight:   dedupe.New(2*cfg.Recording.PollInterval+time.Minute, 10000),
		logger:     slog.Default().With("component", "gateway"),
	}
}

// Run starts the HTTP server and the poll loop, blocking until the context
// is cancelled or the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	g.registerRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              g.config.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	g.logger.Info("gateway started", "http_addr", g.config.Server.HTTPAddr,
		"poll_interval", g.config.Recording.PollInterval)

	ticker := time.NewTicker(g.config.Recording.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return g.shutdown()
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case <-ticker.C:
			g.pollOnce(ctx)
		}
	}
}

func (g *Gateway) shutdown() error {
	g.logger.Info("shutting down")
	g.inflight.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		g.logger.Warn("http shutdown", "error", err)
	}
	if err := g.store.Close(); err != nil {
		g.logger.Warn("closing store", "error", err)
	}
	return nil
}

// pollOnce reconciles every active bot, each in its own goroutine so one
// stuck remote call cannot block the rest.
func (g *Gateway) pollOnce(ctx context.Context) {
	bots, err := g.store.ListActiveBots(ctx)
	if err != nil {
		g.logger.Error("listing active bots", "error", err)
		return
	}

	for _, bot := range bots {
		if g.inflight.Claim(bot.ID) {
			continue
		}
		go func(bot *store.Bot) {
			defer g.inflight.Release(bot.ID)
			if err := g.reconciler.Reconcile(ctx, bot); err != nil {
				g.logger.Error("reconciling bot", "bot_id", bot.ID, "error", err)
			}
		}(bot)
	}
}
