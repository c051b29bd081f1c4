// Command helmholtz runs the chat-triggered voice relay: messages posted by
// self-muted voice channel members in the configured source channel are
// synthesized and spoken into their voice channel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/helmholtz/internal/config"
	discordbot "github.com/MrWong99/helmholtz/internal/discord"
	"github.com/MrWong99/helmholtz/internal/discord/commands"
	"github.com/MrWong99/helmholtz/internal/health"
	"github.com/MrWong99/helmholtz/internal/observe"
	"github.com/MrWong99/helmholtz/internal/prefs"
	"github.com/MrWong99/helmholtz/internal/relay"
	"github.com/MrWong99/helmholtz/internal/voice"
	"github.com/MrWong99/helmholtz/pkg/provider/tts/google"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to an optional YAML tuning file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmholtz: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server))

	slog.Info("helmholtz starting",
		"guild_id", cfg.Discord.GuildID,
		"source_channel_id", cfg.Discord.SourceChannelID,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	synth, err := google.New(cfg.Synthesis.APIKey,
		google.WithLanguage(cfg.Synthesis.Language),
		google.WithVoices(cfg.Synthesis.FemaleVoice, cfg.Synthesis.MaleVoice),
		google.WithSpeakingRate(cfg.Synthesis.SpeakingRate),
	)
	if err != nil {
		slog.Error("failed to create synthesizer", "err", err)
		return 1
	}

	// Durable preferences are optional; without a DSN settings live only
	// in memory.
	var (
		pool    *pgxpool.Pool
		backend prefs.Backend
	)
	if cfg.Storage.PostgresDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			slog.Error("failed to create postgres pool", "err", err)
			return 1
		}
		defer pool.Close()

		pg := prefs.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Warn("preference schema migration failed", "err", err)
		}
		backend = pg
		slog.Info("durable preferences enabled")
	}
	store := prefs.NewStore(backend)

	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	})
	if err != nil {
		slog.Error("failed to connect to discord", "err", err)
		return 1
	}

	commands.NewPreferenceCommands(store).Register(bot.Router())

	manager := voice.NewManager(bot.Platform())
	gateway := discordbot.NewGateway(bot)
	rly := relay.New(relay.Config{
		GuildID:          cfg.Discord.GuildID,
		SourceChannelID:  cfg.Discord.SourceChannelID,
		SelfUserID:       bot.SelfUserID(),
		MaxMessageLength: cfg.Relay.MaxMessageLength,
	}, manager, synth, store, gateway, observe.DefaultMetrics())
	gateway.Bind(rly)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error { return rly.Run(gctx) })

	if cfg.Server.ListenAddr != "" {
		srv := diagnosticsServer(cfg.Server.ListenAddr, bot, synth, pool)
		g.Go(func() error {
			slog.Info("diagnostics endpoint listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("diagnostics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("helmholtz ready")

	runErr := g.Wait()

	// Best-effort teardown in fixed order: drop the voice session, close
	// the gateway, release the synthesizer.
	slog.Info("shutting down")
	manager.Close()
	if err := bot.Close(); err != nil {
		slog.Warn("discord close error", "err", err)
	}
	if err := synth.Close(); err != nil {
		slog.Warn("synthesizer close error", "err", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// diagnosticsServer serves /metrics plus the liveness and readiness probes.
func diagnosticsServer(addr string, bot *discordbot.Bot, synth *google.Synthesizer, pool *pgxpool.Pool) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	checkers := []health.Checker{
		health.GatewayChecker(bot.Ready),
		health.SynthesizerChecker(synth),
	}
	if pool != nil {
		checkers = append(checkers, health.StoreChecker(pool.Ping))
	}
	health.New(checkers...).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newLogger builds the process logger. Cloud logging mode emits JSON with a
// "severity" field so the log agent classifies entries correctly.
func newLogger(cfg config.ServerConfig) *slog.Logger {
	lvl := cfg.LogLevel.SlogLevel()
	if cfg.CloudLogging {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				switch a.Key {
				case slog.LevelKey:
					a.Key = "severity"
				case slog.MessageKey:
					a.Key = "message"
				}
				return a
			},
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
