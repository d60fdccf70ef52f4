package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"agui-bridge/internal/agent"
	"agui-bridge/internal/bridge"
	"agui-bridge/internal/config"
	"agui-bridge/internal/logging"
	"agui-bridge/internal/metrics"
	"agui-bridge/internal/server"
	"agui-bridge/internal/session"
	"agui-bridge/internal/transport/connectrpc"
	"agui-bridge/internal/transport/sse"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	var configFile string

	cmd := &cobra.Command{
		Use:           "agent",
		Short:         "Serve a Gemini agent over the AG-UI protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile == "" {
				return nil
			}
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to load config: %v\n", err)
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to configure logging: %v\n", err)
				return err
			}
			if err := run(cmd.Context(), cfg, log); err != nil {
				log.WithError(err).Error("server stopped")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("port", "8000", "HTTP listen port")
	flags.String("model", "gemini-2.5-flash", "Gemini model name")
	flags.String("agent-name", "", "agent name (defaults to \"assistant\")")
	flags.String("agent-instruction", "", "system instruction for the agent")
	flags.String("session-store", config.StoreMemory, "session store: memory, file or none")
	flags.String("session-dir", "./sessions", "directory for the file session store")
	flags.Duration("session-ttl", 0, "evict in-memory sessions idle for longer (0 disables)")
	flags.Duration("run-timeout", 60*time.Second, "upper bound for a single run (0 disables)")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "log format: text or json")

	for key, flag := range map[string]string{
		config.KeyPort:         "port",
		config.KeyModel:        "model",
		config.KeyAgentName:    "agent-name",
		config.KeyInstruction:  "agent-instruction",
		config.KeySessionStore: "session-store",
		config.KeySessionDir:   "session-dir",
		config.KeySessionTTL:   "session-ttl",
		config.KeyRunTimeout:   "run-timeout",
		config.KeyLogLevel:     "log-level",
		config.KeyLogFormat:    "log-format",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func run(parent context.Context, cfg *config.Config, log *logrus.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := agent.NewLLMAgent(ctx, agent.ModelConfig{
		APIKey:      cfg.GoogleAPIKey,
		Model:       cfg.Model,
		Name:        cfg.AgentName,
		Instruction: cfg.Instruction,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	adkAgent, err := agent.NewADKAgent(llm, agent.Config{
		AppName: cfg.AppName,
		UserID:  cfg.UserID,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	m := metrics.Default()
	opts := []bridge.Option{bridge.WithLogger(log.WithField("component", "bridge")), bridge.WithMetrics(m)}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		opts = append(opts, bridge.WithSessionStore(store))
	}
	b := bridge.New(adkAgent, opts...)

	srv := server.New(server.Options{Addr: cfg.Addr(), Logger: log},
		sse.NewHandler(b, log, m, cfg.RunTimeout),
		connectrpc.NewHandler(b, log, m, cfg.RunTimeout))

	log.WithFields(logrus.Fields{
		"model":         cfg.Model,
		"session_store": cfg.SessionStore,
	}).Info("Starting Go ADK Agent with AG-UI support...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if mem, ok := store.(*session.MemoryStore); ok && cfg.SessionTTL > 0 {
		g.Go(func() error {
			expireSessions(gctx, mem, cfg.SessionTTL, log)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		return srv.ShutdownTimeout(shutdownTimeout)
	})
	return g.Wait()
}

// expireSessions drops idle in-memory sessions until ctx is done.
func expireSessions(ctx context.Context, store *session.MemoryStore, ttl time.Duration, log logrus.FieldLogger) {
	interval := max(ttl/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Cleanup(ttl); removed > 0 {
				log.WithField("removed", removed).Debug("expired idle sessions")
			}
		}
	}
}

func newStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(cfg.SessionCacheSize)
	case config.StoreFile:
		return session.NewFileStore(cfg.SessionDir)
	default:
		return nil, nil
	}
}
