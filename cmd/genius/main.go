package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/agent"
	"github.com/nworb999/stable-genius/internal/api"
	"github.com/nworb999/stable-genius/internal/config"
	"github.com/nworb999/stable-genius/internal/conversation"
	"github.com/nworb999/stable-genius/internal/embedding"
	"github.com/nworb999/stable-genius/internal/events"
	"github.com/nworb999/stable-genius/internal/gateway"
	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/provider"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/recall"
	"github.com/nworb999/stable-genius/internal/relation"
	"github.com/nworb999/stable-genius/internal/store"
	"github.com/nworb999/stable-genius/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/genius.json"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", configPath), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Providers
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		pcfg := provider.Config{
			ID:       pc.ID,
			Type:     pc.Type,
			Name:     pc.Name,
			Endpoint: pc.Endpoint,
			APIKey:   pc.APIKey,
			Models:   pc.Models,
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAI(pcfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropic(pcfg, logger))
		default:
			logger.Warn("unknown provider type, skipping",
				zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Psyche store: Postgres when configured, files otherwise. A dead
	// Postgres is fatal only because silently forking agent state between
	// backends is worse than not starting.
	var psycheStore store.PsycheStore
	var pgStore *store.PostgresStore
	if dsn := cfg.Database.Postgres.DSN; dsn != "" {
		pgStore, err = store.NewPostgres(ctx, dsn, logger)
		if err != nil {
			logger.Fatal("postgres connection failed", zap.Error(err))
		}
		if err := pgStore.Migrate(ctx, cfg.Migrations); err != nil {
			logger.Fatal("postgres migrations failed", zap.Error(err))
		}
		psycheStore = pgStore
	} else {
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			logger.Fatal("file store init failed", zap.Error(err))
		}
		psycheStore = fs
		logger.Info("using file-backed psyche store", zap.String("dir", cfg.DataDir))
	}

	// Optional backends degrade to warnings.
	var bus *events.Bus
	if cfg.Database.Redis.URL != "" {
		bus, err = events.NewBus(cfg.Database.Redis.URL, logger)
		if err != nil {
			logger.Warn("event bus unavailable, pipeline events will not stream", zap.Error(err))
			bus = nil
		}
	}

	var graph *relation.Graph
	if cfg.Database.Neo4j.URI != "" {
		graph, err = relation.NewGraph(ctx, cfg.Database.Neo4j.URI,
			cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if err != nil {
			logger.Warn("relation graph unavailable, familiarity stays psyche-local", zap.Error(err))
			graph = nil
		}
	}

	var recallSvc *recall.Service
	if cfg.Database.Qdrant.Host != "" {
		vs, err := vectorstore.NewClient(vectorstore.QdrantConfig{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		})
		if err != nil {
			logger.Warn("vector store unavailable, recall falls back to recency", zap.Error(err))
		} else {
			emb := embedding.New(embedding.Config{
				Provider:  cfg.Embedding.Provider,
				Endpoint:  cfg.Embedding.Endpoint,
				Model:     cfg.Embedding.Model,
				APIKey:    cfg.Embedding.APIKey,
				Dimension: cfg.Embedding.Dimension,
			})
			recallSvc = recall.NewService(emb, vs, cfg.Pipeline.RecallTopK, logger)
		}
	}

	// Pipeline factory: each agent gets its own pipeline so component state
	// and observers never cross agents.
	policy := cfg.Pipeline.TensionPolicy()
	factory := func(name string) *pipeline.Pipeline {
		gen := provider.NewClient(router, psyche.Key(name), cfg.Pipeline.Model, logger).
			WithRetries(cfg.Pipeline.MaxRetries, time.Second)
		pl := pipeline.Default(gen, policy, cfg.Pipeline.StyleTransfer, logger)
		if recallSvc != nil {
			pl.Add(recall.NewComponent(recallSvc), 0)
		}
		if bus != nil {
			pl.Observe(bus.Observer(name))
		}
		return pl
	}

	agents := agent.NewManager(psycheStore, factory, logger)
	if graph != nil {
		// Mirror familiarity after each turn is saved, from the in-memory
		// psyche, so the graph never lags the relationships it reflects.
		agents.OnTurnSaved(func(_ context.Context, p *psyche.Psyche) {
			syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := graph.Sync(syncCtx, p); err != nil {
				logger.Debug("familiarity sync failed",
					zap.String("agent", psyche.Key(p.Name)), zap.Error(err))
			}
		})
	}

	// Bootstrap configured agents and pin their provider routing.
	for _, ac := range cfg.Agents {
		if ac.Provider != "" {
			router.Bind(psyche.Key(ac.Name), ac.Provider)
		}
		if len(ac.Fallbacks) > 0 {
			router.SetFallbacks(psyche.Key(ac.Name), ac.Fallbacks)
		}
		if _, err := agents.Get(ctx, ac.Name, ac.Personality); err != nil {
			logger.Error("agent bootstrap failed", zap.String("agent", ac.Name), zap.Error(err))
		}
	}

	arena := conversation.NewArena(logger)

	// Gateways. SetHandler BEFORE Register: adapters capture the handler at
	// registration time.
	gw := gateway.NewGateway(logger)
	dispatcher := gateway.NewDispatcher(agents, gw, cfg.Gateway.DefaultAgent, logger)
	gw.SetHandler(dispatcher.Handle)
	if cfg.Gateway.Slack.Enabled {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateways failed to connect", zap.Error(err))
	}

	handler := api.NewHandler(agents, arena, psycheStore, bus, graph, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	arena.StopAll()
	if err := gw.Close(); err != nil {
		logger.Error("gateway close error", zap.Error(err))
	}
	if bus != nil {
		bus.Close()
	}
	if graph != nil {
		graph.Close(shutdownCtx)
	}
	if pgStore != nil {
		pgStore.Close()
	}
	cancel()
	logger.Info("goodbye")
}
