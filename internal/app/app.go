package app

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/sos-store-ops-system/internal/agent"
	"github.com/ccastromar/sos-store-ops-system/internal/audit"
	"github.com/ccastromar/sos-store-ops-system/internal/bus"
	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/dispatch"
	"github.com/ccastromar/sos-store-ops-system/internal/gen"
	"github.com/ccastromar/sos-store-ops-system/internal/guard"
	"github.com/ccastromar/sos-store-ops-system/internal/intent"
	"github.com/ccastromar/sos-store-ops-system/internal/llm"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
	"github.com/ccastromar/sos-store-ops-system/internal/platform"
	"github.com/ccastromar/sos-store-ops-system/internal/registry"
	"github.com/ccastromar/sos-store-ops-system/internal/runtime"
	"github.com/ccastromar/sos-store-ops-system/internal/store"
	"github.com/ccastromar/sos-store-ops-system/internal/ui"
)

type App struct {
	env    *config.EnvVars
	cfg    *config.Config
	bus    *bus.Bus
	ui     *ui.UIStore
	store  *store.Store
	agents []agent.Agent
	llm    llm.LLMClient
	http   *HTTPServer
}

func New() (*App, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("cargando variables de entorno: %w", err)
	}

	cfg, err := config.LoadFromDir(env.DefinitionsDir)
	if err != nil {
		return nil, err
	}
	logx.Info("App", "loaded %d operations, %d capability seeds, %d connections",
		len(cfg.Operations), len(cfg.Seeds), len(cfg.Connections))

	st, err := store.Open(env.DBPath)
	if err != nil {
		return nil, fmt.Errorf("abriendo base de datos: %w", err)
	}

	// OpenAI-compatible endpoint when an API key is configured, local Ollama otherwise
	var llmClient llm.LLMClient
	if env.LLMApiKey != "" {
		llmClient = llm.NewOpenAIClient(env.LLMBaseURL, env.LLMApiKey, env.LLMModel)
	} else {
		llmClient = llm.NewOllamaClient(env.OllamaBaseURL, env.OllamaModel)
	}

	reg := registry.New(st.DB())
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("cargando registry: %w", err)
	}
	if err := reg.Seed(cfg.Seeds); err != nil {
		return nil, fmt.Errorf("sembrando capabilities: %w", err)
	}

	auditLog := audit.NewLog(st.DB())
	gate := guard.New(cfg.Policy)
	resolver := intent.NewResolver(llmClient)
	generator := gen.New(llmClient, cfg.Operations)
	platformClient := platform.NewClient(env.PlatformTimeout)

	dispatcher := dispatch.New(gate, resolver, reg, generator, platformClient, auditLog, cfg.Operations)

	uiStore := ui.NewUIStore()
	messageBus := bus.New()

	rt := &runtime.Runtime{
		DefinitionsLoaded: true,
		LLMClient:         llmClient,
		DB:                st.DB(),
	}

	// Crear todos los agentes
	apiAgent := agent.NewAPIAgent(messageBus, cfg, reg, auditLog, uiStore)
	dispatcherAgent := agent.NewDispatcherAgent(messageBus, cfg, dispatcher, uiStore)
	analyst := agent.NewAnalyst(messageBus, llmClient, uiStore)

	// Registrar subscripciones
	messageBus.Subscribe("dispatcher", dispatcherAgent.Inbox())
	messageBus.Subscribe("analyst", analyst.Inbox())

	setEnvHTTPPort(strconv.Itoa(env.Port))
	httpServer := NewHTTPServer(apiAgent, uiStore, rt)

	return &App{
		env:    env,
		cfg:    cfg,
		bus:    messageBus,
		ui:     uiStore,
		store:  st,
		agents: []agent.Agent{apiAgent, dispatcherAgent, analyst},
		llm:    llmClient,
		http:   httpServer,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Lanzar agentes
	for _, ag := range a.agents {
		agent := ag
		g.Go(func() error {
			return agent.Start(gctx)
		})
	}

	// Lanzar HTTP server
	g.Go(func() error {
		return a.http.Start(gctx)
	})

	appEnv := "dev"
	if a.env != nil {
		appEnv = a.env.AppEnv
	}
	logx.G("App", "SOS v0.1.0 started (env=%s)", appEnv)

	err := g.Wait()
	logx.G("App", "shutdown complete")

	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logx.Error("App", "closing store: %v", cerr)
		}
	}
	return err
}
