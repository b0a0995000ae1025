package app

import (
	"context"

	"github.com/webpilot-ai/webpilot/internal/agent"
	"github.com/webpilot-ai/webpilot/internal/config"
	"github.com/webpilot-ai/webpilot/internal/httpapi"
	"github.com/webpilot-ai/webpilot/internal/observability"
	"github.com/webpilot-ai/webpilot/internal/tasks"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Manager *tasks.Manager
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the full service graph from configuration: metrics, the safety
// sentinel, the LLM client, the browser driver, the agent executor and the
// task manager behind the HTTP API. The worker starts when the caller invokes
// Manager.Start.
func Build(_ context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var sentinel *agent.Sentinel
	if cfg.SecurityLayerEnabled {
		sentinel = agent.NewSentinel(cfg.ExtraSafetyKeywords...)
	}

	llm := agent.NewLLMClient(agent.LLMConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Timeout:     cfg.LLMTimeout,
		MaxRetries:  cfg.LLMMaxRetries,
		HTTPReferer: cfg.LLMHTTPReferer,
		Title:       cfg.LLMTitle,
		MaxTokens:   cfg.ContextMaxTokens,
	})

	executor := agent.NewExecutor(llm, sentinel, agent.NewScriptedDriver())

	manager := tasks.NewManager(executor)
	manager.SetInterrupter(executor)
	manager.SetMetrics(metrics)

	api := httpapi.New(cfg, manager)

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Manager: manager,
		Metrics: metrics,
		Cleanup: func() error { return nil },
	}, nil
}
