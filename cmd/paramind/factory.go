package main

import (
	"errors"
	"fmt"

	"github.com/paramind/paramind/internal/aggregator"
	"github.com/paramind/paramind/internal/cache"
	"github.com/paramind/paramind/internal/config"
	"github.com/paramind/paramind/internal/controller"
	"github.com/paramind/paramind/internal/executor"
	"github.com/paramind/paramind/internal/llm"
	"github.com/paramind/paramind/internal/metrics"
)

// engine bundles the long-lived components a command needs.
type engine struct {
	cfg        *config.Config
	controller *controller.Controller
	executor   *executor.Executor
	aggregator *aggregator.Aggregator
	store      *metrics.Store
	closers    []func() error
}

// Close releases everything the engine opened, in reverse order.
func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// buildEngine constructs the orchestration components from config.
// When requireClient is false a missing API key degrades gracefully:
// the controller plans through its semantic fallback and the aggregator
// concatenates, which is enough for offline plan inspection.
func buildEngine(cfg *config.Config, requireClient bool) (*engine, error) {
	var invoker llm.Invoker

	client, err := llm.NewClient(llm.ClientConfig{
		APIKey:         cfg.Anthropic.APIKey,
		UseAWSBedrock:  cfg.Anthropic.UseAWSBedrock,
		AWSRegion:      cfg.Anthropic.AWSRegion,
		AWSProfile:     cfg.Anthropic.AWSProfile,
		DefaultTimeout: cfg.Execution.TaskTimeout,
	})
	switch {
	case err == nil:
		invoker = client
	case errors.Is(err, llm.ErrAgentUnavailable) && !requireClient:
		invoker = nil
	default:
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	e := &engine{cfg: cfg}

	if invoker != nil && !cfg.Cache.Disabled {
		store, err := cache.Open(cache.Options{
			Dir:        cfg.Cache.Dir,
			MaxEntries: cfg.Cache.MaxEntries,
		})
		if err != nil {
			return nil, fmt.Errorf("opening memo cache: %w", err)
		}
		invoker = cache.NewInvoker(store, invoker)
	}

	ctrl, err := controller.New(invoker, controller.Config{
		PlannerModel:   cfg.Models.Planner,
		Models:         cfg.Models.Workers,
		RepairAttempts: 2,
	})
	if err != nil {
		return nil, err
	}
	e.controller = ctrl

	e.executor = executor.New(invoker, executor.Config{
		Retry: executor.RetryPolicy{
			MaxAttempts: cfg.Execution.RetryAttempts,
			BaseDelay:   executor.DefaultRetryPolicy().BaseDelay,
			MaxDelay:    executor.DefaultRetryPolicy().MaxDelay,
		},
		Quality: executor.QualityGate{
			MinChars:       cfg.Execution.QualityMinChars,
			MaxRefinements: cfg.Execution.QualityRefinements,
		},
		TaskTimeout: cfg.Execution.TaskTimeout,
	})

	e.aggregator = aggregator.New(invoker, aggregator.Config{
		SynthesisModel: cfg.Models.Synthesis,
	})

	store, err := metrics.Open(cfg.Metrics.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening metrics store: %w", err)
	}
	e.store = store
	e.closers = append(e.closers, store.Close)

	return e, nil
}
