package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"goa.design/clue/log"

	"github.com/clearlane/deepresearch/api"
	"github.com/clearlane/deepresearch/config"
	"github.com/clearlane/deepresearch/notify"
	"github.com/clearlane/deepresearch/research"
	"github.com/clearlane/deepresearch/research/executor"
	"github.com/clearlane/deepresearch/research/lifecycle"
	"github.com/clearlane/deepresearch/telemetry"
)

// defaultMaxExecutorCalls bounds a run that doesn't specify its own budget,
// per spec.md §9's MaxExecutorCalls default.
const defaultMaxExecutorCalls = 5

func main() {
	dbgF := flag.Bool("debug", false, "Log request and response bodies")
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatal(ctx, err)
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()
	tracer := telemetry.NewClueTracer()

	llmClient, err := buildLLMClient(ctx, settings)
	if err != nil {
		log.Fatal(ctx, err)
	}
	searchBackend := buildSearchBackend(settings)
	toolRegistry := buildToolRegistry(settings, searchBackend)

	checkpoints, err := buildCheckpointer(ctx, settings)
	if err != nil {
		log.Fatal(ctx, err)
	}
	runMeta, err := buildRunMetaStore(ctx, settings)
	if err != nil {
		log.Fatal(ctx, err)
	}
	approvals, err := buildApprovalStore(settings)
	if err != nil {
		log.Fatal(ctx, err)
	}
	hub := notify.New(256)

	eng, err := buildEngine(settings, logger, metrics, tracer)
	if err != nil {
		log.Fatal(ctx, err)
	}

	taskQueue := settings.TemporalTaskQueue
	activities := &research.NodeActivities{
		Deps: research.Deps{
			LLM:    llmClient,
			Tools:  toolRegistry,
			Search: searchBackend,
			Model:  settings.LLMModel,
			Settings: research.Settings{
				MinPlanSteps:       settings.MinPlanSteps,
				MaxPlanSteps:       settings.MaxPlanSteps,
				MaxExecutorCalls:   defaultMaxExecutorCalls,
				MaxSearchesPerStep: settings.MaxSearchesPerStep,
				SearchMinScore:     settings.SearchRelevanceThreshold,
				TerminalTimeout:    settings.TerminalTimeout,
			},
		},
		Executor:     executor.Adapter{},
		Checkpointer: research.StoreCheckpointer{Store: checkpoints},
		StatusSink:   lifecycle.NewStatusSink(runMeta, approvals, hub),
	}
	if err := activities.RegisterAll(ctx, eng, taskQueue); err != nil {
		log.Fatal(ctx, err)
	}

	svc := lifecycle.NewService(eng, runMeta, approvals, checkpoints, hub, taskQueue, settings.MaxConcurrentRuns, defaultMaxExecutorCalls)
	if err := svc.Recover(ctx); err != nil {
		log.Fatal(ctx, err)
	}

	server := &api.Server{
		Auth:        api.Authenticator{Secret: settings.AuthSecret, TTL: settings.AuthTokenTTL},
		Lifecycle:   svc,
		RunMeta:     runMeta,
		Approvals:   approvals,
		Checkpoints: checkpoints,
		Hub:         hub,
		Logger:      logger,
	}

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	handleHTTPServer(ctx, settings.HTTPAddr, server.Router(), &wg, errc)

	log.Printf(ctx, "exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	log.Printf(ctx, "exited")
}
