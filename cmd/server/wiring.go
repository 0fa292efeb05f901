package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.temporal.io/sdk/client"

	"github.com/clearlane/deepresearch/approval"
	approvalinmem "github.com/clearlane/deepresearch/approval/inmem"
	approvalredis "github.com/clearlane/deepresearch/approval/redis"
	"github.com/clearlane/deepresearch/config"
	"github.com/clearlane/deepresearch/engine"
	"github.com/clearlane/deepresearch/engine/inmem"
	"github.com/clearlane/deepresearch/engine/temporal"
	"github.com/clearlane/deepresearch/llm"
	"github.com/clearlane/deepresearch/llm/anthropic"
	"github.com/clearlane/deepresearch/llm/bedrock"
	"github.com/clearlane/deepresearch/llm/gateway"
	"github.com/clearlane/deepresearch/llm/openai"
	"github.com/clearlane/deepresearch/research/tools"
	"github.com/clearlane/deepresearch/runmeta"
	runmetainmem "github.com/clearlane/deepresearch/runmeta/inmem"
	runmetamongo "github.com/clearlane/deepresearch/runmeta/mongo"
	"github.com/clearlane/deepresearch/search"
	searchstub "github.com/clearlane/deepresearch/search/stub"
	"github.com/clearlane/deepresearch/store"
	storeinmem "github.com/clearlane/deepresearch/store/inmem"
	storemongo "github.com/clearlane/deepresearch/store/mongo"
	"github.com/clearlane/deepresearch/telemetry"
)

// buildLLMClient selects the provider llm.Client named by Settings.LLMProvider
// and wraps it in a rate limiter, per spec.md §9's per-process LLM budget.
func buildLLMClient(ctx context.Context, s config.Settings) (llm.Client, error) {
	var (
		c   llm.Client
		err error
	)
	switch s.LLMProvider {
	case "anthropic":
		c, err = anthropic.NewFromAPIKey(s.LLMAPIKey, s.LLMModel, 4096)
	case "openai":
		c, err = openai.NewFromAPIKey(s.LLMAPIKey, s.LLMModel)
	case "bedrock":
		cfg, cfgErr := awsconfig.LoadDefaultConfig(ctx)
		if cfgErr != nil {
			return nil, fmt.Errorf("wiring: load aws config: %w", cfgErr)
		}
		c, err = bedrock.New(bedrockruntime.NewFromConfig(cfg), s.LLMModel)
	default:
		return nil, fmt.Errorf("wiring: unknown LLM_PROVIDER %q", s.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("wiring: build %s client: %w", s.LLMProvider, err)
	}
	return gateway.RateLimited(c, s.LLMRateLimitRPS, s.LLMRateLimitBurst), nil
}

// buildSearchBackend returns the search.Backend used by the web_search tool
// adapter. Only a stub backend exists today; a SEARCH_ENDPOINT-backed HTTP
// client is future work (see DESIGN.md).
func buildSearchBackend(s config.Settings) search.Backend {
	return searchstub.New(nil)
}

// buildToolRegistry assembles the tool adapters the executor subgraph may
// invoke, bounded by Settings per spec.md §9.
func buildToolRegistry(s config.Settings, backend search.Backend) *tools.Registry {
	return tools.NewRegistry(
		&tools.WebSearch{Backend: backend, MaxResults: s.MaxSearchesPerStep, MinScore: s.SearchRelevanceThreshold},
		&tools.Terminal{Shell: "/bin/sh", Timeout: s.TerminalTimeout, MaxOutputBytes: s.TerminalOutputMaxBytes},
		&tools.FileRead{Root: ".", MaxBytes: s.FileReadMaxBytes},
		&tools.Knowledge{},
	)
}

// buildCheckpointer returns a store.Checkpointer backed by Mongo when
// MONGO_URI is set, otherwise an in-memory store for the zero-config
// local/dev experience.
func buildCheckpointer(ctx context.Context, s config.Settings) (store.Checkpointer, error) {
	if s.MongoURI == "" {
		return storeinmem.New(), nil
	}
	mc, err := mongoClient(ctx, s.MongoURI)
	if err != nil {
		return nil, err
	}
	return storemongo.New(ctx, storemongo.Options{Client: mc, Database: s.MongoDatabase})
}

// buildRunMetaStore returns a runmeta.Store backed by Mongo when MONGO_URI is
// set, otherwise an in-memory store.
func buildRunMetaStore(ctx context.Context, s config.Settings) (runmeta.Store, error) {
	if s.MongoURI == "" {
		return runmetainmem.New(), nil
	}
	mc, err := mongoClient(ctx, s.MongoURI)
	if err != nil {
		return nil, err
	}
	return runmetamongo.New(ctx, runmetamongo.Options{Client: mc, Database: s.MongoDatabase})
}

// buildApprovalStore returns an approval.Store backed by Redis when
// REDIS_ADDR is set, otherwise an in-memory store.
func buildApprovalStore(s config.Settings) (approval.Store, error) {
	if s.RedisAddr == "" {
		return approvalinmem.New(), nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPassword})
	return approvalredis.New(rdb)
}

// buildEngine returns an engine.Engine backed by Temporal when
// Settings.Engine is "temporal", otherwise the in-process engine.
func buildEngine(s config.Settings, logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) (engine.Engine, error) {
	if s.Engine != "temporal" {
		return inmem.New(), nil
	}
	return temporal.New(temporal.Options{
		ClientOptions: &client.Options{HostPort: s.TemporalHostPort, Namespace: s.TemporalNamespace},
		TaskQueue:     s.TemporalTaskQueue,
		Logger:        logger,
		Metrics:       metrics,
		Tracer:        tracer,
	})
}

func mongoClient(ctx context.Context, uri string) (*mongodriver.Client, error) {
	mc, err := mongodriver.Connect(mongooptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("wiring: connect mongo: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("wiring: ping mongo: %w", err)
	}
	return mc, nil
}
