package cmd

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/adaptive"
	"github.com/abhisek/quizadapt/internal/bandit"
	"github.com/abhisek/quizadapt/internal/config"
	"github.com/abhisek/quizadapt/internal/genlock"
	"github.com/abhisek/quizadapt/internal/graph"
	"github.com/abhisek/quizadapt/internal/llm"
	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/metrics"
	"github.com/abhisek/quizadapt/internal/problemgen"
	"github.com/abhisek/quizadapt/internal/store"
	"github.com/abhisek/quizadapt/internal/telemetry"
)

// app holds the wired dependencies shared by serve and practice.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	metrics *metrics.Metrics
	engine  *adaptive.Engine

	closers []func(context.Context) error
}

// buildApp opens every backing service and wires the engine. The caller
// must call close.
func buildApp(cmd *cobra.Command) (_ *app, err error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
		}
	}()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	a.store, err = openStore(cmd, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	learners := a.store.Learners()
	gc, err := graph.Open(ctx, cfg.Neo4j, log)
	if err != nil {
		return nil, err
	}
	if gc != nil {
		a.closers = append(a.closers, gc.Close)
		learners = graph.WithGraph(learners, gc, log)
	}

	var rdb goredis.UniversalClient
	if cfg.Genlock.Mode == genlock.ModeRedis {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if perr := client.Ping(ctx).Err(); perr != nil {
			log.Warn("redis unreachable, generation lock degrades to unguarded", "addr", cfg.Redis.Addr, "error", perr)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		rdb = client
	}
	guard, err := genlock.New(cfg.Genlock, rdb, log)
	if err != nil {
		return nil, err
	}

	var gen adaptive.QuestionGenerator
	provider, err := llm.NewProvider(ctx, cfg.LLM, a.store.EventRepo(), log)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	if cfg.LLM.Provider == "mock" {
		log.Warn("no LLM provider configured, serving stored questions only")
	} else {
		content := problemgen.FromProvider(provider, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
		gen = problemgen.New(content, cfg.Problemgen, log)
	}

	a.engine, err = adaptive.New(adaptive.Deps{
		Templates: a.store.Templates(),
		Questions: a.store.Questions(),
		Responses: a.store.Responses(),
		Learners:  learners,
		Sessions:  a.store.Sessions(),
		Generator: gen,
		Guard:     guard,
		Sampler:   bandit.NewSampler(nil, bandit.UniformPrior),
		Metrics:   a.metrics,
		Logger:    log,
	}, cfg.Engine)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.log != nil {
		a.log.Sync()
	}
	return errors.Join(errs...)
}
