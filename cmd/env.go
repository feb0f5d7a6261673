package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formfill-cli/internal/config"
	"github.com/sells-group/formfill-cli/internal/cost"
	"github.com/sells-group/formfill-cli/internal/fetcher"
	"github.com/sells-group/formfill-cli/internal/generate"
	"github.com/sells-group/formfill-cli/internal/pipeline"
	"github.com/sells-group/formfill-cli/internal/profile"
	"github.com/sells-group/formfill-cli/internal/resilience"
	"github.com/sells-group/formfill-cli/internal/resolve"
	"github.com/sells-group/formfill-cli/internal/store"
)

// envOptions are per-command overrides of the loaded config.
type envOptions struct {
	mode        string // fill, inspect or serve
	profilePath string
	noStore     bool
}

// pipelineEnv holds the initialized store, generator and pipeline needed
// by the fill, inspect and serve commands.
type pipelineEnv struct {
	Store     store.Store        // may be nil
	Generator generate.Generator // nil in inspect mode
	Pipeline  *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// logCost logs estimated spend when the generator can price its usage.
func (pe *pipelineEnv) logCost(phase string) {
	if c, ok := pe.Generator.(interface{ LogCost(string) }); ok {
		c.LogCost(phase)
	}
}

// initPipeline validates config, then builds the store, fetcher, answer
// generator and Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, opts envOptions) (*pipelineEnv, error) {
	if err := cfg.Validate(opts.mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	if !opts.noStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
	})

	profilePath := cfg.Profile.Path
	if opts.profilePath != "" {
		profilePath = opts.profilePath
	}

	var resolver *resolve.Resolver
	if opts.mode != "inspect" {
		gen, err := generate.New(ctx, cfg)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "init answer generator")
		}
		env.Generator = gen
		resolver = newResolver(gen)
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithCacheTTL(time.Duration(cfg.Fetch.CacheTTLHours) * time.Hour),
	}
	if env.Store != nil {
		pipeOpts = append(pipeOpts, pipeline.WithStore(env.Store))
	}
	if env.Generator != nil {
		pipeOpts = append(pipeOpts,
			pipeline.WithUsage(env.Generator),
			pipeline.WithCost(cost.NewCalculator(cost.DefaultRates()), cfg.AI.Provider, generatorModel()),
		)
	}
	env.Pipeline = pipeline.New(f, profile.NewFileStore(profilePath), resolver, pipeOpts...)

	zap.L().Debug("pipeline initialized",
		zap.String("mode", opts.mode),
		zap.String("provider", cfg.AI.Provider),
		zap.String("profile", profilePath),
		zap.Bool("store", env.Store != nil),
	)
	return env, nil
}

// generatorModel returns the model name of the configured provider.
func generatorModel() string {
	if cfg.AI.Provider == config.ProviderAnthropic {
		return cfg.Anthropic.Model
	}
	return cfg.Gemini.Model
}

// newResolver applies the ai config section to a Resolver.
func newResolver(gen resolve.AnswerGenerator) *resolve.Resolver {
	retryCfg, breakerCfg := resilience.ForAI(cfg.AI)
	return resolve.New(gen,
		resolve.WithConcurrency(cfg.AI.Concurrency),
		resolve.WithCallTimeout(time.Duration(cfg.AI.TimeoutSecs)*time.Second),
		resolve.WithRateLimit(cfg.AI.RatePerSec, cfg.AI.Concurrency),
		resolve.WithRetry(retryCfg),
		resolve.WithCircuitBreaker(resilience.NewCircuitBreaker(breakerCfg)),
	)
}
