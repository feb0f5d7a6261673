// Package pipeline orchestrates a single pre-fill run: fetch the form page,
// decode its question schema, load the user profile, resolve answers and
// encode the pre-fill URL.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/formfill-cli/internal/cost"
	"github.com/sells-group/formfill-cli/internal/fetcher"
	"github.com/sells-group/formfill-cli/internal/formdata"
	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/prefill"
	"github.com/sells-group/formfill-cli/internal/profile"
	"github.com/sells-group/formfill-cli/internal/resolve"
	"github.com/sells-group/formfill-cli/internal/store"
)

// Stage names used in phase tracking and StageError.
const (
	StageURL     = "url"
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageSchema  = "schema"
	StageProfile = "profile"
	StageResolve = "resolve"
	StagePrefill = "prefill"
)

// DefaultCacheTTL is how long fetched pages stay in the page cache.
const DefaultCacheTTL = 24 * time.Hour

// StageError wraps a fatal error with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UsageReporter exposes cumulative token usage of an answer generator.
type UsageReporter interface {
	Usage() model.TokenUsage
}

// Pipeline wires the run collaborators together.
type Pipeline struct {
	fetcher  fetcher.Fetcher
	profiles profile.Store
	resolver *resolve.Resolver
	store    store.Store
	usage    UsageReporter
	costCalc *cost.Calculator
	provider string
	model    string
	cacheTTL time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore records runs and caches fetched pages in st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) {
		p.store = st
	}
}

// WithCacheTTL sets the page cache TTL. Zero disables the cache.
func WithCacheTTL(d time.Duration) Option {
	return func(p *Pipeline) {
		p.cacheTTL = d
	}
}

// WithUsage reports generator token usage on each result.
func WithUsage(u UsageReporter) Option {
	return func(p *Pipeline) {
		p.usage = u
	}
}

// WithCost prices reported usage for the given provider and model.
func WithCost(calc *cost.Calculator, provider, modelName string) Option {
	return func(p *Pipeline) {
		p.costCalc = calc
		p.provider = provider
		p.model = modelName
	}
}

// New creates a Pipeline.
func New(f fetcher.Fetcher, profiles profile.Store, r *resolve.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  f,
		profiles: profiles,
		resolver: r,
		cacheTTL: DefaultCacheTTL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// run carries per-run state for phase tracking.
type run struct {
	p      *Pipeline
	log    *zap.Logger
	id     string
	result *model.RunResult
}

func (r *run) setStatus(ctx context.Context, status model.RunStatus) {
	if r.p.store == nil || r.id == "" {
		return
	}
	if err := r.p.store.UpdateRunStatus(ctx, r.id, status); err != nil {
		r.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

// trackPhase runs fn, times it and appends the phase outcome to the result.
// A failing phase is returned as a *StageError.
func (r *run) trackPhase(stage string, fn func() (map[string]any, error)) error {
	start := time.Now()
	meta, err := fn()
	duration := time.Since(start).Milliseconds()

	phase := model.PhaseResult{Name: stage, Duration: duration, Metadata: meta}
	if err != nil {
		phase.Status = model.PhaseStatusFailed
		phase.Error = err.Error()
		r.log.Error("pipeline: phase failed",
			zap.String("phase", stage),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		phase.Status = model.PhaseStatusComplete
		r.log.Info("pipeline: phase complete",
			zap.String("phase", stage),
			zap.Int64("duration_ms", duration),
		)
	}
	r.result.Phases = append(r.result.Phases, phase)

	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// fail records a fatal error against the stored run.
func (r *run) fail(ctx context.Context, err error) error {
	if r.p.store != nil && r.id != "" {
		// The run context may already be cancelled.
		if storeErr := r.p.store.FailRun(context.WithoutCancel(ctx), r.id, err.Error()); storeErr != nil {
			r.log.Warn("pipeline: failed to record run failure", zap.Error(storeErr))
		}
	}
	return err
}

// Run executes the full pipeline for formURL. Non-fatal problems are
// returned as warnings on the result; any fatal error is a *StageError.
func (p *Pipeline) Run(ctx context.Context, formURL string) (*model.RunResult, error) {
	log := zap.L().With(zap.String("form_url", formURL))
	log.Info("pipeline: starting run")

	r := &run{p: p, log: log, result: &model.RunResult{FormURL: formURL}}

	baseURL, err := prefill.NormalizeFormURL(formURL)
	if err != nil {
		return nil, &StageError{Stage: StageURL, Err: err}
	}
	r.result.FormURL = baseURL

	if p.store != nil {
		stored, err := p.store.CreateRun(ctx, baseURL)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		r.id = stored.ID
		r.result.RunID = stored.ID
		r.log = log.With(zap.String("run_id", stored.ID))
	}

	var before model.TokenUsage
	if p.usage != nil {
		before = p.usage.Usage()
	}

	form, err := r.loadForm(ctx, baseURL)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.result.Form = form

	var prof model.UserProfile
	if err := r.trackPhase(StageProfile, func() (map[string]any, error) {
		raw, err := p.profiles.Load(ctx)
		if err != nil {
			return nil, err
		}
		prof = profile.Parse(raw)
		return map[string]any{
			"has_email": prof.PrimaryEmail != "",
			"optimist":  prof.Optimist,
		}, nil
	}); err != nil {
		return nil, r.fail(ctx, err)
	}

	r.setStatus(ctx, model.RunStatusResolving)
	if err := r.trackPhase(StageResolve, func() (map[string]any, error) {
		res, err := p.resolver.Resolve(ctx, form.Questions, prof)
		if err != nil {
			return nil, err
		}
		r.result.Answers = res.Answers
		r.result.Warnings = append(r.result.Warnings, res.Warnings...)

		counts := r.result.CountBySource()
		meta := map[string]any{"answers": len(res.Answers)}
		for src, n := range counts {
			meta[string(src)] = n
		}
		return meta, nil
	}); err != nil {
		return nil, r.fail(ctx, err)
	}

	if p.usage != nil {
		after := p.usage.Usage()
		r.result.Usage = model.TokenUsage{
			InputTokens:  after.InputTokens - before.InputTokens,
			OutputTokens: after.OutputTokens - before.OutputTokens,
			Calls:        after.Calls - before.Calls,
		}
		if p.costCalc != nil {
			r.result.Usage.Cost = p.costCalc.Estimate(p.provider, p.model, r.result.Usage)
		}
	}

	if err := r.trackPhase(StagePrefill, func() (map[string]any, error) {
		u, err := prefill.Build(baseURL, r.result.Answers)
		if err != nil {
			return nil, err
		}
		r.result.PrefillURL = u
		return nil, nil
	}); err != nil {
		return nil, r.fail(ctx, err)
	}

	if p.store != nil {
		if err := p.store.CompleteRun(ctx, r.id, r.result); err != nil {
			log.Warn("pipeline: failed to record run result", zap.Error(err))
		}
	}

	log.Info("pipeline: run complete",
		zap.Int("questions", len(form.Questions)),
		zap.Int("warnings", len(r.result.Warnings)),
		zap.Int("unresolved", len(r.result.Unresolved())),
	)
	return r.result, nil
}

// Inspect fetches and decodes the form without resolving answers.
func (p *Pipeline) Inspect(ctx context.Context, formURL string) (*model.RunResult, error) {
	log := zap.L().With(zap.String("form_url", formURL))
	r := &run{p: p, log: log, result: &model.RunResult{FormURL: formURL}}

	baseURL, err := prefill.NormalizeFormURL(formURL)
	if err != nil {
		return nil, &StageError{Stage: StageURL, Err: err}
	}
	r.result.FormURL = baseURL

	form, err := r.loadForm(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	r.result.Form = form
	return r.result, nil
}

// loadForm runs the fetch, extract and schema stages.
func (r *run) loadForm(ctx context.Context, baseURL string) (*model.Form, error) {
	r.setStatus(ctx, model.RunStatusFetching)

	var page string
	if err := r.trackPhase(StageFetch, func() (map[string]any, error) {
		html, fromCache, err := r.p.fetchPage(ctx, baseURL)
		if err != nil {
			return nil, err
		}
		page = html
		return map[string]any{"bytes": len(html), "from_cache": fromCache}, nil
	}); err != nil {
		return nil, err
	}

	r.setStatus(ctx, model.RunStatusParsing)

	var tree gjson.Result
	if err := r.trackPhase(StageExtract, func() (map[string]any, error) {
		t, err := formdata.Extract(page)
		if err != nil {
			return nil, err
		}
		tree = t
		return nil, nil
	}); err != nil {
		return nil, err
	}

	var form *model.Form
	if err := r.trackPhase(StageSchema, func() (map[string]any, error) {
		f, warnings := formdata.BuildForm(tree)
		form = f
		r.result.Warnings = append(r.result.Warnings, warnings...)
		return map[string]any{
			"questions": len(f.Questions),
			"unknown":   len(f.Unknown()),
			"warnings":  len(warnings),
		}, nil
	}); err != nil {
		return nil, err
	}
	return form, nil
}

// fetchPage returns the page HTML, consulting the page cache first.
func (p *Pipeline) fetchPage(ctx context.Context, formURL string) (string, bool, error) {
	useCache := p.store != nil && p.cacheTTL > 0

	if useCache {
		cached, err := p.store.GetCachedPage(ctx, formURL)
		if err != nil {
			zap.L().Warn("pipeline: page cache lookup failed", zap.Error(err))
		} else if cached != nil {
			zap.L().Debug("pipeline: page cache hit", zap.String("url", formURL))
			return cached.HTML, true, nil
		}
	}

	html, err := p.fetcher.FetchPage(ctx, formURL)
	if err != nil {
		return "", false, err
	}

	if useCache {
		if err := p.store.SetCachedPage(ctx, formURL, html, p.cacheTTL); err != nil {
			zap.L().Warn("pipeline: page cache write failed", zap.Error(err))
		}
	}
	return html, false, nil
}
