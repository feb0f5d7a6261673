package resolve

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/profile"
	"github.com/sells-group/formfill-cli/internal/resilience"
)

const stageResolve = "resolve"

// Defaults for the AI fallback.
const (
	DefaultConcurrency = 4
	DefaultCallTimeout = 30 * time.Second
)

// Resolution holds one answer per question, in question order, plus the
// warnings raised while resolving them.
type Resolution struct {
	Answers  []model.Answer  `json:"answers"`
	Warnings []model.Warning `json:"warnings"`
}

// Resolver applies override rules and falls back to an AnswerGenerator.
type Resolver struct {
	gen         AnswerGenerator
	rules       []rule
	concurrency int
	callTimeout time.Duration
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency bounds the number of in-flight generator calls.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCallTimeout caps each generator call, retries included.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithRateLimit limits generator calls to perSec with the given burst.
func WithRateLimit(perSec float64, burst int) Option {
	return func(r *Resolver) {
		if perSec > 0 {
			if burst <= 0 {
				burst = 1
			}
			r.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithRetry sets the retry policy for transient generator failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(r *Resolver) {
		r.retry = cfg
	}
}

// WithCircuitBreaker fails remaining generator calls fast once the backend
// keeps failing.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(r *Resolver) {
		r.breaker = cb
	}
}

// New creates a Resolver around gen.
func New(gen AnswerGenerator, opts ...Option) *Resolver {
	r := &Resolver{
		gen:         gen,
		rules:       defaultRules,
		concurrency: DefaultConcurrency,
		callTimeout: DefaultCallTimeout,
		retry:       resilience.RetryConfig{MaxAttempts: 1},
	}
	for _, o := range opts {
		o(r)
	}
	if r.retry.OnRetry == nil {
		r.retry.OnRetry = resilience.RetryLogger("answer_generator", "generate")
	}
	return r
}

// Resolve produces one Answer per question. Generator failures and
// cancellation degrade single answers to UNRESOLVED; only an unusable
// profile is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, questions []model.Question, p model.UserProfile) (*Resolution, error) {
	if err := profile.Validate(p.RawText); err != nil {
		return nil, eris.Wrap(err, "resolve: profile")
	}

	answers := make([]model.Answer, len(questions))
	warnings := make([][]model.Warning, len(questions))

	var pending []int
	for i, q := range questions {
		if a, ok := applyRules(r.rules, q, p); ok {
			zap.L().Debug("resolve: rule matched",
				zap.String("question", q.ID),
				zap.String("source", string(a.Source)),
			)
			answers[i] = a
			continue
		}
		pending = append(pending, i)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for n, i := range pending {
		if ctx.Err() != nil {
			for _, j := range pending[n:] {
				answers[j], warnings[j] = cancelled(j, questions[j], ctx.Err())
			}
			break
		}
		g.Go(func() error {
			answers[i], warnings[i] = r.resolveWithGenerator(gCtx, i, questions[i], p)
			return nil
		})
	}
	_ = g.Wait()

	res := &Resolution{Answers: answers}
	for _, ws := range warnings {
		res.Warnings = append(res.Warnings, ws...)
	}

	zap.L().Info("resolve: complete",
		zap.Int("questions", len(questions)),
		zap.Int("generator_calls", len(pending)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func (r *Resolver) resolveWithGenerator(ctx context.Context, index int, q model.Question, p model.UserProfile) (model.Answer, []model.Warning) {
	if ctx.Err() != nil {
		return cancelled(index, q, ctx.Err())
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return cancelled(index, q, err)
		}
	}

	raw, err := r.generate(ctx, q, p)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(index, q, ctx.Err())
		}
		code := model.WarnAnswerGeneration
		if errors.Is(err, ErrAnswerTimeout) {
			code = model.WarnAnswerTimeout
		}
		return unresolved(index, q, code, err.Error())
	}

	values, ok := sanitize(q, raw)
	if !ok {
		msg := "generated answer is empty"
		if q.Type.IsChoice() {
			msg = "generated answer " + quote(cleanCandidate(raw)) + " matches no option"
		}
		return unresolved(index, q, model.WarnNoOptionMatch, msg)
	}
	return model.Answer{QuestionID: q.ID, Values: values, Source: model.SourceAI}, nil
}

// generate calls the generator under the per-call timeout, retry policy and
// circuit breaker.
func (r *Resolver) generate(ctx context.Context, q model.Question, p model.UserProfile) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	prompt := Prompt{
		QuestionText: q.Text,
		Type:         q.Type,
		Options:      q.Options,
		ProfileText:  p.RawText,
	}
	call := func(ctx context.Context) (string, error) {
		return r.gen.Generate(ctx, prompt)
	}

	text, err := resilience.DoVal(callCtx, r.retry, func(ctx context.Context) (string, error) {
		if r.breaker != nil {
			return resilience.ExecuteVal(ctx, r.breaker, call)
		}
		return call(ctx)
	})
	if err == nil {
		return text, nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", &AnswerGenerationError{QuestionID: q.ID, Err: eris.Wrap(ErrAnswerTimeout, err.Error())}
	}
	return "", &AnswerGenerationError{QuestionID: q.ID, Err: err}
}

func unresolved(index int, q model.Question, code model.WarningCode, msg string) (model.Answer, []model.Warning) {
	w := model.Warning{
		Stage:      stageResolve,
		Code:       code,
		QuestionID: q.ID,
		Index:      index,
		Message:    msg,
	}
	zap.L().Warn("resolve: question unresolved",
		zap.String("question", q.ID),
		zap.String("code", string(code)),
		zap.String("message", msg),
	)
	return model.Unresolved(q.ID), []model.Warning{w}
}

func cancelled(index int, q model.Question, err error) (model.Answer, []model.Warning) {
	return unresolved(index, q, model.WarnCancelled, "resolution cancelled: "+err.Error())
}

func quote(s string) string {
	return "\"" + s + "\""
}
