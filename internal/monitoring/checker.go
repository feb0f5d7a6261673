package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/formfill-cli/internal/config"
)

const (
	defaultCheckInterval = 5 * time.Minute
	defaultAlertCooldown = time.Hour
)

// CachePruner removes expired cached form pages.
type CachePruner interface {
	DeleteExpiredPages(ctx context.Context) (int, error)
}

// Checker periodically evaluates run metrics, sends alerts and prunes the
// page cache.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	pruner    CachePruner
	cooldown  time.Duration
	nowFunc   func() time.Time

	mu       sync.Mutex
	lastSent map[AlertType]time.Time
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithCachePruner prunes expired pages on every tick.
func WithCachePruner(p CachePruner) CheckerOption {
	return func(c *Checker) { c.pruner = p }
}

// WithAlertCooldown suppresses repeats of an alert type for d.
// Zero sends every triggered alert.
func WithAlertCooldown(d time.Duration) CheckerOption {
	return func(c *Checker) { c.cooldown = d }
}

// NewChecker creates a background checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig, opts ...CheckerOption) *Checker {
	c := &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		cooldown:  defaultAlertCooldown,
		nowFunc:   time.Now,
		lastSent:  make(map[AlertType]time.Time),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run ticks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: checker started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Bool("prune_cache", c.pruner != nil),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
			c.prune(ctx)
		}
	}
}

// Check collects one snapshot and sends the triggered alerts that are not
// cooling down. It returns the number of alerts sent.
func (c *Checker) Check(ctx context.Context) int {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: collect metrics", zap.Error(err))
		return 0
	}

	alerts := c.due(c.alerter.Evaluate(snap))
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts due",
			zap.Int("runs", snap.RunsTotal),
			zap.Float64("fail_rate", snap.FailRate),
		)
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	if sent > 0 {
		c.markSent(alerts)
	}
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_due", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

// due drops alerts whose type was sent within the cooldown.
func (c *Checker) due(alerts []Alert) []Alert {
	if c.cooldown <= 0 {
		return alerts
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	out := alerts[:0:0]
	for _, a := range alerts {
		if last, ok := c.lastSent[a.Type]; ok && now.Sub(last) < c.cooldown {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c *Checker) markSent(alerts []Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	for _, a := range alerts {
		c.lastSent[a.Type] = now
	}
}

func (c *Checker) prune(ctx context.Context) {
	if c.pruner == nil {
		return
	}
	n, err := c.pruner.DeleteExpiredPages(ctx)
	if err != nil {
		zap.L().Warn("monitoring: prune page cache", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("monitoring: pruned page cache", zap.Int("deleted", n))
	}
}
