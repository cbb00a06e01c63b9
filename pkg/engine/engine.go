package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
	"github.com/gokaycavdar/go-vpnsense/pkg/storage"
)

const (
	// DefaultThreshold is the total score at or above which a client is flagged.
	DefaultThreshold = 40

	// DefaultCeiling bounds probes that do not declare their own ceiling.
	DefaultCeiling = 10 * time.Second

	historyTimeout = 2 * time.Second
)

// Config is fixed at construction time.
type Config struct {
	// Threshold is compared against the summed score: isVPN = total >= Threshold.
	Threshold int

	// DefaultCeiling bounds probes that do not implement probes.Bounded.
	DefaultCeiling time.Duration
}

// DefaultConfig returns the standard threshold and ceiling.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, DefaultCeiling: DefaultCeiling}
}

// Detector runs a fixed set of probes concurrently and aggregates their scores.
//
// Architecture Principles:
//   - Detector is probe-agnostic: no type-switching on concrete probe types
//   - Optional capabilities (Bounded, Fallback) are detected by type assertion
//   - Total: every run resolves to a verdict; probe errors, panics and hangs
//     become fallback results
//   - Stateless: nothing is carried from one run to the next
//
// Usage:
//
//	d := engine.New(engine.DefaultConfig(), logger, probes...)
//	verdict := d.Detect(ctx)
type Detector struct {
	cfg     Config
	logger  *zap.Logger
	probes  []probes.Probe
	history storage.HistoryStore
}

// New creates a detector over the given probes. Zero config fields take their
// defaults; a nil logger discards output.
func New(cfg Config, logger *zap.Logger, ps ...probes.Probe) *Detector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.DefaultCeiling <= 0 {
		cfg.DefaultCeiling = DefaultCeiling
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{cfg: cfg, logger: logger, probes: ps}
}

// WithHistory makes the detector save every diagnostic record to store.
// Store failures are logged and never affect the verdict.
func (d *Detector) WithHistory(store storage.HistoryStore) *Detector {
	d.history = store
	return d
}

// Config returns the effective configuration.
func (d *Detector) Config() Config { return d.cfg }

// DetectVPN runs all probes and reports whether the client looks like it is
// behind a VPN or proxy.
func (d *Detector) DetectVPN(ctx context.Context) bool {
	return d.Detect(ctx).IsVPN
}

// Detect runs all probes concurrently, waits for every one of them to produce a
// result, and returns the verdict together with its diagnostic record.
//
// Detect never fails. Cancelling ctx makes outstanding probes resolve to their
// fallback results.
func (d *Detector) Detect(ctx context.Context) *models.Verdict {
	started := time.Now()
	results := make([]models.ProbeResult, len(d.probes))

	// Fault-tolerant join: the adapter never returns an error, so one probe can
	// never cancel or hide another.
	var g errgroup.Group
	for i, p := range d.probes {
		i, p := i, p
		g.Go(func() error {
			results[i] = d.runProbe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += r.Score
	}

	v := &models.Verdict{
		ID:         uuid.NewString(),
		StartedAt:  started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
		Results:    results,
		TotalScore: total,
		Threshold:  d.cfg.Threshold,
		IsVPN:      total >= d.cfg.Threshold,
	}

	d.record(ctx, v)
	return v
}

// runProbe is the uniform adapter around a single probe.
func (d *Detector) runProbe(ctx context.Context, p probes.Probe) models.ProbeResult {
	ceiling := d.cfg.DefaultCeiling
	if b, ok := p.(probes.Bounded); ok && b.Ceiling() > 0 {
		ceiling = b.Ceiling()
	}

	pctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	type outcome struct {
		res models.ProbeResult
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := p.Run(pctx)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return d.fallback(p, o.err)
		}
		o.res.Probe = p.Name()
		if o.res.Score < 0 {
			o.res.Score = 0
		}
		return o.res
	case <-pctx.Done():
		// The probe goroutine is abandoned; its buffered send never blocks.
		return d.fallback(p, fmt.Errorf("no result within %s: %w", ceiling, pctx.Err()))
	}
}

func (d *Detector) fallback(p probes.Probe, err error) models.ProbeResult {
	score := 0
	if f, ok := p.(probes.Fallback); ok {
		score = f.FallbackScore()
	}

	d.logger.Warn("probe failed, using fallback score",
		zap.String("probe", p.Name()),
		zap.Int("score", score),
		zap.Error(err))

	return models.ProbeResult{
		Probe:   p.Name(),
		Score:   score,
		Reasons: models.NewReasonSet(models.ReasonProbeFailed),
		Error:   err.Error(),
	}
}

// record emits the diagnostic record. It never fails the run.
func (d *Detector) record(ctx context.Context, v *models.Verdict) {
	fields := []zap.Field{
		zap.String("id", v.ID),
		zap.Int("total_score", v.TotalScore),
		zap.Int("threshold", v.Threshold),
		zap.Bool("is_vpn", v.IsVPN),
		zap.Int64("duration_ms", v.DurationMs),
	}
	for _, r := range v.Results {
		fields = append(fields,
			zap.Int(r.Probe+"_score", r.Score),
			zap.String(r.Probe+"_reason", r.Reason()))
	}
	d.logger.Info("vpn detection finished", fields...)

	if d.history == nil {
		return
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := d.history.Save(sctx, v); err != nil {
		d.logger.Error("failed to save diagnostic record", zap.String("id", v.ID), zap.Error(err))
	}
}
