package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NordCoder/apirun/internal/chart"
	"github.com/NordCoder/apirun/internal/domain/kafka"
	"github.com/NordCoder/apirun/internal/domain/notification"
	"github.com/NordCoder/apirun/internal/domain/run"
	"github.com/NordCoder/apirun/internal/obs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	progressHeader = "Идёт тестирование"
	reportFailed   = "Ошибка генерации отчёта Allure"
	runFailed      = "Ошибка запуска коллекции"
	finishTimeout  = 10 * time.Second
)

type Config struct {
	WorkDir         string
	KeepArtifacts   bool
	EngineTimeout   time.Duration
	ReportTimeout   time.Duration
	ChartTimeout    time.Duration
	ProgressMessage bool
	FailureAlert    bool
}

// Pipeline drives one collection run from execution to chat delivery.
type Pipeline struct {
	cfg     Config
	engine  Engine
	report  ReportGenerator
	chart   ChartRenderer
	notify  notification.Sender
	history HistoryStore
	events  kafka.RunEvents
	clock   notification.Clock
	log     *zap.Logger
}

func New(
	cfg Config,
	engine Engine,
	report ReportGenerator,
	renderer ChartRenderer,
	notify notification.Sender,
	l *zap.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		engine: engine,
		report: report,
		chart:  renderer,
		notify: notify,
		clock:  notification.SystemClock{},
		log:    obs.Component(l, "pipeline"),
	}
}

func (p *Pipeline) WithHistory(h HistoryStore) *Pipeline {
	cp := *p
	cp.history = h
	return &cp
}

func (p *Pipeline) WithEvents(e kafka.RunEvents) *Pipeline {
	cp := *p
	cp.events = e
	return &cp
}

func (p *Pipeline) WithClock(c notification.Clock) *Pipeline {
	cp := *p
	cp.clock = c
	return &cp
}

// ChartPath is the per-run chart image location.
func (p *Pipeline) ChartPath(runID string) string {
	return filepath.Join(p.cfg.WorkDir, "chart-"+runID+".png")
}

// Run executes collection once. The returned Outcome is never nil; the error
// is non-nil when the run ended Failed or Aborted.
func (p *Pipeline) Run(ctx context.Context, runID, collection string) (out *Outcome, err error) {
	out = &Outcome{Record: run.Record{
		ID:         runID,
		Collection: collection,
		State:      run.StateIdle,
		StartedAt:  p.clock.Now(),
	}}

	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.collection", collection),
	))
	log := obs.WithTrace(ctx, p.log).With(zap.String("run_id", runID), zap.String("collection", collection))

	defer func() {
		out.Record.FinishedAt = p.clock.Now()
		if err != nil {
			out.Record.Error = err.Error()
		}
		span.SetAttributes(attribute.String("run.state", string(out.Record.State)))
		p.finish(ctx, out, log)
		obs.EndSpan(span, err)
	}()

	p.enter(out, run.StateRunning, log)
	if p.cfg.ProgressMessage {
		d := out.add(p.notify.SendMessage(ctx, progressHeader+"\nНазвание коллекции: "+collection, true))
		if d.OK {
			id := d.MessageID
			out.Notify.LastMessageID = &id
		}
	}

	var raw *run.Raw
	if err := p.stage(ctx, "engine", p.cfg.EngineTimeout, func(ctx context.Context) error {
		var err error
		raw, err = p.engine.Run(ctx, collection, runID)
		return err
	}); err != nil {
		p.enter(out, run.StateFailed, log)
		log.Error("collection run failed", zap.Error(err))
		p.closeProgress(ctx, out, failureText(runFailed, collection, err))
		return out, fmt.Errorf("run collection %s: %w", collection, err)
	}

	p.enter(out, run.StateAggregating, log)
	sum, err := run.Aggregate(raw)
	if err != nil {
		p.enter(out, run.StateFailed, log)
		log.Error("aggregate run", zap.Error(err))
		p.closeProgress(ctx, out, failureText(runFailed, collection, err))
		return out, fmt.Errorf("aggregate: %w", err)
	}
	out.Record.Summary = &sum
	out.Notify.Muted = sum.Muted()
	mAssertions.WithLabelValues(collection, "passed").Set(float64(sum.PassedAssertions))
	mAssertions.WithLabelValues(collection, "failed").Set(float64(sum.FailedAssertions))
	mRequests.WithLabelValues(collection).Set(float64(sum.TotalRequests))
	log.Info("run aggregated",
		zap.Int("requests", sum.TotalRequests),
		zap.Int("passed", sum.PassedAssertions),
		zap.Int("failed", sum.FailedAssertions),
	)

	p.enter(out, run.StateReportGenerating, log)
	if err := p.stage(ctx, "report", p.cfg.ReportTimeout, func(ctx context.Context) error {
		var err error
		out.ReportPath, err = p.report.Generate(ctx)
		return err
	}); err != nil {
		p.enter(out, run.StateAborted, log)
		log.Error("report generation failed, run aborted", zap.Error(err))
		text := failureText(reportFailed, sum.CollectionName, err)
		if p.cfg.FailureAlert {
			p.sendFinal(ctx, out, text, false, true)
		} else {
			p.closeProgress(ctx, out, text)
		}
		return out, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	muted := out.Notify.Muted

	p.enter(out, run.StateChartSending, log)
	chartPath := p.ChartPath(runID)
	if err := p.stage(ctx, "chart", p.cfg.ChartTimeout, func(ctx context.Context) error {
		return p.chart.Render(ctx, chart.Input{
			Passed:         sum.PassedAssertions,
			Failed:         sum.FailedAssertions,
			CollectionName: sum.CollectionName,
		}, chartPath)
	}); err != nil {
		out.ChartErr = err
		log.Warn("chart unavailable, photo skipped", zap.Error(err))
	} else {
		out.ChartPath = chartPath
		out.add(p.notify.SendPhoto(ctx, chartPath, muted))
	}

	p.enter(out, run.StateReportSending, log)
	out.add(p.notify.SendDocument(ctx, out.ReportPath, "", muted))
	p.sendFinal(ctx, out, sum.Text(), muted, true)

	p.enter(out, run.StateDone, log)
	return out, nil
}

// sendFinal edits the progress message in place when there is one. A fresh
// message is sent when there is nothing to edit or the edit failed, unless
// fallback is off.
func (p *Pipeline) sendFinal(ctx context.Context, out *Outcome, text string, muted, fallback bool) {
	if id := out.Notify.LastMessageID; id != nil {
		if d := out.add(p.notify.EditMessage(ctx, *id, text, muted)); d.OK {
			return
		}
	}
	if !fallback {
		return
	}
	d := out.add(p.notify.SendMessage(ctx, text, muted))
	if d.OK {
		id := d.MessageID
		out.Notify.LastMessageID = &id
	}
}

// closeProgress replaces a pending progress message with text. Nothing is
// sent when the run never posted one.
func (p *Pipeline) closeProgress(ctx context.Context, out *Outcome, text string) {
	if out.Notify.LastMessageID == nil {
		return
	}
	p.sendFinal(ctx, out, text, false, false)
}

func (p *Pipeline) stage(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) (err error) {
	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline."+name)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		mStage.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
		obs.EndSpan(span, err)
	}()
	return fn(ctx)
}

func (p *Pipeline) enter(out *Outcome, to run.State, log *zap.Logger) {
	from := out.Record.State
	if !canTransition(from, to) {
		log.Error("unexpected state transition", zap.String("from", string(from)), zap.String("to", string(to)))
	}
	out.Record.State = to
	log.Debug("state", zap.String("from", string(from)), zap.String("to", string(to)))
}

// finish records the outcome. Nothing here affects the run result.
func (p *Pipeline) finish(ctx context.Context, out *Outcome, log *zap.Logger) {
	collection := out.Record.Collection
	mRuns.WithLabelValues(collection, string(out.Record.State)).Inc()
	mLastRun.WithLabelValues(collection).Set(float64(out.Record.FinishedAt.Unix()))

	if !p.cfg.KeepArtifacts && out.ChartPath != "" {
		if err := os.Remove(out.ChartPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("remove chart", zap.String("path", out.ChartPath), zap.Error(err))
		}
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if p.history != nil {
		if err := p.history.SaveRun(fctx, &out.Record, out.Deliveries); err != nil {
			log.Warn("save run history", zap.Error(err))
		}
	}
	if p.events != nil {
		if err := p.events.PublishRunFinished(fctx, &out.Record); err != nil {
			log.Warn("publish run finished", zap.Error(err))
		}
	}

	log.Info("run finished",
		zap.String("state", string(out.Record.State)),
		zap.Int("deliveries", len(out.Deliveries)),
		zap.Duration("elapsed", out.Record.FinishedAt.Sub(out.Record.StartedAt)),
	)
}

func failureText(header, collection string, cause error) string {
	return fmt.Sprintf("%s\nНазвание коллекции: %s\n%v", header, collection, cause)
}
