package bots_monitor

// Cron schedules for the monitor pass and the watchlist refresh

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"smartmoney-bot/internal/features/signals"
	logging "smartmoney-bot/internal/infra/log"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrPassInProgress is returned by TriggerPass while another pass runs.
var ErrPassInProgress = errors.New("monitor pass already in progress")

type PassRunner interface {
	Run(ctx context.Context) (*signals.PassReport, error)
}

type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// TextSender delivers operator messages.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// FailureReporter sends best-effort failure notices, at most one per job per cooldown.
type FailureReporter struct {
	sender   TextSender
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewFailureReporter(sender TextSender, cooldown time.Duration) *FailureReporter {
	return &FailureReporter{sender: sender, cooldown: cooldown, now: time.Now, lastSent: make(map[string]time.Time)}
}

// Report notifies about a failed job. It returns false when the notice was
// suppressed by the cooldown or could not be sent.
func (f *FailureReporter) Report(ctx context.Context, job string, jobErr error) bool {
	if f == nil || f.sender == nil {
		return false
	}

	f.mu.Lock()
	now := f.now()
	if last, ok := f.lastSent[job]; ok && now.Sub(last) < f.cooldown {
		f.mu.Unlock()
		logging.LogDebug("Failure notice suppressed by cooldown", zap.String("job", job))
		return false
	}
	f.lastSent[job] = now
	f.mu.Unlock()

	text := fmt.Sprintf("⚠️ <b>%s failed</b>\n<code>%s</code>", html.EscapeString(job), html.EscapeString(jobErr.Error()))
	if err := f.sender.SendText(ctx, text); err != nil {
		logging.LogError("Failed to send failure notice", zap.String("job", job), zap.Error(err))
		return false
	}
	return true
}

// Scheduler drives monitor passes and watchlist refreshes. Monitor passes
// never overlap, whether started by cron, at startup or by TriggerPass.
type Scheduler struct {
	pipeline  PassRunner
	refresher Refresher
	failures  *FailureReporter

	pollInterval time.Duration
	refreshSpec  string

	cron   *cron.Cron
	passMu sync.Mutex
	wg     sync.WaitGroup
}

func NewScheduler(pipeline PassRunner, refresher Refresher, failures *FailureReporter, pollInterval time.Duration, refreshSpec string) *Scheduler {
	logger := cronLogger{logging.Logger().With(zap.String("component", "cron"))}
	return &Scheduler{
		pipeline:     pipeline,
		refresher:    refresher,
		failures:     failures,
		pollInterval: pollInterval,
		refreshSpec:  refreshSpec,
		cron:         cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
	}
}

// Start registers the jobs, runs an initial pass and starts cron.
func (s *Scheduler) Start(ctx context.Context) error {
	monitorSpec := fmt.Sprintf("@every %s", s.pollInterval)
	if _, err := s.cron.AddFunc(monitorSpec, func() { s.monitorJob(ctx) }); err != nil {
		return fmt.Errorf("schedule monitor %q: %w", monitorSpec, err)
	}
	if s.refresher != nil && s.refreshSpec != "" {
		if _, err := s.cron.AddFunc(s.refreshSpec, func() { s.refreshJob(ctx) }); err != nil {
			return fmt.Errorf("schedule refresh %q: %w", s.refreshSpec, err)
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitorJob(ctx)
	}()

	s.cron.Start()
	logging.LogInfo("Scheduler started",
		zap.String("monitor", monitorSpec),
		zap.String("refresh", s.refreshSpec))
	return nil
}

// Stop stops cron. The returned channel closes when running jobs finished.
func (s *Scheduler) Stop() <-chan struct{} {
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	return done
}

// TriggerPass runs a monitor pass now unless one is already running.
func (s *Scheduler) TriggerPass(ctx context.Context) (*signals.PassReport, error) {
	if !s.passMu.TryLock() {
		return nil, ErrPassInProgress
	}
	defer s.passMu.Unlock()
	return s.pipeline.Run(ctx)
}

// TriggerRefresh runs a watchlist refresh now.
func (s *Scheduler) TriggerRefresh(ctx context.Context) (int, error) {
	if s.refresher == nil {
		return 0, errors.New("no watchlist refresher configured")
	}
	return s.refresher.Refresh(ctx)
}

func (s *Scheduler) monitorJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := s.TriggerPass(ctx)
	switch {
	case errors.Is(err, ErrPassInProgress):
		logging.LogDebug("Skipping monitor pass, previous one still running")
	case err != nil && ctx.Err() == nil:
		s.failures.Report(ctx, "Monitor pass", err)
	}
}

func (s *Scheduler) refreshJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.refresher.Refresh(ctx); err != nil && ctx.Err() == nil {
		logging.LogError("Scheduled watchlist refresh failed", zap.Error(err))
		s.failures.Report(ctx, "Watchlist refresh", err)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
