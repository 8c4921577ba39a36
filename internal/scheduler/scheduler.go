package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/notifier"
)

// Runner executes one analysis run.
type Runner interface {
	Run(ctx context.Context) (*model.Report, error)
}

// Sender delivers run reports and failure notices.
type Sender interface {
	SendReport(ctx context.Context, rep *model.Report, maxRetries int) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler triggers analysis runs on a cron schedule and on chat commands.
// Runs never overlap: a trigger that arrives mid-run joins the run in flight.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Sender
	Ctx      context.Context

	runs singleflight.Group
	mu   sync.RWMutex
	last *model.Report
}

// NewScheduler creates a new Scheduler. sender may be nil.
func NewScheduler(ctx context.Context, runner Runner, sender Sender) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Ctx:      ctx,
	}
}

// Register adds the analysis task under expr, a six-field cron expression.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.runTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one analysis run, or waits for the one already in progress.
// shared reports whether the result was handed to more than one caller.
func (s *Scheduler) RunNow() (rep *model.Report, shared bool, err error) {
	v, err, shared := s.runs.Do("analysis", func() (interface{}, error) {
		return s.run()
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*model.Report), shared, nil
}

// LastReport returns the most recent successful report, or nil.
func (s *Scheduler) LastReport() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) run() (*model.Report, error) {
	log.Println("[INFO] running analysis task")
	rep, err := s.Runner.Run(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] analysis run: %v", err)
		s.trySend(fmt.Sprintf("❌ analysis run failed: %v", err))
		return nil, err
	}
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	log.Printf("[INFO] analysis run %s finished", rep.RunID)
	if s.Notifier != nil {
		if err := s.Notifier.SendReport(s.Ctx, rep, 3); err != nil {
			log.Printf("[ERROR] send report: %v", err)
		}
	}
	return rep, nil
}

func (s *Scheduler) runTask() {
	if _, shared, _ := s.RunNow(); shared {
		log.Println("[INFO] analysis run shared by concurrent triggers")
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/report":
		rep := s.LastReport()
		if rep == nil {
			return "No analysis run has completed yet."
		}
		return notifier.FormatSummary(rep)
	case "/run":
		go s.runTask()
		return "Analysis run started."
	default:
		return "Available commands:\n• /report - last run summary\n• /run - start an analysis run"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
